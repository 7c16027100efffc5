package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/erazemk/omara/internal/db"
	"github.com/erazemk/omara/internal/model"
)

// SQLiteStore keeps each item as a JSON document in the items table.
type SQLiteStore struct {
	db   *sql.DB
	opts options
	own  bool
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// schema.
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, err
	}
	s := NewSQLiteStore(database, opts...)
	s.own = true
	return s, nil
}

// NewSQLiteStore wraps an already opened database. Close leaves it open.
func NewSQLiteStore(database *sql.DB, opts ...Option) *SQLiteStore {
	return &SQLiteStore{db: database, opts: newOptions(opts)}
}

// DB returns the underlying database handle.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// List implements ItemStore.
func (s *SQLiteStore) List(ctx context.Context) ([]model.Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, doc FROM items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		var id int64
		var doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item, err := decodeDoc(id, doc)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// Get implements ItemStore.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*model.Item, error) {
	return getItem(ctx, s.db, id)
}

// Add implements ItemStore.
func (s *SQLiteStore) Add(ctx context.Context, fields model.Fields) (*model.Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `INSERT INTO items (doc) VALUES ('{}')`)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	item, err := s.opts.newItem(id, fields)
	if err != nil {
		return nil, err
	}
	if err := writeDoc(ctx, tx, item); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item: %w", err)
	}
	return item, nil
}

// Update implements ItemStore.
func (s *SQLiteStore) Update(ctx context.Context, id int64, fields model.Fields) (*model.Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := getItem(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	next, err := s.opts.applyUpdate(*current, fields)
	if err != nil {
		return nil, err
	}
	if err := writeDoc(ctx, tx, next); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item: %w", err)
	}
	return next, nil
}

// Delete implements ItemStore.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("counting deleted items: %w", err)
	}
	return n > 0, nil
}

// Close implements ItemStore. Only databases opened by OpenSQLite are closed.
func (s *SQLiteStore) Close() error {
	if s.own {
		return s.db.Close()
	}
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getItem(ctx context.Context, q querier, id int64) (*model.Item, error) {
	var doc string
	err := q.QueryRowContext(ctx, `SELECT doc FROM items WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return decodeDoc(id, doc)
}

func writeDoc(ctx context.Context, e execer, item *model.Item) error {
	doc, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encoding item: %w", err)
	}
	_, err = e.ExecContext(ctx,
		`UPDATE items SET doc = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(doc), item.ID,
	)
	if err != nil {
		return fmt.Errorf("saving item: %w", err)
	}
	return nil
}

// decodeDoc parses a stored document. The row id wins over any id in the
// document.
func decodeDoc(id int64, doc string) (*model.Item, error) {
	var item model.Item
	if err := json.Unmarshal([]byte(doc), &item); err != nil {
		return nil, &model.CorruptStoreError{Path: fmt.Sprintf("items/%d", id), Err: err}
	}
	item.ID = id
	return &item, nil
}
