package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/erazemk/omara/internal/model"
)

// JSONStore keeps every item in one JSON array on disk. Each operation reads
// the whole document and each mutation rewrites it through a temp file and a
// rename. A mutex serializes all operations within the process.
type JSONStore struct {
	path string
	opts options

	mu sync.Mutex
	// lastID is the highest id this instance has seen or assigned, so an id
	// freed by a delete is not handed out again.
	lastID int64
}

// NewJSONStore returns a store backed by the file at path. The file is
// created on the first write.
func NewJSONStore(path string, opts ...Option) *JSONStore {
	return &JSONStore{path: path, opts: newOptions(opts)}
}

// Init writes an empty collection. It fails if the file already exists.
func (s *JSONStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return fmt.Errorf("store file %s already exists", s.path)
	}
	return s.write(nil)
}

// List implements ItemStore.
func (s *JSONStore) List(ctx context.Context) ([]model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.read()
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

// Get implements ItemStore.
func (s *JSONStore) Get(ctx context.Context, id int64) (*model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.read()
	if err != nil {
		return nil, err
	}
	i := indexOf(items, id)
	if i < 0 {
		return nil, model.ErrNotFound
	}
	item := items[i]
	return &item, nil
}

// Add implements ItemStore.
func (s *JSONStore) Add(ctx context.Context, fields model.Fields) (*model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.read()
	if err != nil {
		return nil, err
	}

	item, err := s.opts.newItem(s.lastID+1, fields)
	if err != nil {
		return nil, err
	}

	if err := s.write(append(items, *item)); err != nil {
		return nil, err
	}
	s.lastID = item.ID
	return item, nil
}

// Update implements ItemStore.
func (s *JSONStore) Update(ctx context.Context, id int64, fields model.Fields) (*model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.read()
	if err != nil {
		return nil, err
	}
	i := indexOf(items, id)
	if i < 0 {
		return nil, model.ErrNotFound
	}

	next, err := s.opts.applyUpdate(items[i], fields)
	if err != nil {
		return nil, err
	}
	items[i] = *next

	if err := s.write(items); err != nil {
		return nil, err
	}
	return next, nil
}

// Delete implements ItemStore.
func (s *JSONStore) Delete(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.read()
	if err != nil {
		return false, err
	}
	i := indexOf(items, id)
	if i < 0 {
		return false, nil
	}

	if err := s.write(append(items[:i:i], items[i+1:]...)); err != nil {
		return false, err
	}
	return true, nil
}

// Close implements ItemStore.
func (s *JSONStore) Close() error { return nil }

// read loads the document. A missing or empty file is an empty collection;
// anything unparsable is a CorruptStoreError. Caller holds s.mu.
func (s *JSONStore) read() ([]model.Item, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading store: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var items []model.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &model.CorruptStoreError{Path: s.path, Err: err}
	}

	seen := make(map[int64]bool, len(items))
	for _, item := range items {
		if item.ID <= 0 {
			return nil, &model.CorruptStoreError{Path: s.path, Err: fmt.Errorf("item without a valid id")}
		}
		if seen[item.ID] {
			return nil, &model.CorruptStoreError{Path: s.path, Err: fmt.Errorf("duplicate id %d", item.ID)}
		}
		seen[item.ID] = true
		s.lastID = max(s.lastID, item.ID)
	}
	return items, nil
}

// write replaces the document atomically. Caller holds s.mu.
func (s *JSONStore) write(items []model.Item) error {
	if items == nil {
		items = []model.Item{}
	}
	data, err := json.MarshalIndent(items, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("setting store permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing store: %w", err)
	}
	return nil
}

func indexOf(items []model.Item, id int64) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
