// Package store persists wardrobe items.
//
// Two backends implement ItemStore: a single JSON document rewritten on every
// mutation (JSONStore) and a SQLite table of JSON documents (SQLiteStore).
// Both serialize mutations, so concurrent requests never lose updates.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/erazemk/omara/internal/model"
)

// ItemStore is the durable record of wardrobe items.
type ItemStore interface {
	// List returns all items in ascending id order. An absent or empty
	// store yields an empty slice.
	List(ctx context.Context) ([]model.Item, error)
	// Get returns the item with the given id or model.ErrNotFound.
	Get(ctx context.Context, id int64) (*model.Item, error)
	// Add assigns the next id, merges fields into a new item, validates and
	// persists it.
	Add(ctx context.Context, fields model.Fields) (*model.Item, error)
	// Update shallow-merges fields into an existing item.
	Update(ctx context.Context, id int64, fields model.Fields) (*model.Item, error)
	// Delete removes the item and reports whether it existed.
	Delete(ctx context.Context, id int64) (bool, error)
	Close() error
}

// Backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Option configures a store.
type Option func(*options)

type options struct {
	validators []Validator
	now        func() time.Time
}

// WithValidator adds a validator run on every add and update.
func WithValidator(v Validator) Option {
	return func(o *options) {
		if v != nil {
			o.validators = append(o.validators, v)
		}
	}
}

// WithClock overrides the time source used for created_at.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func newOptions(opts []Option) options {
	o := options{
		validators: []Validator{PaletteValidator{}},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) validate(item *model.Item) error {
	for _, v := range o.validators {
		if err := v.Validate(item); err != nil {
			return err
		}
	}
	return nil
}

func (o options) timestamp() time.Time {
	return o.now().UTC().Truncate(time.Second)
}

// newItem builds the item stored by Add.
func (o options) newItem(id int64, fields model.Fields) (*model.Item, error) {
	if err := model.CheckFieldKeys(fields); err != nil {
		return nil, err
	}
	item := &model.Item{ID: id, CreatedAt: o.timestamp()}
	if err := item.Apply(fields); err != nil {
		return nil, &model.ValidationError{Reason: err.Error()}
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = o.timestamp()
	}
	if err := o.validate(item); err != nil {
		return nil, err
	}
	return item, nil
}

// ingestedKeys are set once when an image is ingested and never patched.
// The image file is removed with the item, so it must stay the item's own.
var ingestedKeys = []string{"image_path", "original_name"}

// applyUpdate merges fields into a copy of item and validates the result.
func (o options) applyUpdate(item model.Item, fields model.Fields) (*model.Item, error) {
	if err := model.CheckFieldKeys(fields); err != nil {
		return nil, err
	}
	for _, k := range ingestedKeys {
		if _, ok := fields[k]; ok {
			return nil, &model.ValidationError{Field: k, Reason: "is set by ingestion"}
		}
	}
	id, ok, err := model.FieldID(fields)
	if err != nil {
		return nil, &model.ValidationError{Field: "id", Reason: err.Error()}
	}
	if ok && id != item.ID {
		return nil, &model.ValidationError{Field: "id", Reason: "id is immutable"}
	}

	next := item.Clone()
	if err := next.Apply(fields); err != nil {
		return nil, &model.ValidationError{Reason: err.Error()}
	}
	if err := o.validate(&next); err != nil {
		return nil, err
	}
	return &next, nil
}

// Open opens the store for the given backend.
func Open(backend, path string, opts ...Option) (ItemStore, error) {
	switch backend {
	case BackendJSON, "":
		return NewJSONStore(path, opts...), nil
	case BackendSQLite:
		return OpenSQLite(path, opts...)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
