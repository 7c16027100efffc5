// Package ingest stores uploaded photos as wardrobe items.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erazemk/omara/internal/classify"
	"github.com/erazemk/omara/internal/imaging"
	"github.com/erazemk/omara/internal/model"
	"github.com/erazemk/omara/internal/store"
)

// Stages of an ingestion.
const (
	StageDecode   = "decode"
	StageSave     = "save"
	StageClassify = "classify"
	StageStore    = "store"
)

// Upload outcomes reported to the Observer.
const (
	ResultAdded    = "added"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

const maxNameLength = 255

// IngestionError reports the stage an upload failed in.
type IngestionError struct {
	Stage string
	Err   error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingesting image: %s: %v", e.Stage, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// Observer receives the outcome of every upload.
type Observer interface {
	ObserveIngest(result string)
}

// Pipeline saves, classifies and records uploads. The item owns its image
// file: a failed ingestion leaves no file behind and Remove deletes both.
type Pipeline struct {
	store    store.ItemStore
	adapter  *classify.Adapter
	dir      string
	maxDim   int
	logger   *zap.Logger
	observer Observer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMaxDimension bounds the stored image size.
func WithMaxDimension(n int) Option {
	return func(p *Pipeline) { p.maxDim = n }
}

// WithLogger sets the pipeline logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithObserver reports upload outcomes to o.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// New returns a pipeline writing images into dir.
func New(s store.ItemStore, a *classify.Adapter, dir string, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:   s,
		adapter: a,
		dir:     dir,
		maxDim:  imaging.DefaultMaxDimension,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest stores the image read from r as a new item.
func (p *Pipeline) Ingest(ctx context.Context, originalName string, r io.Reader) (*model.Item, error) {
	item, err := p.ingest(ctx, originalName, r)
	if p.observer != nil {
		switch {
		case err == nil:
			p.observer.ObserveIngest(ResultAdded)
		case errors.Is(err, imaging.ErrUnsupportedFormat):
			p.observer.ObserveIngest(ResultRejected)
		default:
			p.observer.ObserveIngest(ResultFailed)
		}
	}
	return item, err
}

func (p *Pipeline) ingest(ctx context.Context, originalName string, r io.Reader) (*model.Item, error) {
	processed, err := imaging.Process(r, p.maxDim)
	if err != nil {
		return nil, &IngestionError{Stage: StageDecode, Err: err}
	}

	path, err := p.save(processed.Data)
	if err != nil {
		return nil, &IngestionError{Stage: StageSave, Err: err}
	}

	meta, err := p.adapter.ClassifyFile(ctx, path)
	if err != nil {
		p.discard(path)
		return nil, &IngestionError{Stage: StageClassify, Err: err}
	}

	fields := meta.Fields()
	fields["image_path"] = path
	if name := SanitizeName(originalName); name != "" {
		fields["original_name"] = name
	}

	item, err := p.store.Add(ctx, fields)
	if err != nil {
		p.discard(path)
		return nil, &IngestionError{Stage: StageStore, Err: err}
	}

	p.logger.Info("item ingested",
		zap.Int64("id", item.ID),
		zap.String("type", item.Type),
		zap.String("color", item.Color),
		zap.String("image", path),
	)
	return item, nil
}

// save writes data to a fresh uuid-named file in the image directory.
func (p *Pipeline) save(data []byte) (string, error) {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating image directory: %w", err)
	}
	path := filepath.Join(p.dir, uuid.NewString()+".jpg")

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating image file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing image file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("closing image file: %w", err)
	}
	return path, nil
}

func (p *Pipeline) discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.logger.Error("removing image after failed ingestion", zap.String("image", path), zap.Error(err))
	}
}

// Remove deletes the item and then its image file.
func (p *Pipeline) Remove(ctx context.Context, id int64) error {
	item, err := p.store.Get(ctx, id)
	if err != nil {
		return err
	}
	ok, err := p.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrNotFound
	}

	path, ok := p.ImageFile(item)
	if !ok {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.logger.Warn("removing image of deleted item", zap.Int64("id", id), zap.String("image", path), zap.Error(err))
	}
	return nil
}

// ImageFile returns the item's image path when it lies inside the image
// directory. Paths edited to point elsewhere are never served or deleted.
func (p *Pipeline) ImageFile(item *model.Item) (string, bool) {
	if item.ImagePath == "" {
		return "", false
	}
	dir, err := filepath.Abs(p.dir)
	if err != nil {
		return "", false
	}
	path, err := filepath.Abs(item.ImagePath)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return item.ImagePath, true
}

// SanitizeName reduces a client filename to a printable base name.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	if len(name) > maxNameLength {
		name = strings.ToValidUTF8(name[:maxNameLength], "")
	}
	return name
}
