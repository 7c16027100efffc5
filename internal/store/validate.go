package store

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/erazemk/omara/internal/model"
)

// Validator checks an item before it is persisted.
type Validator interface {
	Validate(item *model.Item) error
}

// PaletteValidator rejects colors and materials outside the fixed sets.
// Empty values are allowed.
type PaletteValidator struct{}

// Validate implements Validator.
func (PaletteValidator) Validate(item *model.Item) error {
	if item.Color != "" && !slices.Contains(model.Colors, item.Color) {
		return &model.ValidationError{Field: "color", Reason: fmt.Sprintf("%q is not a palette color", item.Color)}
	}
	if item.Material != "" && !slices.Contains(model.Materials, item.Material) {
		return &model.ValidationError{Field: "material", Reason: fmt.Sprintf("%q is not a known material", item.Material)}
	}
	return nil
}

// SchemaValidator validates items against a JSON Schema document.
type SchemaValidator struct {
	schema *jsonschema.Resolved
}

// NewSchemaValidator parses a JSON Schema document.
func NewSchemaValidator(data []byte) (*SchemaValidator, error) {
	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing item schema: %w", err)
	}
	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolving item schema: %w", err)
	}
	return &SchemaValidator{schema: resolved}, nil
}

// LoadSchemaValidator reads a schema file. An empty path returns nil.
func LoadSchemaValidator(path string) (*SchemaValidator, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading item schema: %w", err)
	}
	return NewSchemaValidator(data)
}

// Validate implements Validator.
func (v *SchemaValidator) Validate(item *model.Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encoding item: %w", err)
	}
	var instance map[string]any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("decoding item: %w", err)
	}
	if err := v.schema.Validate(instance); err != nil {
		return &model.ValidationError{Reason: err.Error()}
	}
	return nil
}
