package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"time"
)

// Item is one wardrobe record. Keys that are not struct fields are kept in
// Extra and written back next to the known fields.
type Item struct {
	ID           int64     `json:"id"`
	Type         string    `json:"type,omitempty"`
	Color        string    `json:"color,omitempty"`
	Material     string    `json:"material,omitempty"`
	Confidence   float64   `json:"confidence,omitempty"`
	Condition    string    `json:"condition,omitempty"`
	ImagePath    string    `json:"image_path,omitempty"`
	OriginalName string    `json:"original_name,omitempty"`
	Status       string    `json:"status,omitempty"`
	Action       string    `json:"action,omitempty"`
	CreatedAt    time.Time `json:"created_at"`

	Extra map[string]any `json:"-"`
}

// Fields is a partial item as sent by a client or produced by ingestion.
type Fields map[string]any

// knownKeys are the JSON names of the struct fields of Item.
var knownKeys = map[string]bool{
	"id":            true,
	"type":          true,
	"color":         true,
	"material":      true,
	"confidence":    true,
	"condition":     true,
	"image_path":    true,
	"original_name": true,
	"status":        true,
	"action":        true,
	"created_at":    true,
}

// foldedKey returns the known key that k matches case-insensitively, if any.
func foldedKey(k string) (string, bool) {
	if knownKeys[k] {
		return k, true
	}
	for known := range knownKeys {
		if strings.EqualFold(k, known) {
			return known, true
		}
	}
	return "", false
}

// CheckFieldKeys rejects keys that differ from a known field only in case.
// encoding/json would otherwise bind them to the known field.
func CheckFieldKeys(fields Fields) error {
	for k := range fields {
		if known, ok := foldedKey(k); ok && known != k {
			return &ValidationError{Field: k, Reason: fmt.Sprintf("use the lowercase key %q", known)}
		}
	}
	return nil
}

// itemFields is Item without its JSON methods.
type itemFields Item

// MarshalJSON writes the known fields followed by Extra. Extra never
// overrides a known field.
func (it Item) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(itemFields(it))
	if err != nil {
		return nil, err
	}
	if len(it.Extra) == 0 {
		return base, nil
	}

	extra := make(map[string]any, len(it.Extra))
	for k, v := range it.Extra {
		if _, known := foldedKey(k); !known {
			extra[k] = v
		}
	}
	if len(extra) == 0 {
		return base, nil
	}
	tail, err := json.Marshal(extra)
	if err != nil {
		return nil, fmt.Errorf("encoding extra fields: %w", err)
	}

	// Splice the two objects: {known...} + {extra...}.
	var buf bytes.Buffer
	buf.Write(base[:len(base)-1])
	buf.WriteByte(',')
	buf.Write(tail[1:])
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the known fields and collects everything else into Extra.
// Only exact known keys reach the struct; case variants of them are dropped.
func (it *Item) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	known := make(map[string]json.RawMessage, len(raw))
	var extra map[string]any
	for k, v := range raw {
		canonical, ok := foldedKey(k)
		switch {
		case ok && canonical == k:
			known[k] = v
		case ok:
			continue
		default:
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return fmt.Errorf("decoding field %q: %w", k, err)
			}
			if extra == nil {
				extra = make(map[string]any)
			}
			extra[k] = val
		}
	}

	data, err := json.Marshal(known)
	if err != nil {
		return err
	}
	var f itemFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	f.Extra = extra

	*it = Item(f)
	return nil
}

// Clone returns a deep enough copy that mutating the result's Extra does not
// touch the receiver.
func (it Item) Clone() Item {
	c := it
	if it.Extra != nil {
		c.Extra = maps.Clone(it.Extra)
	}
	return c
}

// Apply shallow-merges fields into the item: keys present in fields replace
// the item's values, everything else is left alone. The id is not touched;
// callers check it before applying.
func (it *Item) Apply(fields Fields) error {
	if len(fields) == 0 {
		return nil
	}
	if err := CheckFieldKeys(fields); err != nil {
		return err
	}

	current, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("encoding item: %w", err)
	}
	merged := map[string]any{}
	if err := json.Unmarshal(current, &merged); err != nil {
		return fmt.Errorf("decoding item: %w", err)
	}
	for k, v := range fields {
		if k == "id" {
			continue
		}
		merged[k] = v
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encoding merged item: %w", err)
	}
	var next Item
	if err := json.Unmarshal(data, &next); err != nil {
		return err
	}
	next.ID = it.ID
	*it = next
	return nil
}

// FieldID extracts an "id" value from fields, reporting whether one was present.
func FieldID(fields Fields) (int64, bool, error) {
	v, ok := fields["id"]
	if !ok {
		return 0, false, nil
	}
	switch id := v.(type) {
	case int:
		return int64(id), true, nil
	case int64:
		return id, true, nil
	case float64:
		if id != float64(int64(id)) {
			return 0, true, fmt.Errorf("id %v is not an integer", id)
		}
		return int64(id), true, nil
	case json.Number:
		n, err := id.Int64()
		return n, true, err
	default:
		return 0, true, fmt.Errorf("id has type %T", v)
	}
}

// Colors is the fixed color palette.
var Colors = []string{
	ColorWhite, ColorBlack, ColorGray, ColorRed, ColorOrange, ColorYellow,
	ColorGreen, ColorCyan, ColorBlue, ColorPurple, ColorPink, ColorUnknown,
}

// Palette colors.
const (
	ColorWhite   = "white"
	ColorBlack   = "black"
	ColorGray    = "gray"
	ColorRed     = "red"
	ColorOrange  = "orange"
	ColorYellow  = "yellow"
	ColorGreen   = "green"
	ColorCyan    = "cyan"
	ColorBlue    = "blue"
	ColorPurple  = "purple"
	ColorPink    = "pink"
	ColorUnknown = "unknown"
)

// Materials is the fixed material set.
var Materials = []string{
	MaterialCotton, MaterialDenim, MaterialWool, MaterialSilk, MaterialLeather, MaterialPolyester,
}

// Materials.
const (
	MaterialCotton    = "cotton"
	MaterialDenim     = "denim"
	MaterialWool      = "wool"
	MaterialSilk      = "silk"
	MaterialLeather   = "leather"
	MaterialPolyester = "polyester"
)

// Conditions. The first three come from image sharpness, the last three from
// classifier confidence when sharpness can't be measured.
const (
	ConditionNew     = "new"
	ConditionWorn    = "worn"
	ConditionDamaged = "damaged"
	ConditionGood    = "good"
	ConditionAverage = "average"
	ConditionPoor    = "poor"
)

// Actions that can be scheduled for an item.
const (
	ActionDonate  = "donate"
	ActionRepair  = "repair"
	ActionUpcycle = "upcycle"
	ActionSell    = "sell"
	ActionRecycle = "recycle"
)

// ValidAction reports whether action can be scheduled.
func ValidAction(action string) bool {
	switch action {
	case ActionDonate, ActionRepair, ActionUpcycle, ActionSell, ActionRecycle:
		return true
	}
	return false
}
