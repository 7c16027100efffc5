package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemJSONKeepsExtraFields(t *testing.T) {
	in := `{"id":3,"type":"Shirt","color":"blue","brand":"Acme","tags":["work","summer"],"created_at":"2026-01-02T03:04:05Z"}`

	var item Item
	require.NoError(t, json.Unmarshal([]byte(in), &item))

	assert.Equal(t, int64(3), item.ID)
	assert.Equal(t, "Shirt", item.Type)
	assert.Equal(t, "Acme", item.Extra["brand"])
	assert.Equal(t, []any{"work", "summer"}, item.Extra["tags"])
	assert.NotContains(t, item.Extra, "color")

	out, err := json.Marshal(item)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestItemMarshalExtraCannotShadowKnownField(t *testing.T) {
	item := Item{ID: 1, Color: "red", Extra: map[string]any{"color": "green", "id": 99}}

	out, err := json.Marshal(item)
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, "red", back["color"])
	assert.Equal(t, float64(1), back["id"])
}

func TestItemApplyOverwritesOnlyGivenFields(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	item := Item{
		ID:        7,
		Type:      "Jeans",
		Color:     "blue",
		Material:  "denim",
		ImagePath: "data/images/a.jpg",
		CreatedAt: created,
		Extra:     map[string]any{"size": "M"},
	}

	require.NoError(t, item.Apply(Fields{"color": "red", "status": "donated", "note": "faded"}))

	assert.Equal(t, int64(7), item.ID)
	assert.Equal(t, "red", item.Color)
	assert.Equal(t, "donated", item.Status)
	assert.Equal(t, "Jeans", item.Type)
	assert.Equal(t, "denim", item.Material)
	assert.Equal(t, "data/images/a.jpg", item.ImagePath)
	assert.True(t, created.Equal(item.CreatedAt))
	assert.Equal(t, "M", item.Extra["size"])
	assert.Equal(t, "faded", item.Extra["note"])
}

func TestItemApplyIgnoresID(t *testing.T) {
	item := Item{ID: 2}
	require.NoError(t, item.Apply(Fields{"id": 40, "type": "Hat"}))
	assert.Equal(t, int64(2), item.ID)
	assert.Equal(t, "Hat", item.Type)
}

func TestItemApplyRejectsWrongType(t *testing.T) {
	item := Item{ID: 2, Color: "red"}
	err := item.Apply(Fields{"color": 12})
	require.Error(t, err)
	assert.Equal(t, "red", item.Color, "failed apply must leave the item untouched")
}

func TestItemCloneCopiesExtra(t *testing.T) {
	item := Item{ID: 1, Extra: map[string]any{"a": "b"}}
	c := item.Clone()
	c.Extra["a"] = "changed"
	assert.Equal(t, "b", item.Extra["a"])
}

func TestFieldID(t *testing.T) {
	id, ok, err := FieldID(Fields{"id": float64(5)})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(5), id)

	_, ok, err = FieldID(Fields{"type": "Coat"})
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = FieldID(Fields{"id": 1.5})
	assert.True(t, ok)
	assert.Error(t, err)

	_, _, err = FieldID(Fields{"id": "five"})
	assert.Error(t, err)
}

func TestItemUnmarshalIgnoresCaseVariantKeys(t *testing.T) {
	var item Item
	require.NoError(t, json.Unmarshal([]byte(`{"id":3,"color":"blue","Color":"red","IMAGE_PATH":"/etc/passwd","size":"L"}`), &item))

	assert.Equal(t, "blue", item.Color)
	assert.Empty(t, item.ImagePath)
	assert.Equal(t, map[string]any{"size": "L"}, item.Extra)

	require.NoError(t, json.Unmarshal([]byte(`{"id":3,"Color":"red"}`), &item))
	assert.Empty(t, item.Color)
	assert.Nil(t, item.Extra)
}

func TestItemMarshalSkipsCaseVariantExtra(t *testing.T) {
	item := Item{ID: 1, Color: "blue", Extra: map[string]any{"Color": "red", "note": "x"}}
	data, err := json.Marshal(item)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Color")
	assert.Contains(t, string(data), `"note":"x"`)

	var back Item
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "blue", back.Color)
}

func TestItemApplyRejectsCaseVariantKeys(t *testing.T) {
	item := Item{ID: 2, ImagePath: "data/images/a.jpg"}
	err := item.Apply(Fields{"Image_Path": "data/images/b.jpg"})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Image_Path", verr.Field)
	assert.Equal(t, "data/images/a.jpg", item.ImagePath)
	assert.Nil(t, item.Extra)
}

func TestCheckFieldKeys(t *testing.T) {
	assert.NoError(t, CheckFieldKeys(nil))
	assert.NoError(t, CheckFieldKeys(Fields{"color": "red", "size": "M", "Size": "L"}))
	assert.Error(t, CheckFieldKeys(Fields{"STATUS": "donated"}))
	assert.Error(t, CheckFieldKeys(Fields{"Created_At": "2026-01-01T00:00:00Z"}))
}
