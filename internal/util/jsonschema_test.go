package util

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type weatherArgs struct {
	City  string    `json:"city" jsonschema:"description=City name"`
	Units string    `json:"units,omitempty" jsonschema:"enum=metric,enum=imperial"`
	Near  *location `json:"near,omitempty"`
}

func TestGenerateJSONSchema(t *testing.T) {
	raw, err := GenerateJSONSchema(&weatherArgs{})
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &schema))

	assert.Equal(t, "object", schema["type"])
	assert.NotContains(t, schema, "$schema")
	assert.NotContains(t, schema, "$id")
	assert.NotContains(t, schema, "$ref")
	assert.NotContains(t, schema, "$defs")

	props := schema["properties"].(map[string]any)
	assert.Contains(t, props, "city")
	assert.Contains(t, props, "units")
	assert.Equal(t, "City name", props["city"].(map[string]any)["description"])
	near := props["near"].(map[string]any)
	assert.Equal(t, "object", near["type"])
	assert.Equal(t, []any{"city"}, schema["required"])
}

func TestIsStringType(t *testing.T) {
	assert.True(t, IsStringType[string]())
	assert.False(t, IsStringType[int]())
	assert.False(t, IsStringType[map[string]any]())
}
