package util

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// GenerateJSONSchema returns the JSON schema of obj, which should be a pointer to a
// struct. Definitions are inlined and the $schema/$id keywords are dropped since
// function declarations only accept a bare object schema.
func GenerateJSONSchema(obj any) (string, error) {
	r := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: true,
	}
	schema := r.Reflect(obj)
	schema.Version = ""
	schema.ID = ""

	b, err := json.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("marshal schema for %T: %w", obj, err)
	}
	return string(b), nil
}

// IsStringType reports whether T is string for generics handling.
func IsStringType[T any]() bool {
	var zero T
	return reflect.TypeOf(zero) == reflect.TypeOf("")
}
