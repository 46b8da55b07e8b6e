// Package schema holds the component objects shared between request
// validation and the generated OpenAPI document: JSON schemas, request
// bodies, responses and examples. Objects are built once at registration
// time and referenced by pointer afterwards; the pointer is their identity.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	reflectschema "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const resourceURL = "schema.json"

// Schema is a named JSON Schema document with its compiled validator.
type Schema struct {
	Name        string
	Description string

	doc      map[string]any
	compiled *jsonschema.Schema
}

// New compiles doc into a Schema. Name is the preferred component name in
// the generated document and may be empty.
func New(name string, doc map[string]any) (*Schema, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("schema %q: marshal: %w", name, err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resourceURL, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("schema %q: add resource: %w", name, err)
	}
	compiled, err := compiler.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("schema %q: compile: %w", name, err)
	}

	var normalized map[string]any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return nil, fmt.Errorf("schema %q: normalize: %w", name, err)
	}
	delete(normalized, "$schema")
	delete(normalized, "$id")

	s := &Schema{Name: name, doc: normalized, compiled: compiled}
	if d, ok := normalized["description"].(string); ok {
		s.Description = d
	}
	return s, nil
}

// MustNew is like New but panics on error. Intended for package-level route
// declarations.
func MustNew(name string, doc map[string]any) *Schema {
	s, err := New(name, doc)
	if err != nil {
		panic(err)
	}
	return s
}

// FromType reflects a JSON schema from the Go type of v. Struct tags follow
// invopop/jsonschema conventions (json, jsonschema).
func FromType(name string, v any) (*Schema, error) {
	r := &reflectschema.Reflector{DoNotReference: true, Anonymous: true}
	reflected := r.Reflect(v)

	raw, err := json.Marshal(reflected)
	if err != nil {
		return nil, fmt.Errorf("schema %q: marshal reflected: %w", name, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("schema %q: decode reflected: %w", name, err)
	}
	return New(name, doc)
}

// MustFromType is like FromType but panics on error.
func MustFromType(name string, v any) *Schema {
	s, err := FromType(name, v)
	if err != nil {
		panic(err)
	}
	return s
}

// Document returns a copy of the schema's JSON document, without $schema
// and $id, suitable for embedding into an OpenAPI document.
func (s *Schema) Document() map[string]any {
	if s == nil {
		return map[string]any{}
	}
	return maps.Clone(s.doc)
}

// Validate checks v against the schema and returns v on success. v must be
// shaped like the output of encoding/json (maps, slices, json.Number or
// float64, strings, bools, nil).
func (s *Schema) Validate(v any) (any, error) {
	if s == nil || s.compiled == nil {
		return v, nil
	}
	if err := s.compiled.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return nil, newValidationError(ve)
		}
		return nil, fmt.Errorf("schema validation: %w", err)
	}
	return v, nil
}

// ValidationError locates the first failing instance in a validated value.
type ValidationError struct {
	// Pointer is the JSON pointer of the offending value ("" for the root).
	Pointer string
	Message string
	cause   error
}

func (e *ValidationError) Error() string {
	if e.Pointer == "" {
		return e.Message
	}
	return e.Pointer + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return e.cause }

func newValidationError(ve *jsonschema.ValidationError) *ValidationError {
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	return &ValidationError{
		Pointer: leaf.InstanceLocation,
		Message: leaf.Message,
		cause:   ve,
	}
}
