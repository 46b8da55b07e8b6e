package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewBufferString(s))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

func courseSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := New("course", map[string]any{
		"type":        "object",
		"description": "A course",
		"required":    []any{"title"},
		"properties": map[string]any{
			"title":   map[string]any{"type": "string", "minLength": 1},
			"credits": map[string]any{"type": "integer", "minimum": 0},
		},
	})
	require.NoError(t, err)
	return s
}

func TestNewAndValidate(t *testing.T) {
	s := courseSchema(t)
	assert.Equal(t, "course", s.Name)
	assert.Equal(t, "A course", s.Description)

	v := decode(t, `{"title":"Go","credits":3}`)
	out, err := s.Validate(v)
	require.NoError(t, err)
	assert.Equal(t, v, out)
}

func TestValidateReportsPointer(t *testing.T) {
	s := courseSchema(t)

	_, err := s.Validate(decode(t, `{"title":"Go","credits":-1}`))
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "/credits", ve.Pointer)
	assert.NotEmpty(t, ve.Message)
	assert.Contains(t, ve.Error(), "/credits")
}

func TestNewRejectsInvalidSchema(t *testing.T) {
	_, err := New("broken", map[string]any{"type": 12})
	assert.Error(t, err)

	assert.Panics(t, func() { MustNew("broken", map[string]any{"type": 12}) })
}

func TestNilSchemaAcceptsAnything(t *testing.T) {
	var s *Schema
	out, err := s.Validate("x")
	require.NoError(t, err)
	assert.Equal(t, "x", out)
	assert.Empty(t, s.Document())
}

type section struct {
	Title    string `json:"title" jsonschema:"minLength=1"`
	Position int    `json:"position,omitempty"`
}

func TestFromType(t *testing.T) {
	s, err := FromType("section", &section{})
	require.NoError(t, err)

	doc := s.Document()
	assert.Equal(t, "object", doc["type"])
	assert.NotContains(t, doc, "$schema")
	assert.Contains(t, doc["properties"], "title")

	_, err = s.Validate(decode(t, `{"title":""}`))
	assert.Error(t, err)

	_, err = s.Validate(decode(t, `{"title":"Intro","position":2}`))
	assert.NoError(t, err)
}

func TestDocumentIsCopy(t *testing.T) {
	s := courseSchema(t)
	doc := s.Document()
	doc["type"] = "array"
	assert.Equal(t, "object", s.Document()["type"])
}

func TestComponents(t *testing.T) {
	body := JSONBody("course", courseSchema(t))
	body.Content[MediaTypeForm] = nil
	assert.Equal(t, []string{MediaTypeJSON, MediaTypeForm}, body.ContentTypes())
	assert.True(t, body.Required)

	var nilBody *RequestBody
	assert.Nil(t, nilBody.ContentTypes())

	assert.Equal(t, MediaTypeJSON, (&Response{}).MediaType())
	assert.Equal(t, "text/html", (&Response{ContentType: "text/html"}).MediaType())

	rs := Responses{404: {}, 200: {}, 201: {}}
	assert.Equal(t, []int{200, 201, 404}, rs.Codes())
	assert.Equal(t, "404", StatusKey(404))
}
