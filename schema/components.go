package schema

import (
	"slices"
	"strconv"
)

const (
	// MediaTypeJSON is the default content type of bodies and responses.
	MediaTypeJSON = "application/json"
	// MediaTypeForm is the URL-encoded form content type.
	MediaTypeForm = "application/x-www-form-urlencoded"
)

// Example is a named sample value.
type Example struct {
	Name        string
	Summary     string
	Description string
	Value       any
}

// RequestBody maps request content types to schemas.
type RequestBody struct {
	Name        string
	Description string
	Required    bool
	Content     map[string]*Schema
	Examples    []*Example
}

// JSONBody returns a required request body accepting only application/json.
func JSONBody(name string, s *Schema) *RequestBody {
	return &RequestBody{
		Name:     name,
		Required: true,
		Content:  map[string]*Schema{MediaTypeJSON: s},
	}
}

// ContentTypes returns the declared content types in sorted order.
func (b *RequestBody) ContentTypes() []string {
	if b == nil {
		return nil
	}
	types := make([]string, 0, len(b.Content))
	for ct := range b.Content {
		types = append(types, ct)
	}
	slices.Sort(types)
	return types
}

// Response describes one possible response of a route.
type Response struct {
	Name        string
	Description string
	// ContentType defaults to application/json when Schema is set.
	ContentType string
	Schema      *Schema
	Headers     map[string]string
	Examples    []*Example
}

// MediaType returns the effective content type of the response body.
func (r *Response) MediaType() string {
	if r.ContentType != "" {
		return r.ContentType
	}
	return MediaTypeJSON
}

// Responses maps HTTP status codes to responses.
type Responses map[int]*Response

// Codes returns the status codes in ascending order.
func (r Responses) Codes() []int {
	codes := make([]int, 0, len(r))
	for code := range r {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// StatusKey formats a status code as an OpenAPI responses key.
func StatusKey(code int) string {
	return strconv.Itoa(code)
}
