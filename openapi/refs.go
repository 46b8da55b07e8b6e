package openapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gaborage/routekit/route"
	"github.com/gaborage/routekit/schema"
)

// ErrUnknownComponent is returned when an object outside the component set
// (schema, response, parameter, example, request body) is referenced.
var ErrUnknownComponent = errors.New("unknown component type")

// Component table names.
const (
	TableSchemas       = "schemas"
	TableResponses     = "responses"
	TableParameters    = "parameters"
	TableExamples      = "examples"
	TableRequestBodies = "requestBodies"
	TableHeaders       = "headers"
)

// Escape escapes a component name for use as a JSON pointer segment.
func Escape(name string) string {
	return strings.ReplaceAll(strings.ReplaceAll(name, "~", "~0"), "/", "~1")
}

// Unescape reverses Escape.
func Unescape(escaped string) string {
	return strings.ReplaceAll(strings.ReplaceAll(escaped, "~1", "/"), "~0", "~")
}

// RefPath builds a $ref value for an escaped name.
func RefPath(table, escaped string) string {
	return "#/components/" + table + "/" + escaped
}

type table struct {
	entries map[string]any
	byObj   map[any]string
}

// refs registers components into a document, once per object identity.
type refs struct {
	tables map[string]*table
	// patterns supplies inline path constraints while a route is emitted.
	patterns func(name string) string
}

func newRefs(doc *Document) *refs {
	newTable := func(entries map[string]any) *table {
		return &table{entries: entries, byObj: map[any]string{}}
	}
	return &refs{tables: map[string]*table{
		TableSchemas:       newTable(doc.Components.Schemas),
		TableResponses:     newTable(doc.Components.Responses),
		TableParameters:    newTable(doc.Components.Parameters),
		TableExamples:      newTable(doc.Components.Examples),
		TableRequestBodies: newTable(doc.Components.RequestBodies),
	}}
}

// ref registers obj if it is new and returns its $ref value.
func (r *refs) ref(obj any) (string, error) {
	var (
		tableName string
		name      string
		describe  func() (any, error)
	)

	switch o := obj.(type) {
	case *schema.Schema:
		if o == nil {
			return "", fmt.Errorf("%w: nil schema", ErrUnknownComponent)
		}
		tableName, name = TableSchemas, nameOr(o.Name, "schema")
		describe = func() (any, error) { return r.describeSchema(o), nil }
	case *schema.Response:
		if o == nil {
			return "", fmt.Errorf("%w: nil response", ErrUnknownComponent)
		}
		tableName, name = TableResponses, nameOr(o.Name, "response")
		describe = func() (any, error) { return r.describeResponse(o) }
	case *route.Parameter:
		if o == nil {
			return "", fmt.Errorf("%w: nil parameter", ErrUnknownComponent)
		}
		tableName, name = TableParameters, o.ComponentName()
		describe = func() (any, error) { return r.describeParameter(o) }
	case *schema.Example:
		if o == nil {
			return "", fmt.Errorf("%w: nil example", ErrUnknownComponent)
		}
		tableName, name = TableExamples, nameOr(o.Name, "example")
		describe = func() (any, error) { return describeExample(o), nil }
	case *schema.RequestBody:
		if o == nil {
			return "", fmt.Errorf("%w: nil request body", ErrUnknownComponent)
		}
		tableName, name = TableRequestBodies, nameOr(o.Name, "body")
		describe = func() (any, error) { return r.describeRequestBody(o) }
	default:
		return "", fmt.Errorf("%w: %T", ErrUnknownComponent, obj)
	}

	t := r.tables[tableName]
	if escaped, ok := t.byObj[obj]; ok {
		return RefPath(tableName, escaped), nil
	}

	escaped := Escape(name)
	for i := 2; ; i++ {
		if _, taken := t.entries[escaped]; !taken {
			break
		}
		escaped = Escape(fmt.Sprintf("%s_%d", name, i))
	}

	// reserved before describing so self references resolve
	t.entries[escaped] = nil
	t.byObj[obj] = escaped

	def, err := describe()
	if err != nil {
		delete(t.entries, escaped)
		delete(t.byObj, obj)
		return "", err
	}
	t.entries[escaped] = def
	return RefPath(tableName, escaped), nil
}

func nameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

func (r *refs) describeSchema(s *schema.Schema) map[string]any {
	doc := s.Document()
	if _, ok := doc["description"]; !ok && s.Description != "" {
		doc["description"] = s.Description
	}
	return doc
}

func (r *refs) describeResponse(resp *schema.Response) (any, error) {
	desc := resp.Description
	if desc == "" {
		desc = "Response"
	}
	out := map[string]any{"description": desc}

	if resp.Schema != nil {
		ref, err := r.ref(resp.Schema)
		if err != nil {
			return nil, err
		}
		media := map[string]any{"schema": Ref{Ref: ref}}
		if len(resp.Examples) > 0 {
			examples, err := r.examples(resp.Examples)
			if err != nil {
				return nil, err
			}
			media["examples"] = examples
		}
		out["content"] = map[string]any{resp.MediaType(): media}
	}

	headers := map[string]any{
		requestIDHeader: Ref{Ref: RefPath(TableHeaders, requestIDHeader)},
	}
	for name, desc := range resp.Headers {
		headers[name] = map[string]any{
			"description": desc,
			"schema":      map[string]any{"type": "string"},
		}
	}
	out["headers"] = headers
	return out, nil
}

func (r *refs) describeParameter(p *route.Parameter) (any, error) {
	pattern := ""
	if p.In == route.InPath && r.patterns != nil {
		pattern = r.patterns(p.Name)
	}
	out := map[string]any{
		"name":     p.Name,
		"in":       string(p.In),
		"required": p.In == route.InPath || p.Required,
		"schema":   p.Schema(pattern),
	}
	if p.Description != "" {
		out["description"] = p.Description
	}
	if p.Deprecated {
		out["deprecated"] = true
	}
	if p.Example != nil {
		examples, err := r.examples([]*schema.Example{p.Example})
		if err != nil {
			return nil, err
		}
		out["examples"] = examples
	}
	return out, nil
}

func describeExample(ex *schema.Example) map[string]any {
	out := map[string]any{"value": ex.Value}
	if ex.Summary != "" {
		out["summary"] = ex.Summary
	}
	if ex.Description != "" {
		out["description"] = ex.Description
	}
	return out
}

func (r *refs) describeRequestBody(b *schema.RequestBody) (any, error) {
	content := map[string]any{}
	for _, ct := range b.ContentTypes() {
		media := map[string]any{}
		if s := b.Content[ct]; s != nil {
			ref, err := r.ref(s)
			if err != nil {
				return nil, err
			}
			media["schema"] = Ref{Ref: ref}
		}
		if len(b.Examples) > 0 {
			examples, err := r.examples(b.Examples)
			if err != nil {
				return nil, err
			}
			media["examples"] = examples
		}
		content[ct] = media
	}

	out := map[string]any{"content": content, "required": b.Required}
	if b.Description != "" {
		out["description"] = b.Description
	}
	return out, nil
}

func (r *refs) examples(list []*schema.Example) (map[string]any, error) {
	out := make(map[string]any, len(list))
	for i, ex := range list {
		ref, err := r.ref(ex)
		if err != nil {
			return nil, err
		}
		key := ex.Name
		if key == "" {
			key = fmt.Sprintf("example%d", i+1)
		}
		out[key] = Ref{Ref: ref}
	}
	return out, nil
}

const requestIDHeader = "X-Request-ID"

func defaultHeaders() map[string]any {
	return map[string]any{
		requestIDHeader: map[string]any{
			"description": "Identifier of the request, echoed from the client or generated",
			"schema":      map[string]any{"type": "string"},
		},
	}
}

// defaultResponse is referenced by operations that declare no responses.
var defaultResponse = &schema.Response{Name: "default", Description: http.StatusText(http.StatusOK)}
