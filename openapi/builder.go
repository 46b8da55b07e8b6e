package openapi

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gaborage/routekit/route"
	"github.com/gaborage/routekit/schema"
)

// BearerScheme is the security scheme name used for JWT bearer auth.
const BearerScheme = "bearerAuth"

// Options holds document-level metadata.
type Options struct {
	Title        string
	Version      string
	Description  string
	Servers      []string
	ExternalDocs ExternalDocs
	// BearerAuth registers a JWT bearer security scheme; routes gated by a
	// capability reference it unless they declare their own security.
	BearerAuth bool
}

// Builder generates documents from registries. It keeps no state between
// builds.
type Builder struct {
	opts Options
}

// NewBuilder creates a Builder.
func NewBuilder(opts Options) *Builder {
	return &Builder{opts: opts}
}

// Build generates the document for every route of reg.
func (b *Builder) Build(reg *route.Registry) (*Document, error) {
	doc := newDocument()
	doc.Info = Info{Title: b.opts.Title, Version: b.opts.Version, Description: b.opts.Description}
	for _, url := range b.opts.Servers {
		doc.Servers = append(doc.Servers, Server{URL: url})
	}
	doc.ExternalDocs = b.opts.ExternalDocs
	doc.Components.Headers = defaultHeaders()
	if b.opts.BearerAuth {
		doc.Components.SecuritySchemes[BearerScheme] = map[string]any{
			"type":         "http",
			"scheme":       "bearer",
			"bearerFormat": "JWT",
		}
	}

	r := newRefs(doc)
	for _, rt := range reg.Routes() {
		if err := b.addRoute(doc, r, rt); err != nil {
			return nil, fmt.Errorf("route %s: %w", rt.Template, err)
		}
	}
	return doc, nil
}

func (b *Builder) addRoute(doc *Document, r *refs, rt *route.Resolved) error {
	r.patterns = rt.PathPattern
	defer func() { r.patterns = nil }()

	for variant, path := range rt.Paths {
		item := doc.Paths[path]
		if item == nil {
			item = PathItem{}
			doc.Paths[path] = item
		}

		for _, method := range rt.Methods {
			op, err := b.operation(r, rt, method, path, variant)
			if err != nil {
				return err
			}
			item[strings.ToLower(method)] = op
		}
	}
	return nil
}

func (b *Builder) operation(r *refs, rt *route.Resolved, method, path string, variant int) (*Operation, error) {
	d := rt.Descriptor
	op := &Operation{
		OperationID: operationID(rt, method, path, variant),
		Summary:     d.Summary,
		Description: d.Description,
		Tags:        rt.Tags,
		Deprecated:  rt.Deprecated,
		Responses:   map[string]Ref{},
	}

	for _, p := range rt.Params {
		switch {
		case p.In == route.InBody:
			continue
		case p.In == route.InPath && !route.Contains(path, p.Name):
			continue
		}
		ref, err := r.ref(p)
		if err != nil {
			return nil, err
		}
		op.Parameters = append(op.Parameters, Ref{Ref: ref})
	}

	if rt.RequestBody != nil {
		ref, err := r.ref(rt.RequestBody)
		if err != nil {
			return nil, err
		}
		op.RequestBody = &Ref{Ref: ref}
	}

	responses := rt.Responses
	if len(responses) == 0 {
		responses = schema.Responses{200: defaultResponse}
	}
	for _, code := range responses.Codes() {
		ref, err := r.ref(responses[code])
		if err != nil {
			return nil, err
		}
		op.Responses[schema.StatusKey(code)] = Ref{Ref: ref}
	}

	switch {
	case len(rt.Security) > 0:
		for _, scheme := range rt.Security {
			op.Security = append(op.Security, map[string][]string{scheme: {}})
		}
	case b.opts.BearerAuth && rt.Capability != "":
		op.Security = []map[string][]string{{BearerScheme: {}}}
	}
	return op, nil
}

var nonWord = regexp.MustCompile(`[^A-Za-z0-9]+`)

// operationID derives "get_course_id_section" style ids. Explicit ids are
// kept for the full path and suffixed for truncated variants; routes with
// several methods add the method.
func operationID(rt *route.Resolved, method, path string, variant int) string {
	id := rt.Descriptor.OperationID
	if id == "" {
		slug := strings.Trim(nonWord.ReplaceAllString(path, "_"), "_")
		if slug == "" {
			slug = "root"
		}
		return strings.ToLower(method) + "_" + slug
	}
	if len(rt.Methods) > 1 {
		id += "_" + strings.ToLower(method)
	}
	if variant > 0 {
		id = fmt.Sprintf("%s_%d", id, variant)
	}
	return id
}
