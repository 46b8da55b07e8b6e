package route

import (
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strings"

	"github.com/gaborage/routekit/schema"
)

// Descriptor is the declarative metadata of one handler entry point.
type Descriptor struct {
	// Name identifies the handler entry point (e.g. "catalog.getCourse").
	Name        string
	Path        string
	Methods     []string
	Params      []*Parameter
	RequestBody *schema.RequestBody
	Responses   schema.Responses
	Tags        []string
	Security    []string
	Deprecated  bool
	Summary     string
	Description string
	OperationID string
	// Capability is checked by the auth collaborator before validation.
	Capability string
	Parent     *Descriptor
}

// Option configures a Descriptor.
type Option func(*Descriptor)

// New creates a descriptor for path.
func New(name, path string, opts ...Option) *Descriptor {
	d := &Descriptor{Name: name, Path: path}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// WithMethods sets the HTTP verbs. Routes without verbs answer GET.
func WithMethods(methods ...string) Option {
	return func(d *Descriptor) {
		d.Methods = append(d.Methods, methods...)
	}
}

// WithParams appends parameters.
func WithParams(params ...*Parameter) Option {
	return func(d *Descriptor) {
		d.Params = append(d.Params, params...)
	}
}

// WithBody sets the request body.
func WithBody(body *schema.RequestBody) Option {
	return func(d *Descriptor) {
		d.RequestBody = body
	}
}

// WithResponse declares the response for a status code.
func WithResponse(code int, resp *schema.Response) Option {
	return func(d *Descriptor) {
		if d.Responses == nil {
			d.Responses = schema.Responses{}
		}
		d.Responses[code] = resp
	}
}

// WithTags adds tags for grouping.
func WithTags(tags ...string) Option {
	return func(d *Descriptor) {
		d.Tags = append(d.Tags, tags...)
	}
}

// WithSecurity names the security schemes the route requires.
func WithSecurity(schemes ...string) Option {
	return func(d *Descriptor) {
		d.Security = append(d.Security, schemes...)
	}
}

// WithSummary sets the operation summary.
func WithSummary(summary string) Option {
	return func(d *Descriptor) {
		d.Summary = summary
	}
}

// WithDescription sets the operation description.
func WithDescription(description string) Option {
	return func(d *Descriptor) {
		d.Description = description
	}
}

// WithOperationID sets an explicit operation id.
func WithOperationID(id string) Option {
	return func(d *Descriptor) {
		d.OperationID = id
	}
}

// WithCapability gates the route behind a capability.
func WithCapability(capability string) Option {
	return func(d *Descriptor) {
		d.Capability = capability
	}
}

// WithParent composes the route under parent.
func WithParent(parent *Descriptor) Option {
	return func(d *Descriptor) {
		d.Parent = parent
	}
}

// AsDeprecated flags the route deprecated.
func AsDeprecated() Option {
	return func(d *Descriptor) {
		d.Deprecated = true
	}
}

// ConfigError is a route declaration mistake detected while resolving.
type ConfigError struct {
	Route   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("route %s: %s", e.Route, e.Message)
}

func configErrorf(route, format string, args ...any) *ConfigError {
	return &ConfigError{Route: route, Message: fmt.Sprintf(format, args...)}
}

// Resolved is a descriptor merged with its parent chain and checked.
type Resolved struct {
	Descriptor  *Descriptor
	Template    *Template
	Methods     []string
	Params      []*Parameter
	RequestBody *schema.RequestBody
	Responses   schema.Responses
	Tags        []string
	Security    []string
	Deprecated  bool
	Capability  string
	// Paths are the concrete paths of the template, longest first.
	Paths []string

	patterns map[string]*regexp.Regexp
}

const maxParentDepth = 32

// Resolve merges d with its parents (parent first, child wins) and checks
// the result. Placeholders without a declared parameter get an implicit raw
// path parameter.
func Resolve(d *Descriptor) (*Resolved, error) {
	if d == nil {
		return nil, fmt.Errorf("nil route descriptor")
	}
	id := d.Name
	if id == "" {
		id = d.Path
	}

	chain := []*Descriptor{}
	for cur := d; cur != nil; cur = cur.Parent {
		if len(chain) == maxParentDepth || slices.Contains(chain, cur) {
			return nil, configErrorf(id, "parent chain is cyclic or too deep")
		}
		chain = append(chain, cur)
	}
	slices.Reverse(chain)

	r := &Resolved{Descriptor: d, Responses: schema.Responses{}, patterns: map[string]*regexp.Regexp{}}
	var path strings.Builder
	paramIndex := map[string]int{}

	for _, cur := range chain {
		path.WriteString(cur.Path)
		for _, m := range cur.Methods {
			m = strings.ToUpper(m)
			if !slices.Contains(r.Methods, m) {
				r.Methods = append(r.Methods, m)
			}
		}
		for _, p := range cur.Params {
			if p == nil {
				return nil, configErrorf(id, "nil parameter")
			}
			if i, ok := paramIndex[p.Key()]; ok {
				r.Params[i] = p
				continue
			}
			paramIndex[p.Key()] = len(r.Params)
			r.Params = append(r.Params, p)
		}
		if cur.RequestBody != nil {
			r.RequestBody = cur.RequestBody
		}
		for code, resp := range cur.Responses {
			r.Responses[code] = resp
		}
		for _, tag := range cur.Tags {
			if !slices.Contains(r.Tags, tag) {
				r.Tags = append(r.Tags, tag)
			}
		}
		if cur.Security != nil {
			r.Security = cur.Security
		}
		if cur.Capability != "" {
			r.Capability = cur.Capability
		}
		r.Deprecated = r.Deprecated || cur.Deprecated
	}

	if len(r.Methods) == 0 {
		r.Methods = []string{http.MethodGet}
	}

	tmpl, err := ParseTemplate(path.String())
	if err != nil {
		return nil, configErrorf(id, "%v", err)
	}
	r.Template = tmpl
	r.Paths = tmpl.Expand()

	if err := r.check(id, paramIndex); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Resolved) check(id string, paramIndex map[string]int) error {
	required := 0
	for _, p := range r.Params {
		if err := p.Check(); err != nil {
			return configErrorf(id, "%v", err)
		}
		if p.Pattern != "" {
			re, _ := compileAnchored(p.Pattern)
			r.patterns[p.Key()] = re
		}
		if p.In != InPath {
			continue
		}
		ph, ok := r.Template.Placeholder(p.Name)
		if !ok {
			return configErrorf(id, "path parameter %q has no placeholder in %q", p.Name, r.Template)
		}
		if p.Default != nil {
			return configErrorf(id, "path parameter %q cannot have a default", p.Name)
		}
		if !ph.Optional {
			required++
		}
	}

	placeholders := r.Template.Placeholders()
	if required > len(placeholders) {
		return configErrorf(id, "%d required path parameters but %d placeholders", required, len(placeholders))
	}

	for _, ph := range placeholders {
		if _, ok := paramIndex[string(InPath)+":"+ph.Name]; !ok {
			r.Params = append(r.Params, &Parameter{Name: ph.Name, In: InPath, Type: TypeRaw})
		}
	}

	for _, m := range r.Methods {
		if !validMethod(m) {
			return configErrorf(id, "unsupported method %q", m)
		}
	}
	return nil
}

func validMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

// Name returns the handler entry point name.
func (r *Resolved) Name() string { return r.Descriptor.Name }

// ParamsIn returns the parameters declared for a location, in order.
func (r *Resolved) ParamsIn(in Location) []*Parameter {
	var out []*Parameter
	for _, p := range r.Params {
		if p.In == in {
			out = append(out, p)
		}
	}
	return out
}

// PathRequired reports whether the path parameter is required, meaning its
// placeholder is not inside an optional segment.
func (r *Resolved) PathRequired(name string) bool {
	ph, ok := r.Template.Placeholder(name)
	return ok && !ph.Optional
}

// Match checks a raw path or query value against the inline template
// constraint and the parameter's own pattern.
func (r *Resolved) Match(p *Parameter, raw string) bool {
	if p.In == InPath {
		if ph, ok := r.Template.Placeholder(p.Name); ok && !ph.Match(raw) {
			return false
		}
	}
	if re := r.patterns[p.Key()]; re != nil && !re.MatchString(raw) {
		return false
	}
	return true
}

// PathPattern returns the inline constraint of a path parameter, if any.
func (r *Resolved) PathPattern(name string) string {
	ph, _ := r.Template.Placeholder(name)
	return ph.Pattern
}
