package route

import (
	"fmt"
	"regexp"

	"github.com/gaborage/routekit/schema"
)

// Parameter describes one input value of a route. Parameters are built at
// registration time and must not be modified once the registry is built.
type Parameter struct {
	Name        string
	In          Location
	Type        Type
	Description string
	// Required is ignored for path parameters; their requiredness follows
	// from the path template.
	Required   bool
	Default    any
	Deprecated bool
	Example    *schema.Example
	// Pattern is an extra anchored regular expression the raw value must
	// match. Inline template constraints take precedence for path params.
	Pattern string
	// RefName overrides the component name in the generated document.
	RefName string
}

// PathParam declares a path parameter.
func PathParam(name string, t Type) *Parameter {
	return &Parameter{Name: name, In: InPath, Type: t}
}

// QueryParam declares an optional query parameter.
func QueryParam(name string, t Type) *Parameter {
	return &Parameter{Name: name, In: InQuery, Type: t}
}

// HeaderParam declares an optional header parameter.
func HeaderParam(name string, t Type) *Parameter {
	return &Parameter{Name: name, In: InHeader, Type: t}
}

// WithDefault sets the default value used when the parameter is absent.
func (p *Parameter) WithDefault(v any) *Parameter {
	p.Default = v
	return p
}

// AsRequired marks the parameter required.
func (p *Parameter) AsRequired() *Parameter {
	p.Required = true
	return p
}

// Describe sets the description.
func (p *Parameter) Describe(desc string) *Parameter {
	p.Description = desc
	return p
}

// Key identifies the parameter within a route.
func (p *Parameter) Key() string {
	return string(p.In) + ":" + p.Name
}

// ComponentName is the preferred name in the parameters components table.
func (p *Parameter) ComponentName() string {
	if p.RefName != "" {
		return p.RefName
	}
	return string(p.In) + "." + p.Name
}

// Check reports declaration mistakes.
func (p *Parameter) Check() error {
	switch {
	case p.Name == "":
		return fmt.Errorf("parameter without name")
	case !p.In.Valid():
		return fmt.Errorf("parameter %q: unknown location %q", p.Name, p.In)
	case !p.Type.Valid():
		return fmt.Errorf("parameter %q: unknown type %q", p.Name, p.Type)
	case p.Required && p.Default != nil:
		return fmt.Errorf("parameter %q: required and default are exclusive", p.Name)
	}
	if p.Pattern != "" {
		if _, err := compileAnchored(p.Pattern); err != nil {
			return fmt.Errorf("parameter %q: invalid pattern: %w", p.Name, err)
		}
	}
	return nil
}

// Schema returns the OpenAPI schema of the parameter value. pattern, or the
// parameter's own pattern, is anchored the way values are matched and only
// applies to string schemas.
func (p *Parameter) Schema(pattern string) map[string]any {
	s := p.Type.Schema()
	if pattern == "" {
		pattern = p.Pattern
	}
	if pattern != "" && s["type"] == "string" {
		s["pattern"] = anchored(pattern)
	}
	if p.Default != nil {
		s["default"] = p.Default
	}
	return s
}

func anchored(pattern string) string {
	return "^(?:" + pattern + ")$"
}

func compileAnchored(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(anchored(pattern))
}
