// Package openapi derives an OpenAPI 3.1 document from the route registry.
//
// Every parameter, response, example, request body and schema is emitted
// once into its components table and referenced with $ref everywhere else.
// Templates with optional trailing segments are expanded into one path entry
// per meaningful prefix.
package openapi

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Version is the OpenAPI version of generated documents.
const Version = "3.1.0"

// Document is a generated OpenAPI document.
type Document struct {
	OpenAPI      string                `json:"openapi" yaml:"openapi"`
	Info         Info                  `json:"info" yaml:"info"`
	Servers      []Server              `json:"servers" yaml:"servers"`
	Paths        map[string]PathItem   `json:"paths" yaml:"paths"`
	Components   Components            `json:"components" yaml:"components"`
	Security     []map[string][]string `json:"security" yaml:"security"`
	ExternalDocs ExternalDocs          `json:"externalDocs" yaml:"externalDocs"`
}

// Info is the document metadata.
type Info struct {
	Title       string `json:"title" yaml:"title"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Server is a base URL the API is reachable at.
type Server struct {
	URL string `json:"url" yaml:"url"`
}

// ExternalDocs points to further documentation.
type ExternalDocs struct {
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// PathItem maps lowercase HTTP methods to operations.
type PathItem map[string]*Operation

// Operation describes one method on one path.
type Operation struct {
	OperationID string                `json:"operationId" yaml:"operationId"`
	Summary     string                `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string                `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string              `json:"tags,omitempty" yaml:"tags,omitempty"`
	Parameters  []Ref                 `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RequestBody *Ref                  `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   map[string]Ref        `json:"responses" yaml:"responses"`
	Deprecated  bool                  `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Security    []map[string][]string `json:"security,omitempty" yaml:"security,omitempty"`
}

// Ref is a JSON reference into the components.
type Ref struct {
	Ref string `json:"$ref" yaml:"$ref"`
}

// Components holds the reference tables. All tables are always present.
type Components struct {
	Schemas         map[string]any `json:"schemas" yaml:"schemas"`
	Responses       map[string]any `json:"responses" yaml:"responses"`
	Parameters      map[string]any `json:"parameters" yaml:"parameters"`
	Examples        map[string]any `json:"examples" yaml:"examples"`
	RequestBodies   map[string]any `json:"requestBodies" yaml:"requestBodies"`
	Headers         map[string]any `json:"headers" yaml:"headers"`
	SecuritySchemes map[string]any `json:"securitySchemes" yaml:"securitySchemes"`
}

func newDocument() *Document {
	return &Document{
		OpenAPI: Version,
		Servers: []Server{},
		Paths:   map[string]PathItem{},
		Components: Components{
			Schemas:         map[string]any{},
			Responses:       map[string]any{},
			Parameters:      map[string]any{},
			Examples:        map[string]any{},
			RequestBodies:   map[string]any{},
			Headers:         map[string]any{},
			SecuritySchemes: map[string]any{},
		},
		Security: []map[string][]string{},
	}
}

// JSON encodes the document.
func (d *Document) JSON() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode openapi json: %w", err)
	}
	return data, nil
}

// YAML encodes the document.
func (d *Document) YAML() ([]byte, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode openapi yaml: %w", err)
	}
	return data, nil
}
