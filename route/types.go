// Package route models declared routes: typed parameters, path templates
// with inline constraints and optional trailing segments, descriptors with
// parent composition, and the process-wide registry.
package route

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Location is where a parameter value is carried.
type Location string

const (
	InPath   Location = "path"
	InQuery  Location = "query"
	InHeader Location = "header"
	InBody   Location = "body"
)

// Valid reports whether l is a known location.
func (l Location) Valid() bool {
	switch l {
	case InPath, InQuery, InHeader, InBody:
		return true
	}
	return false
}

// Type is the semantic type of a parameter value.
type Type string

const (
	TypeInt      Type = "int"
	TypeFloat    Type = "float"
	TypeBool     Type = "bool"
	TypeAlpha    Type = "alpha"
	TypeAlphaNum Type = "alphanum"
	TypeAlphaExt Type = "alphaext" // letters, '-' and '_'
	TypeSlug     Type = "slug"
	TypeText     Type = "text" // free text, surrounding space trimmed
	TypeRaw      Type = "raw"
	TypeUUID     Type = "uuid"
	TypeEmail    Type = "email"
	TypeURL      Type = "url"
)

// ErrInvalidValue is wrapped by every Coerce failure.
var ErrInvalidValue = errors.New("invalid value")

var (
	slugPattern     = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	alphaExtPattern = regexp.MustCompile(`^[A-Za-z_-]+$`)
)

// validator tags for the string types checked by go-playground/validator
var typeTags = map[Type]string{
	TypeAlpha:    "alpha",
	TypeAlphaNum: "alphanum",
	TypeAlphaExt: "alphaext",
	TypeSlug:     "slug",
	TypeUUID:     "uuid",
	TypeEmail:    "email",
	TypeURL:      "url",
}

var typeValidator = newTypeValidator()

func newTypeValidator() *validator.Validate {
	v := validator.New()

	if err := v.RegisterValidation("slug", validateSlug); err != nil {
		panic(fmt.Sprintf("register slug validator: %v", err))
	}
	if err := v.RegisterValidation("alphaext", validateAlphaExt); err != nil {
		panic(fmt.Sprintf("register alphaext validator: %v", err))
	}
	return v
}

// validateSlug accepts lowercase words joined by single hyphens.
func validateSlug(fl validator.FieldLevel) bool {
	return slugPattern.MatchString(fl.Field().String())
}

func validateAlphaExt(fl validator.FieldLevel) bool {
	return alphaExtPattern.MatchString(fl.Field().String())
}

// Valid reports whether t is a known semantic type.
func (t Type) Valid() bool {
	switch t {
	case TypeInt, TypeFloat, TypeBool, TypeText, TypeRaw:
		return true
	}
	_, ok := typeTags[t]
	return ok
}

// Coerce validates raw against the type and converts it: int to int64,
// float to float64, bool ("true"/"false" only) to 1/0, everything else to
// string.
func (t Type) Coerce(raw string) (any, error) {
	switch t {
	case TypeInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: expected integer", ErrInvalidValue)
		}
		return n, nil
	case TypeFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: expected number", ErrInvalidValue)
		}
		return f, nil
	case TypeBool:
		switch raw {
		case "true":
			return 1, nil
		case "false":
			return 0, nil
		}
		return nil, fmt.Errorf("%w: expected true or false", ErrInvalidValue)
	case TypeText:
		return strings.TrimSpace(raw), nil
	case TypeRaw:
		return raw, nil
	}

	tag, ok := typeTags[t]
	if !ok {
		return nil, fmt.Errorf("unknown parameter type %q", t)
	}
	if err := typeValidator.Var(raw, tag); err != nil {
		return nil, fmt.Errorf("%w: expected %s", ErrInvalidValue, t)
	}
	return raw, nil
}

// Schema returns the OpenAPI schema of the type.
func (t Type) Schema() map[string]any {
	switch t {
	case TypeInt:
		return map[string]any{"type": "integer", "format": "int64"}
	case TypeFloat:
		return map[string]any{"type": "number", "format": "double"}
	case TypeBool:
		return map[string]any{"type": "boolean"}
	case TypeAlpha:
		return map[string]any{"type": "string", "pattern": "^[a-zA-Z]+$"}
	case TypeAlphaNum:
		return map[string]any{"type": "string", "pattern": "^[a-zA-Z0-9]+$"}
	case TypeAlphaExt:
		return map[string]any{"type": "string", "pattern": alphaExtPattern.String()}
	case TypeSlug:
		return map[string]any{"type": "string", "pattern": slugPattern.String()}
	case TypeUUID:
		return map[string]any{"type": "string", "format": "uuid"}
	case TypeEmail:
		return map[string]any{"type": "string", "format": "email"}
	case TypeURL:
		return map[string]any{"type": "string", "format": "uri"}
	default:
		return map[string]any{"type": "string"}
	}
}
