package validation

import (
	"errors"
	"fmt"

	"github.com/gaborage/routekit/route"
)

// ErrNoMatchingContentType is returned when a route declares a request body
// but none of its content types equals the request's media type.
var ErrNoMatchingContentType = errors.New("no matching content type")

// ParamError is a client error locating the offending parameter.
type ParamError struct {
	Name    string
	In      route.Location
	Message string
	Err     error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s parameter %q: %s", e.In, e.Name, e.Message)
}

func (e *ParamError) Unwrap() error { return e.Err }

// ConfigurationError reports a mismatch between a route declaration and
// what the router supplied. It is a programmer error, never a client one.
type ConfigurationError struct {
	Route   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("route configuration error for %s: %s", e.Route, e.Message)
}
