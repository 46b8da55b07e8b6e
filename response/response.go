// Package response turns handler results into concrete HTTP responses.
//
// A handler returns one of four Result kinds: Direct (a finished Response),
// Payload (a value to be content negotiated), View (a template to render) or
// Tagged (a wrapper around an optional embedded Response). The Normalizer
// handles exactly these kinds; anything else is a configuration error.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	// ContentTypeJSON is the content type of payload responses.
	ContentTypeJSON = "application/json; charset=utf-8"
	mimeXML         = "application/xml"
)

var (
	// ErrXMLNotSupported is returned when a payload is requested as XML.
	// There is no XML encoder; the request is never answered with JSON
	// instead.
	ErrXMLNotSupported = errors.New("xml payload encoding is not supported")
	// ErrUnknownResultKind is returned for results outside the closed set.
	ErrUnknownResultKind = errors.New("unknown response type")
)

// Response is a complete HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// New creates an empty response with the given status.
func New(status int) *Response {
	return &Response{Status: status, Header: http.Header{}}
}

// Write sends the response. A zero status is written as 200.
func (r *Response) Write(w http.ResponseWriter) error {
	for key, values := range r.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(r.Body) == 0 {
		return nil
	}
	_, err := w.Write(r.Body)
	return err
}

// Result is the closed set of handler result kinds.
type Result interface {
	isResult()
}

// Direct passes a finished response through unchanged.
type Direct struct {
	Response *Response
}

// Payload is a value to be encoded according to the request's Accept
// header.
type Payload struct {
	Value   any
	Request *http.Request
}

// View renders a named template with a data context.
type View struct {
	Template string
	Data     any
}

// Tagged wraps an optional embedded response. Without one it yields an
// empty 200.
type Tagged struct {
	Embedded *Response
}

func (Direct) isResult()  {}
func (Payload) isResult() {}
func (View) isResult()    {}
func (Tagged) isResult()  {}

// Kind names the result kind for logs and metrics.
func Kind(res Result) string {
	switch res.(type) {
	case Direct, *Direct:
		return "direct"
	case Payload, *Payload:
		return "payload"
	case View, *View:
		return "view"
	case Tagged, *Tagged:
		return "tagged"
	}
	return "unknown"
}

// Renderer renders a named template with a data context.
type Renderer interface {
	Render(name string, data any) (string, error)
}

// Normalizer converts results into responses.
type Normalizer struct {
	renderer Renderer
	debug    bool
}

// NewNormalizer creates a Normalizer. debug enables indented JSON output.
// renderer may be nil when no route returns views.
func NewNormalizer(renderer Renderer, debug bool) *Normalizer {
	return &Normalizer{renderer: renderer, debug: debug}
}

// Normalize converts res into a response.
func (n *Normalizer) Normalize(res Result) (*Response, error) {
	switch r := res.(type) {
	case Direct:
		if r.Response == nil {
			return nil, fmt.Errorf("%w: direct result without response", ErrUnknownResultKind)
		}
		return r.Response, nil
	case Payload:
		return n.payload(r)
	case View:
		return n.view(r)
	case Tagged:
		if r.Embedded != nil {
			return r.Embedded, nil
		}
		return New(http.StatusOK), nil
	case *Direct:
		if r != nil {
			return n.Normalize(*r)
		}
	case *Payload:
		if r != nil {
			return n.Normalize(*r)
		}
	case *View:
		if r != nil {
			return n.Normalize(*r)
		}
	case *Tagged:
		if r != nil {
			return n.Normalize(*r)
		}
	}
	return nil, fmt.Errorf("%w: %T", ErrUnknownResultKind, res)
}

func (n *Normalizer) payload(p Payload) (*Response, error) {
	if p.Request != nil && strings.Contains(p.Request.Header.Get("Accept"), mimeXML) {
		return nil, ErrXMLNotSupported
	}

	body, err := EncodeJSON(p.Value, n.debug)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	resp := New(http.StatusOK)
	resp.Header.Set("Content-Type", ContentTypeJSON)
	resp.Body = body
	return resp, nil
}

func (n *Normalizer) view(v View) (*Response, error) {
	if n.renderer == nil {
		return nil, fmt.Errorf("view %q: no renderer configured", v.Template)
	}
	out, err := n.renderer.Render(v.Template, v.Data)
	if err != nil {
		return nil, fmt.Errorf("render view %q: %w", v.Template, err)
	}
	resp := New(http.StatusOK)
	resp.Body = []byte(out)
	return resp, nil
}
