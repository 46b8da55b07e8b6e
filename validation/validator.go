// Package validation checks inbound requests against a resolved route and
// produces the normalized Input handed to handlers.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/gaborage/routekit/logger"
	"github.com/gaborage/routekit/route"
	"github.com/gaborage/routekit/schema"
)

// Request is the raw material the validator works on: the path arguments
// supplied by the router plus the parts of the HTTP request.
type Request struct {
	PathArgs    map[string]string
	Query       url.Values
	Header      http.Header
	ContentType string
	Body        []byte
}

// FromHTTP reads r (including its body) into a Request. maxBytes limits the
// body; 0 means unlimited.
func FromHTTP(r *http.Request, pathArgs map[string]string, maxBytes int64) (*Request, error) {
	req := &Request{
		PathArgs:    pathArgs,
		Query:       r.URL.Query(),
		Header:      r.Header,
		ContentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil || r.Body == http.NoBody {
		return req, nil
	}

	body := io.Reader(r.Body)
	if maxBytes > 0 {
		body = io.LimitReader(r.Body, maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, &ParamError{Name: "body", In: route.InBody, Message: "request body too large"}
	}
	req.Body = data
	return req, nil
}

// Input is the validated, normalized request. Only declared parameters
// appear in Path, Query and Header.
type Input struct {
	Path   map[string]any
	Query  map[string]any
	Header map[string]any
	// Body is the validated body, or an empty map when the route declares no
	// request body.
	Body any
	// Unstructured keeps the complete original query string, undeclared keys
	// included, for legacy parameter access.
	Unstructured url.Values
	ContentType  string
}

// Param returns a normalized parameter value.
func (in *Input) Param(loc route.Location, name string) (any, bool) {
	var m map[string]any
	switch loc {
	case route.InPath:
		m = in.Path
	case route.InQuery:
		m = in.Query
	case route.InHeader:
		m = in.Header
	default:
		return nil, false
	}
	v, ok := m[name]
	return v, ok
}

// Validator validates requests against resolved routes. It is stateless and
// safe for concurrent use.
type Validator struct {
	log logger.Logger
}

// New creates a Validator. Dropped query keys are logged at debug level.
func New(log logger.Logger) *Validator {
	if log == nil {
		log = logger.Nop()
	}
	return &Validator{log: log}
}

// Validate checks req against r. It returns a *ParamError for client
// mistakes, an error wrapping ErrNoMatchingContentType when no declared body
// content type matches, and a *ConfigurationError when the router supplied
// fewer path arguments than the route requires. Nothing is returned unless
// every check passed.
func (v *Validator) Validate(r *route.Resolved, req *Request) (*Input, error) {
	in := &Input{
		Path:         map[string]any{},
		Query:        map[string]any{},
		Header:       map[string]any{},
		Unstructured: cloneValues(req.Query),
		ContentType:  req.ContentType,
	}

	if err := v.validatePath(r, req, in); err != nil {
		return nil, err
	}
	if err := v.validateQuery(r, req, in); err != nil {
		return nil, err
	}
	if err := v.validateHeader(r, req, in); err != nil {
		return nil, err
	}
	if err := v.validateBody(r, req, in); err != nil {
		return nil, err
	}
	return in, nil
}

func (v *Validator) validatePath(r *route.Resolved, req *Request, in *Input) error {
	for _, p := range r.ParamsIn(route.InPath) {
		raw, ok := req.PathArgs[p.Name]
		if !ok {
			if r.PathRequired(p.Name) {
				return &ConfigurationError{
					Route:   r.Template.String(),
					Message: fmt.Sprintf("router supplied no argument for required path parameter %q", p.Name),
				}
			}
			continue
		}
		val, err := coerce(r, p, raw)
		if err != nil {
			return err
		}
		in.Path[p.Name] = val
	}
	return nil
}

func (v *Validator) validateQuery(r *route.Resolved, req *Request, in *Input) error {
	declared := r.ParamsIn(route.InQuery)

	for _, p := range declared {
		values := req.Query[p.Name]
		if len(values) == 0 {
			if err := fillMissing(p, in.Query); err != nil {
				return err
			}
			continue
		}
		val, err := coerce(r, p, values[len(values)-1])
		if err != nil {
			return err
		}
		in.Query[p.Name] = val
	}

	var dropped []string
	for key := range req.Query {
		if !slices.ContainsFunc(declared, func(p *route.Parameter) bool { return p.Name == key }) {
			dropped = append(dropped, key)
		}
	}
	if len(dropped) > 0 {
		slices.Sort(dropped)
		v.log.Debug().
			Str("route", r.Template.String()).
			Strs("keys", dropped).
			Msg("Dropped undeclared query parameters")
	}
	return nil
}

func (v *Validator) validateHeader(r *route.Resolved, req *Request, in *Input) error {
	for _, p := range r.ParamsIn(route.InHeader) {
		values := req.Header.Values(p.Name)
		if len(values) == 0 {
			if err := fillMissing(p, in.Header); err != nil {
				return err
			}
			continue
		}
		val, err := coerce(r, p, values[0])
		if err != nil {
			return err
		}
		in.Header[p.Name] = val
	}
	return nil
}

func (v *Validator) validateBody(r *route.Resolved, req *Request, in *Input) error {
	body := r.RequestBody
	if body == nil || len(body.Content) == 0 {
		in.Body = map[string]any{}
		return nil
	}

	empty := len(bytes.TrimSpace(req.Body)) == 0
	if empty && !body.Required {
		in.Body = map[string]any{}
		return nil
	}

	mt := MediaType(req.ContentType)
	s, ok := body.Content[mt]
	if !ok {
		return fmt.Errorf("%w: %q (accepted: %s)", ErrNoMatchingContentType, mt, strings.Join(body.ContentTypes(), ", "))
	}
	if empty {
		return &ParamError{Name: "body", In: route.InBody, Message: "request body is required"}
	}

	decoded, err := decodeBody(mt, req.Body)
	if err != nil {
		return &ParamError{Name: "body", In: route.InBody, Message: "malformed body", Err: err}
	}

	validated, err := s.Validate(decoded)
	if err != nil {
		pe := &ParamError{Name: "body", In: route.InBody, Message: err.Error(), Err: err}
		var ve *schema.ValidationError
		if errors.As(err, &ve) {
			pe.Message = ve.Message
			if name := strings.TrimPrefix(ve.Pointer, "/"); name != "" {
				pe.Name = name
			}
		}
		return pe
	}
	in.Body = validated
	return nil
}

func fillMissing(p *route.Parameter, dst map[string]any) error {
	if p.Required {
		return &ParamError{Name: p.Name, In: p.In, Message: "parameter is required"}
	}
	if p.Default != nil {
		dst[p.Name] = p.Default
	}
	return nil
}

func coerce(r *route.Resolved, p *route.Parameter, raw string) (any, error) {
	val, err := p.Type.Coerce(raw)
	if err != nil {
		return nil, &ParamError{Name: p.Name, In: p.In, Message: err.Error(), Err: err}
	}
	if !r.Match(p, raw) {
		return nil, &ParamError{Name: p.Name, In: p.In, Message: "value does not match the required pattern"}
	}
	return val, nil
}

// MediaType returns the lowercase media type of a Content-Type header
// without parameters.
func MediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
		return strings.ToLower(strings.TrimSpace(mt))
	}
	return mt
}

func decodeBody(mediaType string, data []byte) (any, error) {
	switch {
	case mediaType == schema.MediaTypeJSON || strings.HasSuffix(mediaType, "+json"):
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		if dec.More() {
			return nil, errors.New("unexpected data after JSON value")
		}
		return v, nil
	case mediaType == schema.MediaTypeForm:
		values, err := url.ParseQuery(string(data))
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(values))
		for key, vals := range values {
			if len(vals) == 1 {
				out[key] = vals[0]
				continue
			}
			list := make([]any, len(vals))
			for i, val := range vals {
				list[i] = val
			}
			out[key] = list
		}
		return out, nil
	default:
		return string(data), nil
	}
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for key, vals := range v {
		out[key] = append([]string(nil), vals...)
	}
	return out
}
