package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/gaborage/routekit/auth"
	"github.com/gaborage/routekit/config"
	"github.com/gaborage/routekit/logger"
	"github.com/gaborage/routekit/response"
	"github.com/gaborage/routekit/route"
	"github.com/gaborage/routekit/server/internal/tracking"
	"github.com/gaborage/routekit/validation"
)

// HandlerFunc is the business logic entry point of a route. It receives the
// validated input and returns one of the response.Result kinds.
type HandlerFunc func(in *validation.Input, ctx HandlerContext) (response.Result, error)

// Handlers maps descriptor names to handler entry points.
type Handlers map[string]HandlerFunc

// HandlerContext provides access to Echo context and additional utilities when needed.
type HandlerContext struct {
	Echo      echo.Context
	Config    *config.Config
	Route     *route.Resolved
	Principal *auth.Principal
	Logger    logger.Logger
}

// Request returns the underlying HTTP request.
func (hc HandlerContext) Request() *http.Request {
	return hc.Echo.Request()
}

// Payload wraps v as a content negotiated result for the current request.
func (hc HandlerContext) Payload(v any) response.Payload {
	return response.Payload{Value: v, Request: hc.Request()}
}

// Pipeline runs the per-request steps shared by every mounted route:
// capability check, validation, handler, normalization and write.
type Pipeline struct {
	cfg        *config.Config
	log        logger.Logger
	checker    auth.Checker
	validator  *validation.Validator
	normalizer *response.Normalizer
	maxBody    int64
}

// PipelineOptions configures a Pipeline.
type PipelineOptions struct {
	// Checker gates routes declaring a capability. Nil skips capability
	// checks.
	Checker auth.Checker
	// Renderer renders View results. Nil rejects them.
	Renderer response.Renderer
	// MaxBody limits request bodies read by the validator; 0 means
	// unlimited.
	MaxBody int64
}

// NewPipeline creates a Pipeline.
func NewPipeline(cfg *config.Config, log logger.Logger, opts PipelineOptions) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	debug := cfg != nil && cfg.App.Debug
	return &Pipeline{
		cfg:        cfg,
		log:        log,
		checker:    opts.Checker,
		validator:  validation.New(log),
		normalizer: response.NewNormalizer(opts.Renderer, debug),
		maxBody:    opts.MaxBody,
	}
}

// Wrap adapts h to echo for the resolved route rt.
func (p *Pipeline) Wrap(rt *route.Resolved, h HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Set(tracking.RouteNameKey, rt.Name())
		hc := HandlerContext{Echo: c, Config: p.cfg, Route: rt, Logger: p.log}

		if rt.Capability != "" && p.checker != nil {
			req := c.Request()
			principal, err := p.checker.Check(req.Context(), req.Header.Get(echo.HeaderAuthorization), rt.Capability)
			if err != nil {
				return err
			}
			hc.Principal = principal
			c.SetRequest(req.WithContext(auth.WithPrincipal(req.Context(), principal)))
		}

		args, err := pathArgs(c)
		if err != nil {
			return err
		}
		raw, err := validation.FromHTTP(c.Request(), args, p.maxBody)
		if err != nil {
			return err
		}
		in, err := p.validator.Validate(rt, raw)
		if err != nil {
			return err
		}

		hc.Logger = p.log.WithContext(c.Request().Context())
		result, err := h(in, hc)
		if err != nil {
			return err
		}
		resp, err := p.normalizer.Normalize(result)
		if err != nil {
			return fmt.Errorf("route %s: %w", rt.Name(), err)
		}
		return resp.Write(c.Response())
	}
}

// pathArgs collects the router's path arguments, percent-decoded. echo
// matches on URL.RawPath when it is set and on the already decoded URL.Path
// otherwise, so only raw values are unescaped.
func pathArgs(c echo.Context) (map[string]string, error) {
	names := c.ParamNames()
	values := c.ParamValues()
	raw := c.Request().URL.RawPath != ""
	args := make(map[string]string, len(names))
	for i, name := range names {
		if i >= len(values) {
			break
		}
		if !raw {
			args[name] = values[i]
			continue
		}
		v, err := url.PathUnescape(values[i])
		if err != nil {
			return nil, &validation.ParamError{Name: name, In: route.InPath, Message: "malformed escape", Err: err}
		}
		args[name] = v
	}
	return args, nil
}

// Mount registers every path variant and method of every route in reg. Each
// route needs a handler under its descriptor name.
func (p *Pipeline) Mount(r RouteRegistrar, reg *route.Registry, handlers Handlers) error {
	var missing []string
	for _, rt := range reg.Routes() {
		h, ok := handlers[rt.Name()]
		if !ok || h == nil {
			missing = append(missing, rt.Name())
			continue
		}
		wrapped := p.Wrap(rt, h)
		for _, path := range rt.Paths {
			for _, method := range rt.Methods {
				r.Add(method, route.EchoPath(path), wrapped)
			}
		}
		p.log.Debug().
			Str("route", rt.Name()).
			Strs("paths", rt.Paths).
			Strs("methods", rt.Methods).
			Msg("Route mounted")
	}
	if len(missing) > 0 {
		return fmt.Errorf("no handler registered for routes: %s", strings.Join(missing, ", "))
	}
	return nil
}
