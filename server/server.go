// Package server is the echo transport of routekit: it mounts resolved
// routes, runs the request pipeline, serves the OpenAPI document and the bulk
// endpoint, and renders every error as an APIResponse envelope.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gaborage/routekit/bulk"
	"github.com/gaborage/routekit/config"
	"github.com/gaborage/routekit/logger"
	"github.com/gaborage/routekit/openapi"
)

// ReadyCheck reports whether the service can take traffic.
type ReadyCheck func(ctx context.Context) error

// Server represents an HTTP server instance with Echo framework.
// It manages server lifecycle, configuration, and request handling.
type Server struct {
	echo        *echo.Echo
	cfg         *config.Config
	logger      logger.Logger
	basePath    string
	healthRoute string
	readyRoute  string

	mu    sync.RWMutex
	ready ReadyCheck
}

// normalizeBasePath ensures the base path starts with "/" and doesn't end with "/"
// unless it's the root path. Empty string is returned as-is (no prefix).
func normalizeBasePath(basePath string) string {
	if basePath == "" {
		return ""
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	if len(basePath) > 1 {
		basePath = strings.TrimRight(basePath, "/")
	}
	return basePath
}

// BasePath returns the prefix module routes are mounted under, "" when none.
func BasePath(cfg *config.Config) string {
	base := normalizeBasePath(cfg.Server.Path.Base)
	if base == "/" {
		return ""
	}
	return base
}

// normalizeRoutePath ensures a route path starts with "/" and handles empty paths
func normalizeRoutePath(route, defaultRoute string) string {
	if route == "" {
		route = defaultRoute
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return route
}

// buildFullPath combines base path with route path
func (s *Server) buildFullPath(route string) string {
	if s.basePath == "" || s.basePath == "/" {
		return route
	}
	if route == "/" {
		return s.basePath
	}
	return s.basePath + route
}

// New creates a new HTTP server instance with the given configuration and logger.
// It initializes Echo with middlewares, error handling, and health check endpoints.
func New(cfg *config.Config, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(cfg, log)

	basePath := normalizeBasePath(cfg.Server.Path.Base)
	healthRoute := normalizeRoutePath(cfg.Server.Path.Health, "/health")
	readyRoute := normalizeRoutePath(cfg.Server.Path.Ready, "/ready")

	SetupMiddlewares(e, log, cfg)

	s := &Server{
		echo:        e,
		cfg:         cfg,
		logger:      log,
		basePath:    basePath,
		healthRoute: healthRoute,
		readyRoute:  readyRoute,
	}

	// probes stay outside the base path
	e.GET(healthRoute, s.healthCheck)
	e.GET(readyRoute, s.readyCheck)

	log.Debug().
		Str("base_path", basePath).
		Str("health_path", healthRoute).
		Str("ready_path", readyRoute).
		Msg("Server paths configured")

	return s
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// ModuleGroup returns a registrar with the base path applied.
func (s *Server) ModuleGroup() RouteRegistrar {
	if s.basePath == "" || s.basePath == "/" {
		return newRouteGroup(s.echo.Group(""), "")
	}
	return newRouteGroup(s.echo.Group(s.basePath), s.basePath)
}

// SetReadyCheck installs the readiness probe.
func (s *Server) SetReadyCheck(check ReadyCheck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = check
}

// MountSpec serves the cached OpenAPI document at server.path.spec.
func (s *Server) MountSpec(cache *openapi.Cache) string {
	path := s.buildFullPath(normalizeRoutePath(s.cfg.Server.Path.Spec, "/openapi.json"))
	s.echo.GET(path, openapi.Handler(cache))
	return path
}

// MountBulk serves the bulk endpoint at server.path.bulk. Parts are replayed
// through the whole echo instance, middleware included.
func (s *Server) MountBulk() string {
	path := s.buildFullPath(normalizeRoutePath(s.cfg.Server.Path.Bulk, "/bulk"))
	opts := bulk.Options{MaxParts: s.cfg.Bulk.MaxParts, MaxBytes: s.cfg.Bulk.MaxBytes}
	s.echo.Any(path, bulkHandler(s.echo, opts, s))
	return path
}

// Start starts the HTTP server and begins accepting requests.
// It blocks until the server is shut down or encounters an error.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	s.logger.Info().
		Str("service", s.cfg.App.Name).
		Str("version", s.cfg.App.Version).
		Str("env", s.cfg.App.Env).
		Int("port", s.cfg.Server.Port).
		Str("address", addr).
		Msg("Starting server...")

	server := &http.Server{
		Addr:         addr,
		ReadTimeout:  s.cfg.Server.Timeout.Read,
		WriteTimeout: s.cfg.Server.Timeout.Write,
		IdleTimeout:  s.cfg.Server.Timeout.Idle,
	}
	return s.echo.StartServer(server)
}

// Shutdown gracefully shuts down the HTTP server with the given context.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (s *Server) readyCheck(c echo.Context) error {
	s.mu.RLock()
	check := s.ready
	s.mu.RUnlock()

	if check != nil {
		if err := check(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status": "not ready",
				"error":  err.Error(),
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}
