package server

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/gaborage/routekit/config"
	"github.com/gaborage/routekit/logger"
	"github.com/gaborage/routekit/server/internal/tracking"
	"github.com/gaborage/routekit/trace"
)

// HeaderXResponseTime reports request processing duration.
const HeaderXResponseTime = "X-Response-Time"

const defaultBodyLimit = "10M"

// SetupMiddlewares configures and registers all HTTP middlewares for the Echo server.
func SetupMiddlewares(e *echo.Echo, log logger.Logger, cfg *config.Config) {
	e.Use(middleware.RequestID())
	e.Use(otelecho.Middleware(cfg.App.Name, otelecho.WithSkipper(probeSkipper(cfg))))
	e.Use(TraceContext())

	e.Use(LoggerWithConfig(log, LoggerConfig{
		HealthPath:           normalizeRoutePath(cfg.Server.Path.Health, "/health"),
		ReadyPath:            normalizeRoutePath(cfg.Server.Path.Ready, "/ready"),
		SlowRequestThreshold: defaultSlowRequestThreshold,
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Error().
				Err(err).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("stack", string(stack)).
				Msg("Panic recovered")
			return err
		},
	}))

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		HSTSMaxAge:            3600,
		ContentSecurityPolicy: "default-src 'self'",
	}))

	bodyLimit := cfg.Server.BodyLimit
	if bodyLimit == "" {
		bodyLimit = defaultBodyLimit
	}
	e.Use(middleware.BodyLimit(bodyLimit))

	e.Use(Timeout(cfg.Server.Timeout.Middleware))

	e.Use(tracking.HTTPMetrics())

	// bulk parts are compressed, if at all, as part of the envelope
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level:   5,
		Skipper: func(c echo.Context) bool { return InBulk(c.Request().Context()) },
	}))

	e.Use(RateLimit(cfg.App.Rate.Limit, cfg.App.Rate.Burst))

	e.Use(Timing())
}

// TraceContext stores the resolved trace ID and the inbound traceparent in
// the request context, where bulk replay picks them up for its parts.
func TraceContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.SetRequest(trace.FromRequest(c.Request(), getTraceID(c)))
			return next(c)
		}
	}
}

// probeSkipper skips tracing for the health and ready probes.
func probeSkipper(cfg *config.Config) middleware.Skipper {
	health := normalizeRoutePath(cfg.Server.Path.Health, "/health")
	ready := normalizeRoutePath(cfg.Server.Path.Ready, "/ready")
	return func(c echo.Context) bool {
		p := c.Request().URL.Path
		return p == health || p == ready
	}
}
