package server

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/gaborage/routekit/logger"
)

const defaultSlowRequestThreshold = time.Second

// LoggerConfig configures the request logging middleware.
type LoggerConfig struct {
	// HealthPath and ReadyPath are probe endpoints excluded from logging.
	HealthPath string
	ReadyPath  string

	// SlowRequestThreshold marks slower requests with result_code WARN.
	// Zero disables slow request detection.
	SlowRequestThreshold time.Duration
}

// LoggerWithConfig returns a request logging middleware.
//
// Each request gets a severity hook and a bulk part counter in its context.
// When nothing logged at WARN or above while the request ran, one action log
// (log.type=action) summarizes the request. Explicit WARN+ logs replace the
// summary.
func LoggerWithConfig(log logger.Logger, cfg LoggerConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqCtx := newRequestLogContext()
			c.Set(RequestLogContextKey, reqCtx)

			ctx := logger.WithSeverityHook(c.Request().Context(), reqCtx.escalateSeverity)
			ctx = logger.WithBulkCounter(ctx)
			c.SetRequest(c.Request().WithContext(ctx))

			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			if path == cfg.HealthPath || path == cfg.ReadyPath {
				return next(c)
			}

			err := next(c)

			latency := time.Since(reqCtx.startTime)
			status := c.Response().Status
			if err != nil {
				// the error handler has not run yet
				if apiErr, _ := ToAPIError(err); apiErr != nil {
					status = apiErr.HTTPStatus()
				}
			}

			if !reqCtx.explicitWarning() {
				logActionSummary(c, log, cfg, latency, status, err)
			}
			return err
		}
	}
}

// logActionSummary emits the action log with OpenTelemetry semantic
// convention attribute names.
func logActionSummary(c echo.Context, log logger.Logger, cfg LoggerConfig, latency time.Duration, status int, err error) {
	req := c.Request()
	ctx := req.Context()

	level, resultCode := determineSeverity(status, latency, cfg.SlowRequestThreshold, err)
	event := createLogEvent(log.WithContext(ctx), level)
	if err != nil {
		event = event.Err(err)
	}

	event.
		Str("log.type", "action").
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Str("correlation_id", getTraceID(c)).
		Str("http.request.method", req.Method).
		Int("http.response.status_code", status).
		Int64("http.server.request.duration", latency.Nanoseconds()).
		Str("url.path", req.URL.Path).
		Str("http.route", c.Path()).
		Str("client.address", c.RealIP()).
		Str("user_agent.original", req.UserAgent()).
		Str("result_code", resultCode).
		Int64("bulk_parts", logger.GetBulkCounter(ctx)).
		Bool("bulk_part", InBulk(ctx)).
		Msg(createActionMessage(req.Method, req.URL.Path, latency, status))
}

// determineSeverity maps status, latency and error to a log level and
// result_code.
func determineSeverity(status int, latency, threshold time.Duration, err error) (zerolog.Level, string) {
	switch {
	case status >= 500 || (err != nil && status == 0):
		return zerolog.ErrorLevel, "ERROR"
	case status >= 400:
		return zerolog.WarnLevel, "WARN"
	case threshold > 0 && latency > threshold:
		return zerolog.InfoLevel, "WARN"
	}
	return zerolog.InfoLevel, "INFO"
}

func createLogEvent(log logger.Logger, level zerolog.Level) logger.LogEvent {
	switch level {
	case zerolog.ErrorLevel:
		return log.Error()
	case zerolog.WarnLevel:
		return log.Warn()
	default:
		return log.Info()
	}
}

// createActionMessage renders "GET /api/users completed in 123ms with status 2xx".
func createActionMessage(method, path string, latency time.Duration, status int) string {
	return method + " " + path + " completed in " + latency.String() + " with status " + strconv.Itoa(status/100) + "xx"
}
