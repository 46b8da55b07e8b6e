package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/gaborage/routekit/logger"
)

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = errorHandler(nil, logger.Nop())
	return e
}

func TestRateLimitDeniesBurst(t *testing.T) {
	e := newTestEcho()
	e.Use(RateLimit(1, 2))
	e.GET("/course", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, serve(e, "/course").Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	rec := serve(e, "/course")
	assert.Equal(t, "TOO_MANY_REQUESTS", errorCode(t, rec))
}

func TestRateLimitSkipsBulkParts(t *testing.T) {
	e := newTestEcho()
	e.Use(RateLimit(1, 1))
	e.GET("/course", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/course", http.NoBody)
		req = req.WithContext(context.WithValue(req.Context(), bulkKey{}, true))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	e := newTestEcho()
	e.Use(RateLimit(0, 0))
	e.GET("/course", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	for range 5 {
		assert.Equal(t, http.StatusNoContent, serve(e, "/course").Code)
	}
}

func TestTimeoutExpiresContext(t *testing.T) {
	e := newTestEcho()
	e.Use(Timeout(10 * time.Millisecond))
	e.GET("/slow", func(c echo.Context) error {
		<-c.Request().Context().Done()
		return nil
	})
	e.GET("/fast", func(c echo.Context) error {
		_, ok := c.Request().Context().Deadline()
		require.True(t, ok)
		return c.NoContent(http.StatusOK)
	})

	rec := serve(e, "/slow")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", errorCode(t, rec))

	assert.Equal(t, http.StatusOK, serve(e, "/fast").Code)
}

func TestTimeoutKeepsCommittedResponse(t *testing.T) {
	e := newTestEcho()
	e.Use(Timeout(5 * time.Millisecond))
	e.GET("/late", func(c echo.Context) error {
		if err := c.String(http.StatusOK, "done"); err != nil {
			return err
		}
		<-c.Request().Context().Done()
		return nil
	})

	rec := serve(e, "/late")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "done", rec.Body.String())
}

func TestTimingSetsHeader(t *testing.T) {
	e := newTestEcho()
	e.Use(Timing())
	e.GET("/course", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	rec := serve(e, "/course")
	assert.NotEmpty(t, rec.Header().Get(HeaderXResponseTime))
}

func TestSecurityHeaders(t *testing.T) {
	s, _ := newCourseServer(t, testConfig(t, ""), logger.Nop())

	rec := do(s, http.MethodGet, "/course/1", "", "")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestTracingSkipsProbes(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(original)
	})

	s, _ := newCourseServer(t, testConfig(t, ""), logger.Nop())

	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/health", "", "").Code)
	assert.Empty(t, exporter.GetSpans())

	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/course/1", "", "").Code)
	assert.Len(t, exporter.GetSpans(), 1)
}
