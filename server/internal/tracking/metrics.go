// Package tracking records OpenTelemetry metrics for served requests and
// replayed bulk parts. Instruments come from the global meter provider and
// are created once, lazily.
package tracking

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RouteNameKey is the echo context key under which the pipeline stores the
// name of the matched route descriptor.
const RouteNameKey = "routekit.route_name"

const (
	meterName = "routekit/http-server"

	metricHTTPRequestDuration = "http.server.request.duration"
	metricHTTPActiveRequests  = "http.server.active_requests"
	metricBulkParts           = "routekit.bulk.parts"
	metricBulkPartDuration    = "routekit.bulk.part.duration"

	attrHTTPRequestMethod  = "http.request.method"
	attrHTTPResponseStatus = "http.response.status_code"
	attrHTTPRoute          = "http.route"
	attrURLScheme          = "url.scheme"
	attrErrorType          = "error.type"
	attrRouteName          = "routekit.route.name"
)

// OTel recommended boundaries for HTTP latency, in seconds.
var durationBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 7.5, 10,
}

type instruments struct {
	duration     metric.Float64Histogram
	active       metric.Int64UpDownCounter
	bulkParts    metric.Int64Counter
	bulkDuration metric.Float64Histogram
}

var (
	mu     sync.Mutex
	inited *instruments
)

func logMetricError(name string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize metric %s: %v\n", name, err)
	}
}

// meters returns the instruments, creating them on first use. Failed
// instruments stay nil and are skipped when recording.
func meters() *instruments {
	mu.Lock()
	defer mu.Unlock()
	if inited != nil {
		return inited
	}

	m := otel.Meter(meterName)
	in := &instruments{}
	var err error

	in.duration, err = m.Float64Histogram(metricHTTPRequestDuration,
		metric.WithDescription("Duration of HTTP server requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...))
	logMetricError(metricHTTPRequestDuration, err)

	in.active, err = m.Int64UpDownCounter(metricHTTPActiveRequests,
		metric.WithDescription("Number of active HTTP server requests"),
		metric.WithUnit("{request}"))
	logMetricError(metricHTTPActiveRequests, err)

	in.bulkParts, err = m.Int64Counter(metricBulkParts,
		metric.WithDescription("Number of sub-requests replayed from bulk envelopes"),
		metric.WithUnit("{request}"))
	logMetricError(metricBulkParts, err)

	in.bulkDuration, err = m.Float64Histogram(metricBulkPartDuration,
		metric.WithDescription("Duration of sub-requests replayed from bulk envelopes"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...))
	logMetricError(metricBulkPartDuration, err)

	inited = in
	return in
}

// HTTPMetrics returns middleware recording request duration and active
// requests per OTel HTTP semantic conventions. Requests served by a mounted
// route also carry the route's descriptor name.
func HTTPMetrics() echo.MiddlewareFunc {
	in := meters()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := req.Context()
			scheme := extractScheme(c)
			base := metric.WithAttributes(
				attribute.String(attrHTTPRequestMethod, req.Method),
				attribute.String(attrURLScheme, scheme),
			)

			if in.active != nil {
				in.active.Add(ctx, 1, base)
			}
			start := time.Now()
			err := next(c)
			elapsed := time.Since(start)
			if in.active != nil {
				in.active.Add(ctx, -1, base)
			}

			if in.duration != nil {
				routeName, _ := c.Get(RouteNameKey).(string)
				attrs := durationAttributes(req.Method, scheme, c.Response().Status, c.Path(), routeName, err)
				in.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
			}
			return err
		}
	}
}

// RecordBulkPart records one replayed bulk part.
func RecordBulkPart(ctx context.Context, status int, elapsed time.Duration) {
	in := meters()
	attrs := metric.WithAttributes(attribute.Int(attrHTTPResponseStatus, status))
	if in.bulkParts != nil {
		in.bulkParts.Add(ctx, 1, attrs)
	}
	if in.bulkDuration != nil {
		in.bulkDuration.Record(ctx, elapsed.Seconds(), attrs)
	}
}

func durationAttributes(method, scheme string, status int, route, routeName string, err error) []attribute.KeyValue {
	if route == "" {
		route = "unknown"
	}
	attrs := []attribute.KeyValue{
		attribute.String(attrHTTPRequestMethod, method),
		attribute.String(attrURLScheme, scheme),
		attribute.Int(attrHTTPResponseStatus, status),
		attribute.String(attrHTTPRoute, route),
	}
	if routeName != "" {
		attrs = append(attrs, attribute.String(attrRouteName, routeName))
	}
	if errorType := classifyHTTPError(status, err); errorType != "" {
		attrs = append(attrs, attribute.String(attrErrorType, errorType))
	}
	return attrs
}

// extractScheme prefers X-Forwarded-Proto, then the TLS state.
func extractScheme(c echo.Context) string {
	if proto := c.Request().Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if c.Request().TLS != nil {
		return "https"
	}
	return "http"
}

// classifyHTTPError returns the status code for 4xx/5xx, "handler_error"
// for an error on an otherwise successful status, and "" otherwise.
func classifyHTTPError(status int, err error) string {
	if status >= 400 {
		return strconv.Itoa(status)
	}
	if err != nil {
		return "handler_error"
	}
	return ""
}

// ResetForTesting drops the instruments so the next use binds to the
// current global meter provider.
func ResetForTesting() {
	mu.Lock()
	defer mu.Unlock()
	inited = nil
}
