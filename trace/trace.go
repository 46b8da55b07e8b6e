// Package trace carries request correlation values through a context so
// requests replayed from a bulk envelope report the envelope's trace.
package trace

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// contextKey is the type for context keys to avoid collisions
type contextKey string

const (
	traceIDKey     contextKey = "trace_id"
	traceParentKey contextKey = "traceparent"

	// HeaderXRequestID is the standard header name for request tracing
	HeaderXRequestID = "X-Request-ID"
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = "traceparent"
)

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// IDFromContext returns the trace ID stored in ctx.
func IDFromContext(ctx context.Context) (string, bool) {
	if traceID, ok := ctx.Value(traceIDKey).(string); ok && traceID != "" {
		return traceID, true
	}
	return "", false
}

// EnsureTraceID returns an existing trace ID from context or generates a new one
func EnsureTraceID(ctx context.Context) string {
	if traceID, ok := IDFromContext(ctx); ok {
		return traceID
	}
	return uuid.NewString()
}

// WithTraceParent adds a W3C traceparent value to the context
func WithTraceParent(ctx context.Context, traceParent string) context.Context {
	return context.WithValue(ctx, traceParentKey, traceParent)
}

// ParentFromContext returns the traceparent stored in ctx.
func ParentFromContext(ctx context.Context) (string, bool) {
	if tp, ok := ctx.Value(traceParentKey).(string); ok && tp != "" {
		return tp, true
	}
	return "", false
}

// FromRequest stores the correlation headers of r in its context. A request
// without X-Request-ID keeps the ID already in the context, if any.
func FromRequest(r *http.Request, requestID string) *http.Request {
	ctx := r.Context()
	if requestID != "" {
		ctx = WithTraceID(ctx, requestID)
	}
	if tp := r.Header.Get(HeaderTraceParent); tp != "" {
		ctx = WithTraceParent(ctx, tp)
	}
	return r.WithContext(ctx)
}

// Propagate copies the correlation values of ctx onto h unless h already
// carries its own.
func Propagate(ctx context.Context, h http.Header) {
	if h.Get(HeaderXRequestID) == "" {
		if id, ok := IDFromContext(ctx); ok {
			h.Set(HeaderXRequestID, id)
		}
	}
	if h.Get(HeaderTraceParent) == "" {
		if tp, ok := ParentFromContext(ctx); ok {
			h.Set(HeaderTraceParent, tp)
		}
	}
}
