package logger

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
)

type contextKey string

const (
	// severityHookKey stores a callback for request-level severity tracking
	severityHookKey contextKey = "severity_hook"
	// bulkPartsKey counts sub-requests replayed inside one bulk envelope
	bulkPartsKey contextKey = "bulk_part_counter"
)

// WithSeverityHook attaches hook to ctx. Loggers obtained through
// Logger.WithContext call it for every WARN+ event they send.
func WithSeverityHook(ctx context.Context, hook func(zerolog.Level)) context.Context {
	if ctx == nil || hook == nil {
		return ctx
	}
	return context.WithValue(ctx, severityHookKey, hook)
}

func severityHookFromContext(ctx context.Context) func(zerolog.Level) {
	if ctx == nil {
		return nil
	}
	if hook, ok := ctx.Value(severityHookKey).(func(zerolog.Level)); ok {
		return hook
	}
	return nil
}

// WithBulkCounter returns a context carrying a zeroed bulk part counter.
func WithBulkCounter(ctx context.Context) context.Context {
	counter := int64(0)
	return context.WithValue(ctx, bulkPartsKey, &counter)
}

// IncrementBulkCounter bumps the bulk part counter in ctx, if any.
func IncrementBulkCounter(ctx context.Context) {
	if counter, ok := ctx.Value(bulkPartsKey).(*int64); ok && counter != nil {
		atomic.AddInt64(counter, 1)
	}
}

// GetBulkCounter returns the number of bulk parts replayed so far.
func GetBulkCounter(ctx context.Context) int64 {
	if counter, ok := ctx.Value(bulkPartsKey).(*int64); ok && counter != nil {
		return atomic.LoadInt64(counter)
	}
	return 0
}
