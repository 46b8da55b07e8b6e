package server

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// RequestLogContextKey stores the request logging state in echo's context.
const RequestLogContextKey = "_request_log_ctx"

// requestLogContext tracks the peak severity logged while a request runs.
type requestLogContext struct {
	mu                 sync.Mutex
	startTime          time.Time
	peakSeverity       zerolog.Level
	hadExplicitWarning bool
}

func newRequestLogContext() *requestLogContext {
	return &requestLogContext{startTime: time.Now(), peakSeverity: zerolog.InfoLevel}
}

func getRequestLogContext(c echo.Context) *requestLogContext {
	reqCtx, _ := c.Get(RequestLogContextKey).(*requestLogContext)
	return reqCtx
}

func (r *requestLogContext) escalateSeverity(level zerolog.Level) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if level > r.peakSeverity {
		r.peakSeverity = level
	}
	if level >= zerolog.WarnLevel {
		r.hadExplicitWarning = true
	}
}

func (r *requestLogContext) explicitWarning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hadExplicitWarning
}

// EscalateSeverity lets application code mark the request as WARN+ without
// logging, which suppresses the action summary.
func EscalateSeverity(c echo.Context, level zerolog.Level) {
	if reqCtx := getRequestLogContext(c); reqCtx != nil {
		reqCtx.escalateSeverity(level)
	}
}
