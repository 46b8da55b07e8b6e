package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gaborage/routekit/bulk"
	"github.com/gaborage/routekit/server/internal/tracking"
)

type bulkKey struct{}

// InBulk reports whether ctx belongs to a request replayed from a bulk
// envelope.
func InBulk(ctx context.Context) bool {
	v, _ := ctx.Value(bulkKey{}).(bool)
	return v
}

// bulkHandler serves the bulk endpoint. Parts are replayed through handler
// with a context marking them as bulk parts; nested envelopes are rejected.
func bulkHandler(handler http.Handler, opts bulk.Options, s *Server) echo.HandlerFunc {
	onPart := opts.OnPart
	opts.OnPart = func(ctx context.Context, index, status int, elapsed time.Duration) {
		tracking.RecordBulkPart(ctx, status, elapsed)
		if onPart != nil {
			onPart(ctx, index, status, elapsed)
		}
	}
	d := bulk.New(handler, opts, s.logger)

	return func(c echo.Context) error {
		req := c.Request()
		if InBulk(req.Context()) {
			return NewBadRequestError("Nested bulk requests are not supported")
		}
		req = req.WithContext(context.WithValue(req.Context(), bulkKey{}, true))

		resp, err := d.Dispatch(req)
		if err != nil {
			return err
		}
		return resp.Write(c.Response())
	}
}
