package server

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const (
	BurstMultiplier  = 2
	RateLimitCleanup = time.Minute * 3
)

// RateLimit limits requests per client IP. A burst of 0 defaults to
// BurstMultiplier times the rate. requestsPerSecond <= 0 disables limiting.
// Parts of a bulk envelope are not counted; the envelope itself is.
func RateLimit(requestsPerSecond, burst int) echo.MiddlewareFunc {
	if requestsPerSecond <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}
	if burst <= 0 {
		burst = requestsPerSecond * BurstMultiplier
	}

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return InBulk(c.Request().Context())
		},
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(requestsPerSecond),
				Burst:     burst,
				ExpiresIn: RateLimitCleanup,
			},
		),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(_ echo.Context, _ error) error {
			return NewTooManyRequestsError("")
		},
		DenyHandler: func(_ echo.Context, _ string, _ error) error {
			return NewTooManyRequestsError("Too many requests")
		},
	})
}
