package app

import (
	"context"
	"os"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gaborage/routekit/openapi"
	"github.com/gaborage/routekit/server"
)

// SignalHandler interface allows for injectable signal handling for testing
type SignalHandler interface {
	Notify(c chan<- os.Signal, sig ...os.Signal)
	Stop(c chan<- os.Signal)
}

// TimeoutProvider interface allows for injectable timeout creation for testing
type TimeoutProvider interface {
	WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc)
}

// ServerRunner abstracts the HTTP server to allow injecting test-friendly implementations
type ServerRunner interface {
	Start() error
	Shutdown(ctx context.Context) error
	Echo() *echo.Echo
	ModuleGroup() server.RouteRegistrar
	SetReadyCheck(check server.ReadyCheck)
	MountSpec(cache *openapi.Cache) string
	MountBulk() string
}

var _ ServerRunner = (*server.Server)(nil)
