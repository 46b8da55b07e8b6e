package app

import (
	"github.com/gaborage/routekit/auth"
	"github.com/gaborage/routekit/config"
	"github.com/gaborage/routekit/logger"
	"github.com/gaborage/routekit/response"
)

// Options contains optional dependencies for creating an App instance
type Options struct {
	ConfigLoader    func() (*config.Config, error)
	Logger          logger.Logger
	SignalHandler   SignalHandler
	TimeoutProvider TimeoutProvider
	Server          ServerRunner
	// Checker overrides the capability checker derived from auth config.
	Checker auth.Checker
	// Renderer renders View results.
	Renderer response.Renderer
	// Probes are added to the readiness check.
	Probes []HealthProbe
}
