package app

import (
	"github.com/gaborage/routekit/config"
	"github.com/gaborage/routekit/logger"
	"github.com/gaborage/routekit/route"
	"github.com/gaborage/routekit/server"
)

// Module defines the interface that all application modules must implement.
// A module declares its routes as descriptors and supplies one handler per
// descriptor name.
type Module interface {
	Name() string
	Init(deps *ModuleDeps) error
	Routes() []*route.Descriptor
	Handlers() server.Handlers
	Shutdown() error
}

// ModuleDeps contains the dependencies that are injected into each module.
type ModuleDeps struct {
	Logger logger.Logger
	Config *config.Config
}

// Describer is an optional interface for modules that group their routes
// under document tags.
type Describer interface {
	DescribeModule() ModuleDescriptor
}

// ModuleDescriptor captures module-level metadata
type ModuleDescriptor struct {
	Name        string
	Version     string
	Description string
	// Tags are added to every route of the module that declares none.
	Tags []string
}
