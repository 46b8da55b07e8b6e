package app

import (
	"fmt"
	"slices"

	"github.com/gaborage/routekit/logger"
	"github.com/gaborage/routekit/route"
	"github.com/gaborage/routekit/server"
)

// ModuleRegistry manages the registration and lifecycle of application modules.
// It collects route descriptors and handlers and shuts modules down in order.
type ModuleRegistry struct {
	modules []Module
	deps    *ModuleDeps
	logger  logger.Logger
}

// NewModuleRegistry creates a new module registry with the given dependencies.
func NewModuleRegistry(deps *ModuleDeps) *ModuleRegistry {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &ModuleRegistry{
		modules: make([]Module, 0),
		deps:    deps,
		logger:  log,
	}
}

// Register initializes module and adds it to the registry. Module names must
// be unique.
func (r *ModuleRegistry) Register(module Module) error {
	name := module.Name()
	if slices.ContainsFunc(r.modules, func(m Module) bool { return m.Name() == name }) {
		return fmt.Errorf("module %q already registered", name)
	}

	r.logger.Info().
		Str("module", name).
		Msg("Registering module")

	if err := module.Init(r.deps); err != nil {
		return fmt.Errorf("init module %s: %w", name, err)
	}
	r.modules = append(r.modules, module)
	return nil
}

// Modules returns the registered modules in registration order.
func (r *ModuleRegistry) Modules() []Module {
	return slices.Clone(r.modules)
}

// Descriptors collects the route descriptors of every module. Routes of a
// Describer without tags inherit the module tags.
func (r *ModuleRegistry) Descriptors() []*route.Descriptor {
	var out []*route.Descriptor
	for _, module := range r.modules {
		var tags []string
		if d, ok := module.(Describer); ok {
			tags = d.DescribeModule().Tags
		}
		for _, desc := range module.Routes() {
			if len(desc.Tags) == 0 && len(tags) > 0 {
				desc.Tags = slices.Clone(tags)
			}
			out = append(out, desc)
		}
	}
	return out
}

// BuildRoutes resolves every module route into a registry.
func (r *ModuleRegistry) BuildRoutes() (*route.Registry, error) {
	reg, err := route.NewRegistry(r.Descriptors()...)
	if err != nil {
		return nil, fmt.Errorf("build route registry: %w", err)
	}
	return reg, nil
}

// Handlers merges the handlers of every module. Two modules may not serve
// the same descriptor name.
func (r *ModuleRegistry) Handlers() (server.Handlers, error) {
	merged := server.Handlers{}
	owner := map[string]string{}
	for _, module := range r.modules {
		for name, h := range module.Handlers() {
			if prev, ok := owner[name]; ok {
				return nil, fmt.Errorf("handler %q registered by modules %s and %s", name, prev, module.Name())
			}
			owner[name] = module.Name()
			merged[name] = h
		}
	}
	return merged, nil
}

// Shutdown gracefully shuts down all registered modules in reverse order.
// Failures are logged and the first one is returned.
func (r *ModuleRegistry) Shutdown() error {
	var first error
	for i := len(r.modules) - 1; i >= 0; i-- {
		module := r.modules[i]
		r.logger.Info().
			Str("module", module.Name()).
			Msg("Shutting down module")

		if err := module.Shutdown(); err != nil {
			r.logger.Error().
				Err(err).
				Str("module", module.Name()).
				Msg("Failed to shutdown module")
			if first == nil {
				first = fmt.Errorf("shutdown module %s: %w", module.Name(), err)
			}
		}
	}
	return first
}
