// Package app wires configuration, logging, modules and the HTTP server into
// a runnable routekit service.
package app

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gaborage/routekit/config"
	"github.com/gaborage/routekit/logger"
	"github.com/gaborage/routekit/openapi"
	"github.com/gaborage/routekit/route"
	"github.com/gaborage/routekit/server"
)

// ErrNotMounted is returned by operations that need the mounted routes.
var ErrNotMounted = errors.New("app: routes are not mounted")

// App represents the main application instance.
// It manages the lifecycle and coordination of all application components.
type App struct {
	cfg             *config.Config
	logger          logger.Logger
	server          ServerRunner
	registry        *ModuleRegistry
	pipeline        *server.Pipeline
	signalHandler   SignalHandler
	timeoutProvider TimeoutProvider
	probes          []HealthProbe

	mu        sync.Mutex
	store     *route.Store
	cache     *openapi.Cache
	specPath  string
	bulkPath  string
	mountDone bool
}

// New creates an application from the environment's configuration.
func New() (*App, error) {
	return NewWithOptions(nil)
}

// NewWithOptions creates an application, loading configuration with
// opts.ConfigLoader when set.
func NewWithOptions(opts *Options) (*App, error) {
	load := config.Load
	if opts != nil && opts.ConfigLoader != nil {
		load = opts.ConfigLoader
	}
	cfg, err := load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(cfg, opts)
}

// NewWithConfig creates an application from an already loaded config.
func NewWithConfig(cfg *config.Config, opts *Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is nil")
	}
	var log logger.Logger
	if opts != nil && opts.Logger != nil {
		log = opts.Logger
	} else {
		log = logger.New(cfg.Log.Level, cfg.Log.Pretty)
	}

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Env).
		Str("version", cfg.App.Version).
		Msg("Starting application")

	b := newAppBootstrap(cfg, log, opts)
	checker, err := b.checker()
	if err != nil {
		return nil, err
	}
	sh, tp, srv := b.coreComponents()

	a := &App{
		cfg:             cfg,
		logger:          log,
		server:          srv,
		registry:        NewModuleRegistry(&ModuleDeps{Logger: log, Config: cfg}),
		pipeline:        b.pipeline(checker),
		signalHandler:   sh,
		timeoutProvider: tp,
	}
	a.probes = append(a.probes, routesProbe(a), specProbe(a))
	a.probes = append(a.probes, b.opts.Probes...)
	return a, nil
}

// Config returns the application configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Logger returns the application logger.
func (a *App) Logger() logger.Logger { return a.logger }

// Server returns the HTTP server.
func (a *App) Server() ServerRunner { return a.server }

// RegisterModule registers a new module with the application.
func (a *App) RegisterModule(module Module) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mountDone {
		return fmt.Errorf("register module %s: routes already mounted", module.Name())
	}
	return a.registry.Register(module)
}

// Mount resolves every module route, mounts the handlers and serves the
// document and bulk endpoints. It runs once; later calls are no-ops.
func (a *App) Mount() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mountDone {
		return nil
	}

	reg, err := a.registry.BuildRoutes()
	if err != nil {
		return err
	}
	handlers, err := a.registry.Handlers()
	if err != nil {
		return err
	}
	if err := a.pipeline.Mount(a.server.ModuleGroup(), reg, handlers); err != nil {
		return err
	}

	a.store = route.NewStore(reg)
	a.cache = openapi.NewCache(a.store, openapi.NewBuilder(builderOptions(a.cfg)))
	// build eagerly so declaration mistakes fail startup
	if _, err := a.cache.Document(); err != nil {
		return fmt.Errorf("build openapi document: %w", err)
	}

	a.specPath = a.server.MountSpec(a.cache)
	if a.cfg.Bulk.Enabled {
		a.bulkPath = a.server.MountBulk()
	}
	a.server.SetReadyCheck(a.readyCheck)
	a.mountDone = true

	a.logger.Info().
		Int("routes", reg.Len()).
		Str("spec_path", a.specPath).
		Str("bulk_path", a.bulkPath).
		Msg("Routes mounted")
	return nil
}

// Routes returns the current route registry snapshot.
func (a *App) Routes() (*route.Registry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.store == nil {
		return nil, ErrNotMounted
	}
	return a.store.Load(), nil
}

// Document returns the generated OpenAPI document.
func (a *App) Document() (*openapi.Document, error) {
	a.mu.Lock()
	cache := a.cache
	a.mu.Unlock()
	if cache == nil {
		return nil, ErrNotMounted
	}
	return cache.Document()
}
