package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/gaborage/routekit/auth"
	"github.com/gaborage/routekit/config"
	"github.com/gaborage/routekit/logger"
	"github.com/gaborage/routekit/openapi"
	"github.com/gaborage/routekit/server"
)

type osSignalHandler struct{}

func (osSignalHandler) Notify(c chan<- os.Signal, sig ...os.Signal) { signal.Notify(c, sig...) }
func (osSignalHandler) Stop(c chan<- os.Signal)                     { signal.Stop(c) }

type stdTimeoutProvider struct{}

func (stdTimeoutProvider) WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}

// appBootstrap handles the initialization sequence for creating an App instance.
type appBootstrap struct {
	cfg  *config.Config
	log  logger.Logger
	opts *Options
}

func newAppBootstrap(cfg *config.Config, log logger.Logger, opts *Options) *appBootstrap {
	if opts == nil {
		opts = &Options{}
	}
	return &appBootstrap{cfg: cfg, log: log, opts: opts}
}

// coreComponents resolves the signal handler, timeout provider and server.
func (b *appBootstrap) coreComponents() (SignalHandler, TimeoutProvider, ServerRunner) {
	var (
		sh SignalHandler   = osSignalHandler{}
		tp TimeoutProvider = stdTimeoutProvider{}
		sr ServerRunner
	)
	if b.opts.SignalHandler != nil {
		sh = b.opts.SignalHandler
	}
	if b.opts.TimeoutProvider != nil {
		tp = b.opts.TimeoutProvider
	}
	if b.opts.Server != nil {
		sr = b.opts.Server
	} else {
		sr = server.New(b.cfg, b.log)
	}
	return sh, tp, sr
}

// checker picks the capability checker: an explicit option, a JWT checker
// when a secret is configured, otherwise one granting everything.
func (b *appBootstrap) checker() (auth.Checker, error) {
	if b.opts.Checker != nil {
		return b.opts.Checker, nil
	}
	if b.cfg.Auth.Secret == "" {
		if b.cfg.App.Env == config.EnvProduction {
			b.log.Warn().Msg("auth.secret is empty; capability checks grant every capability")
		}
		return auth.AllowAll, nil
	}
	c, err := auth.NewJWTChecker(b.cfg.Auth.Secret, b.cfg.Auth.Issuer, b.log)
	if err != nil {
		return nil, fmt.Errorf("create capability checker: %w", err)
	}
	return c, nil
}

func (b *appBootstrap) pipeline(checker auth.Checker) *server.Pipeline {
	return server.NewPipeline(b.cfg, b.log, server.PipelineOptions{
		Checker:  checker,
		Renderer: b.opts.Renderer,
	})
}

// builderOptions maps the openapi config section onto builder options.
// Without configured servers the document points at the base path, since
// its paths are relative to it.
func builderOptions(cfg *config.Config) openapi.Options {
	servers := cfg.OpenAPI.Servers
	if len(servers) == 0 {
		if base := server.BasePath(cfg); base != "" {
			servers = []string{base}
		}
	}
	return openapi.Options{
		Title:       cfg.OpenAPI.Title,
		Version:     cfg.App.Version,
		Description: cfg.OpenAPI.Description,
		Servers:     servers,
		ExternalDocs: openapi.ExternalDocs{
			URL:         cfg.OpenAPI.ExternalDocs.URL,
			Description: cfg.OpenAPI.ExternalDocs.Description,
		},
		BearerAuth: cfg.OpenAPI.BearerAuth,
	}
}
