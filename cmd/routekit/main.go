// Package main runs the catalog service.
package main

import (
	"log"

	"github.com/gaborage/routekit/config"
	"github.com/gaborage/routekit/examples/catalog"
	"github.com/gaborage/routekit/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	a, _, err := catalog.NewApp(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("Failed to create application")
	}

	appLogger.Info().
		Str("name", cfg.App.Name).
		Str("version", cfg.App.Version).
		Str("env", cfg.App.Env).
		Msg("Starting application")

	if err := a.Run(); err != nil {
		appLogger.Fatal().Err(err).Msg("Application stopped with error")
	}
}
