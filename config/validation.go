package config

import (
	"errors"
	"net/url"
	"slices"
	"strings"
)

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"

	envAliasDev = "dev"
)

var validEnvs = []string{EnvDevelopment, envAliasDev, EnvStaging, EnvProduction}

// Validate checks cfg and returns every problem found, joined.
func Validate(cfg *Config) error {
	return errors.Join(
		validateApp(&cfg.App),
		validateServer(&cfg.Server),
		validateOpenAPI(&cfg.OpenAPI),
		validateBulk(&cfg.Bulk),
		validateLog(&cfg.Log),
	)
}

func validateApp(cfg *AppConfig) error {
	if cfg.Name == "" {
		return NewMissingFieldError("app.name", "APP_NAME", "app.name")
	}
	if cfg.Version == "" {
		return NewMissingFieldError("app.version", "APP_VERSION", "app.version")
	}
	if !slices.Contains(validEnvs, cfg.Env) {
		return NewInvalidFieldError("app.env", "unknown environment "+cfg.Env, validEnvs)
	}
	if cfg.Rate.Limit < 0 {
		return NewValidationError("app.rate.limit", "must not be negative")
	}
	if cfg.Rate.Burst < 0 {
		return NewValidationError("app.rate.burst", "must not be negative")
	}
	return nil
}

func validateServer(cfg *ServerConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return NewValidationError("server.port", "must be between 1 and 65535")
	}
	if cfg.Timeout.Read <= 0 {
		return NewValidationError("server.timeout.read", "must be positive")
	}
	if cfg.Timeout.Write <= 0 {
		return NewValidationError("server.timeout.write", "must be positive")
	}
	if cfg.Timeout.Middleware < 0 {
		return NewValidationError("server.timeout.middleware", "must not be negative")
	}
	for field, p := range map[string]string{
		"server.path.spec": cfg.Path.Spec,
		"server.path.bulk": cfg.Path.Bulk,
	} {
		if p != "" && !strings.HasPrefix(p, "/") {
			return NewValidationError(field, "must start with /")
		}
	}
	return nil
}

func validateOpenAPI(cfg *OpenAPIConfig) error {
	if cfg.Title == "" {
		return NewMissingFieldError("openapi.title", "OPENAPI_TITLE", "openapi.title")
	}
	for _, s := range cfg.Servers {
		if _, err := url.Parse(s); err != nil {
			return NewValidationError("openapi.servers", "invalid server url "+s)
		}
	}
	if u := cfg.ExternalDocs.URL; u != "" {
		if _, err := url.ParseRequestURI(u); err != nil {
			return NewValidationError("openapi.externaldocs.url", "invalid url")
		}
	}
	return nil
}

func validateBulk(cfg *BulkConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.MaxParts <= 0 {
		return NewValidationError("bulk.maxparts", "must be positive when bulk is enabled")
	}
	if cfg.MaxBytes <= 0 {
		return NewValidationError("bulk.maxbytes", "must be positive when bulk is enabled")
	}
	return nil
}

func validateLog(cfg *LogConfig) error {
	levels := []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}
	if !slices.Contains(levels, strings.ToLower(cfg.Level)) {
		return NewInvalidFieldError("log.level", "invalid log level "+cfg.Level, levels)
	}
	return nil
}
