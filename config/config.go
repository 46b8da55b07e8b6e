// Package config loads routekit configuration from defaults, YAML files and
// environment variables using koanf.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Load loads configuration with priority (highest first):
//  1. environment variables (APP_DEBUG -> app.debug)
//  2. config.<env>.yaml
//  3. config.yaml
//  4. defaults
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// YAML files are optional
	_ = k.Load(file.Provider("config.yaml"), yaml.Parser())
	if env := k.String("app.env"); env != "" {
		_ = k.Load(file.Provider(fmt.Sprintf("config.%s.yaml", env)), yaml.Parser())
	}

	if err := loadEnv(k); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return finish(k)
}

// LoadFromBytes loads defaults overlaid with the given YAML document. The
// environment is not consulted.
func LoadFromBytes(data []byte) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if len(data) > 0 {
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	}

	return finish(k)
}

func finish(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnv(k *koanf.Koanf) error {
	return k.Load(envprovider.Provider(".", envprovider.Opt{
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ReplaceAll(strings.ToLower(key), "_", ".")
			// Comma separated values become lists (OPENAPI_SERVERS=a,b)
			if strings.Contains(value, ",") {
				return key, strings.Split(value, ",")
			}
			return key, value
		},
	}), nil)
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":       "routekit",
		"app.version":    "v1.0.0",
		"app.env":        EnvDevelopment,
		"app.debug":      false,
		"app.rate.limit": 0,
		"app.rate.burst": 0,

		"server.host":               "0.0.0.0",
		"server.port":               8080,
		"server.bodylimit":          "10M",
		"server.timeout.read":       "15s",
		"server.timeout.write":      "30s",
		"server.timeout.idle":       "60s",
		"server.timeout.middleware": "10s",
		"server.timeout.shutdown":   "10s",
		"server.path.base":          "",
		"server.path.health":        "/health",
		"server.path.ready":         "/ready",
		"server.path.spec":          "/openapi.json",
		"server.path.bulk":          "/bulk",

		"openapi.title":                    "routekit API",
		"openapi.description":              "",
		"openapi.externaldocs.url":         "https://github.com/gaborage/routekit",
		"openapi.externaldocs.description": "Project documentation",
		"openapi.bearerauth":               false,

		"bulk.enabled":  true,
		"bulk.maxparts": 50,
		"bulk.maxbytes": 5 << 20,

		"log.level":  "info",
		"log.pretty": false,
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}

// GetString returns a raw configuration value by key, or the default.
func (c *Config) GetString(key string, defaultVal ...string) string {
	if c == nil || c.k == nil || !c.k.Exists(key) {
		if len(defaultVal) > 0 {
			return defaultVal[0]
		}
		return ""
	}
	return c.k.String(key)
}

// GetInt returns a raw configuration value by key, or the default.
func (c *Config) GetInt(key string, defaultVal ...int) int {
	if c == nil || c.k == nil || !c.k.Exists(key) {
		if len(defaultVal) > 0 {
			return defaultVal[0]
		}
		return 0
	}
	return c.k.Int(key)
}

// GetBool returns a raw configuration value by key, or the default.
func (c *Config) GetBool(key string, defaultVal ...bool) bool {
	if c == nil || c.k == nil || !c.k.Exists(key) {
		if len(defaultVal) > 0 {
			return defaultVal[0]
		}
		return false
	}
	return c.k.Bool(key)
}

// IsDevelopment reports whether details may be exposed to clients.
func (c *Config) IsDevelopment() bool {
	return c != nil && (c.App.Env == EnvDevelopment || c.App.Env == envAliasDev)
}
