package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

// Config is the complete routekit configuration. Unknown keys remain
// reachable through the Get* accessors.
type Config struct {
	App     AppConfig     `koanf:"app" json:"app" yaml:"app"`
	Server  ServerConfig  `koanf:"server" json:"server" yaml:"server"`
	OpenAPI OpenAPIConfig `koanf:"openapi" json:"openapi" yaml:"openapi"`
	Bulk    BulkConfig    `koanf:"bulk" json:"bulk" yaml:"bulk"`
	Auth    AuthConfig    `koanf:"auth" json:"auth" yaml:"auth"`
	Log     LogConfig     `koanf:"log" json:"log" yaml:"log"`

	k *koanf.Koanf `json:"-" yaml:"-"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name    string `koanf:"name" json:"name" yaml:"name"`
	Version string `koanf:"version" json:"version" yaml:"version"`
	Env     string `koanf:"env" json:"env" yaml:"env"`
	// Debug enables developer output: pretty-printed JSON payloads and error
	// details in responses.
	Debug bool       `koanf:"debug" json:"debug" yaml:"debug"`
	Rate  RateConfig `koanf:"rate" json:"rate" yaml:"rate"`
}

// RateConfig holds per-client rate limiting settings. Limit 0 disables it.
type RateConfig struct {
	Limit int `koanf:"limit" json:"limit" yaml:"limit"`
	Burst int `koanf:"burst" json:"burst" yaml:"burst"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host" json:"host" yaml:"host"`
	Port    int           `koanf:"port" json:"port" yaml:"port"`
	Timeout TimeoutConfig `koanf:"timeout" json:"timeout" yaml:"timeout"`
	Path    PathConfig    `koanf:"path" json:"path" yaml:"path"`
	// BodyLimit is an echo body limit expression such as "10M".
	BodyLimit string `koanf:"bodylimit" json:"bodylimit" yaml:"bodylimit"`
}

// TimeoutConfig holds server timeouts.
type TimeoutConfig struct {
	Read       time.Duration `koanf:"read" json:"read" yaml:"read"`
	Write      time.Duration `koanf:"write" json:"write" yaml:"write"`
	Idle       time.Duration `koanf:"idle" json:"idle" yaml:"idle"`
	Middleware time.Duration `koanf:"middleware" json:"middleware" yaml:"middleware"`
	Shutdown   time.Duration `koanf:"shutdown" json:"shutdown" yaml:"shutdown"`
}

// PathConfig holds the mount points of the built-in endpoints. Spec and Bulk
// are relative to Base.
type PathConfig struct {
	Base   string `koanf:"base" json:"base" yaml:"base"`
	Health string `koanf:"health" json:"health" yaml:"health"`
	Ready  string `koanf:"ready" json:"ready" yaml:"ready"`
	Spec   string `koanf:"spec" json:"spec" yaml:"spec"`
	Bulk   string `koanf:"bulk" json:"bulk" yaml:"bulk"`
}

// OpenAPIConfig holds the document-level metadata of the generated spec.
type OpenAPIConfig struct {
	Title        string             `koanf:"title" json:"title" yaml:"title"`
	Description  string             `koanf:"description" json:"description" yaml:"description"`
	Servers      []string           `koanf:"servers" json:"servers" yaml:"servers"`
	ExternalDocs ExternalDocsConfig `koanf:"externaldocs" json:"externaldocs" yaml:"externaldocs"`
	// BearerAuth adds a "bearerAuth" JWT security scheme to the components.
	BearerAuth bool `koanf:"bearerauth" json:"bearerauth" yaml:"bearerauth"`
}

// ExternalDocsConfig points to human-written API documentation.
type ExternalDocsConfig struct {
	URL         string `koanf:"url" json:"url" yaml:"url"`
	Description string `koanf:"description" json:"description" yaml:"description"`
}

// BulkConfig controls the multipart bulk endpoint.
type BulkConfig struct {
	Enabled  bool  `koanf:"enabled" json:"enabled" yaml:"enabled"`
	MaxParts int   `koanf:"maxparts" json:"maxparts" yaml:"maxparts"`
	MaxBytes int64 `koanf:"maxbytes" json:"maxbytes" yaml:"maxbytes"`
}

// AuthConfig holds the JWT settings of the capability checker. An empty
// Secret disables capability checks.
type AuthConfig struct {
	Secret string `koanf:"secret" json:"-" yaml:"-"`
	Issuer string `koanf:"issuer" json:"issuer" yaml:"issuer"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}
