package config

import (
	"fmt"
	"strings"
)

// ConfigError describes a configuration problem with an actionable hint.
// Messages are lowercase following Go conventions.
//
//nolint:revive // ConfigError is intentionally named for clarity in external API usage
type ConfigError struct {
	Category string // "missing" or "invalid"
	Field    string // config key path, e.g. "server.port"
	Message  string
	Action   string
}

// Error implements error.
func (e *ConfigError) Error() string {
	parts := make([]string, 0, 4)
	if e.Category != "" {
		parts = append(parts, fmt.Sprintf("config_%s:", e.Category))
	}
	for _, p := range []string{e.Field, e.Message, e.Action} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// NewMissingFieldError creates an error for a required field without a value.
func NewMissingFieldError(field, envVar, yamlPath string) *ConfigError {
	return &ConfigError{
		Category: "missing",
		Field:    field,
		Message:  "required",
		Action:   fmt.Sprintf("set %s env var or add %s to config.yaml", envVar, yamlPath),
	}
}

// NewInvalidFieldError creates an error for a value outside validOptions.
func NewInvalidFieldError(field, message string, validOptions []string) *ConfigError {
	err := &ConfigError{Category: "invalid", Field: field, Message: message}
	if len(validOptions) > 0 {
		err.Action = "must be one of: " + strings.Join(validOptions, ", ")
	}
	return err
}

// NewValidationError creates a general invalid-value error.
func NewValidationError(field, message string) *ConfigError {
	return &ConfigError{Category: "invalid", Field: field, Message: message}
}
