package logger

import (
	"net/http"
	"strings"
)

// DefaultMaskValue replaces sensitive values in log output.
const DefaultMaskValue = "***"

// FilterConfig lists the field names masked in log output. Matching is
// case-insensitive and also applies to names containing one of the entries.
type FilterConfig struct {
	SensitiveFields []string
	MaskValue       string
}

// DefaultFilterConfig masks credentials that commonly travel in headers,
// query strings and bulk sub-requests.
func DefaultFilterConfig() *FilterConfig {
	return &FilterConfig{
		SensitiveFields: []string{
			"password", "passwd", "secret",
			"token", "api_key", "apikey",
			"authorization", "cookie", "set-cookie",
			"credential",
		},
		MaskValue: DefaultMaskValue,
	}
}

// SensitiveDataFilter masks values whose key looks sensitive.
type SensitiveDataFilter struct {
	config *FilterConfig
}

// NewSensitiveDataFilter creates a filter; nil config means DefaultFilterConfig.
func NewSensitiveDataFilter(config *FilterConfig) *SensitiveDataFilter {
	if config == nil {
		config = DefaultFilterConfig()
	}
	if config.MaskValue == "" {
		config.MaskValue = DefaultMaskValue
	}
	return &SensitiveDataFilter{config: config}
}

// FilterString masks value when key is sensitive.
func (f *SensitiveDataFilter) FilterString(key, value string) string {
	if f.isSensitiveField(key) {
		return f.config.MaskValue
	}
	return value
}

// FilterValue masks value when key is sensitive and descends into string
// maps and http.Header values.
func (f *SensitiveDataFilter) FilterValue(key string, value any) any {
	if f.isSensitiveField(key) {
		return f.config.MaskValue
	}
	switch v := value.(type) {
	case map[string]any:
		return f.FilterFields(v)
	case http.Header:
		return f.FilterHeaders(v)
	case map[string][]string:
		return map[string][]string(f.FilterHeaders(http.Header(v)))
	default:
		return value
	}
}

// FilterFields returns a copy of fields with sensitive entries masked.
func (f *SensitiveDataFilter) FilterFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = f.FilterValue(k, v)
	}
	return out
}

// FilterHeaders returns a copy of h with sensitive header values masked.
func (f *SensitiveDataFilter) FilterHeaders(h http.Header) http.Header {
	if h == nil {
		return nil
	}
	out := make(http.Header, len(h))
	for k, vals := range h {
		if f.isSensitiveField(k) {
			out[k] = []string{f.config.MaskValue}
			continue
		}
		out[k] = append([]string(nil), vals...)
	}
	return out
}

func (f *SensitiveDataFilter) isSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range f.config.SensitiveFields {
		if lower == s || strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
