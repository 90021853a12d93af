// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix namespaces every variable read through ParseEnv.
const EnvPrefix = "STAPLES_"

// ParseEnv loads configuration from STAPLES_-prefixed environment variables.
// Struct tags name the variable without the prefix.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// placeholderMarkers are fragments left behind by copied example env files.
var placeholderMarkers = []string{"your-project-url", "your-anon-key", "placeholder", "changeme"}

// IsPlaceholder reports whether value is empty or still carries an example marker.
func IsPlaceholder(value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return true
	}
	for _, marker := range placeholderMarkers {
		if strings.Contains(value, marker) {
			return true
		}
	}
	return false
}

// ValidateBaseURL checks that raw is a usable absolute http(s) base URL.
func ValidateBaseURL(name, raw string) error {
	raw = strings.TrimSpace(raw)
	if IsPlaceholder(raw) {
		return fmt.Errorf("%s%s is not configured", EnvPrefix, name)
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return fmt.Errorf("%s%s must start with http:// or https://", EnvPrefix, name)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s%s must include a host", EnvPrefix, name)
	}
	return nil
}
