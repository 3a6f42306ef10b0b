package config

import (
	"fmt"
	"strings"

	"github.com/pageforge/pageforge/internal/errors"
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

// validateConfig checks the assembled configuration, collecting every
// problem into a single ConfigError so operators can fix them in one
// pass.
func validateConfig(config *Config) error {
	var violations []errors.Violation

	if config.Server.Port < 1 || config.Server.Port > 65535 {
		violations = append(violations, errors.Violation{
			Path:    "server.port",
			Message: fmt.Sprintf("port %d out of range 1-65535", config.Server.Port),
		})
	}
	if strings.ContainsAny(config.Server.Host, " \t\n") {
		violations = append(violations, errors.Violation{
			Path:    "server.host",
			Message: "host must not contain whitespace",
		})
	}

	if !validLogLevels[config.Log.Level] {
		violations = append(violations, errors.Violation{
			Path:    "log.level",
			Message: fmt.Sprintf("unknown level %q, expected debug, info, warn or error", config.Log.Level),
		})
	}
	if !validLogFormats[config.Log.Format] {
		violations = append(violations, errors.Violation{
			Path:    "log.format",
			Message: fmt.Sprintf("unknown format %q, expected text or json", config.Log.Format),
		})
	}

	if len(config.Experiments.Buckets) == 1 {
		violations = append(violations, errors.Violation{
			Path:    "experiments.buckets",
			Message: "a single bucket makes every assignment identical",
		})
	}
	seen := map[string]bool{}
	for i, bucket := range config.Experiments.Buckets {
		if bucket == "" {
			violations = append(violations, errors.Violation{
				Path:    fmt.Sprintf("experiments.buckets[%d]", i),
				Message: "bucket label must not be empty",
			})
			continue
		}
		if seen[bucket] {
			violations = append(violations, errors.Violation{
				Path:    fmt.Sprintf("experiments.buckets[%d]", i),
				Message: fmt.Sprintf("duplicate bucket label %q", bucket),
			})
		}
		seen[bucket] = true
	}

	for i, id := range config.Plugins.Allowed {
		if strings.TrimSpace(id) == "" {
			violations = append(violations, errors.Violation{
				Path:    fmt.Sprintf("plugins.allowed[%d]", i),
				Message: "plugin id must not be empty",
			})
		}
	}

	if len(violations) > 0 {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid, "invalid configuration").WithViolations(violations)
	}
	return nil
}
