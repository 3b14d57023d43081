package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Telegram.Token == "" {
		issues = append(issues, ValidationIssue{
			Path:    "telegram.token",
			Message: "bot token is required (set telegram.token or TELLERBOT_TOKEN)",
		})
	}
	if cfg.Telegram.PollTimeout < 0 || cfg.Telegram.PollTimeout > 300 {
		issues = append(issues, ValidationIssue{
			Path:    "telegram.pollTimeout",
			Message: fmt.Sprintf("must be 0-300 seconds, got %d", cfg.Telegram.PollTimeout),
		})
	}

	if cfg.Cache.Capacity < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "cache.capacity",
			Message: fmt.Sprintf("must be positive, got %d", cfg.Cache.Capacity),
		})
	}
	if cfg.Cache.MessageWeight < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "cache.messageWeight",
			Message: fmt.Sprintf("must be positive, got %d", cfg.Cache.MessageWeight),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	return issues
}
