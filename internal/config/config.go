// Package config loads and validates tellerbot configuration.
package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Config is the root configuration for tellerbot.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Receipt  ReceiptConfig  `yaml:"receipt,omitempty"`
	Database DatabaseConfig `yaml:"database,omitempty"`
	Cache    CacheConfig    `yaml:"cache,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`

	// Admins is the static allow-list of administrator chat ids. The
	// admin flag of a principal is derived from it once, at creation.
	Admins []int64 `yaml:"admins,omitempty"`
}

// TelegramConfig configures the Bot API transport.
type TelegramConfig struct {
	Token       string `yaml:"token"`
	BaseURL     string `yaml:"baseUrl,omitempty"`     // override for tests/proxies
	PollTimeout int    `yaml:"pollTimeout,omitempty"` // long-poll timeout, seconds
}

// ReceiptConfig configures the receipt document fetch step.
type ReceiptConfig struct {
	TimeoutSeconds int `yaml:"timeoutSeconds,omitempty"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Path string `yaml:"path,omitempty"` // default <data>/tellerbot.db
}

// CacheConfig configures the identity and message caches.
type CacheConfig struct {
	Capacity      int `yaml:"capacity,omitempty"`      // weight budget per cache
	MessageWeight int `yaml:"messageWeight,omitempty"` // weight of a message-id entry
	SlidingHours  int `yaml:"slidingHours,omitempty"`
	AbsoluteDays  int `yaml:"absoluteDays,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Telegram: TelegramConfig{
			PollTimeout: 50,
		},
		Receipt: ReceiptConfig{
			TimeoutSeconds: 30,
		},
		Cache: CacheConfig{
			Capacity:      1024,
			MessageWeight: 1,
			SlidingHours:  1,
			AbsoluteDays:  1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
