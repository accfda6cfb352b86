// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "WORLDGATE_"

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DATABASE_"`
	Logging  LoggingConfig  `yaml:"logging" envPrefix:"LOG_"`
	Metrics  MetricsConfig  `yaml:"metrics" envPrefix:"METRICS_"`
	Parser   ParserConfig   `yaml:"parser" envPrefix:"PARSER_"`
	Watch    WatchConfig    `yaml:"watch" envPrefix:"WATCH_"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// DatabaseConfig configures the parse-run ledger.
type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"` // "sqlite"
	DSN    string `yaml:"dsn" env:"DSN"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`   // "debug", "info", "warn", "error"
	Format string `yaml:"format" env:"FORMAT"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"` // Enable /metrics endpoint
	Path    string `yaml:"path" env:"PATH"`       // Custom path (default: /metrics)
}

// ParserConfig configures document parsing.
type ParserConfig struct {
	// Strict rejects elements outside the world schema.
	Strict bool `yaml:"strict" env:"STRICT"`

	// MaxDocumentBytes caps accepted documents (default 4 MiB).
	MaxDocumentBytes int64 `yaml:"max_document_bytes" env:"MAX_DOCUMENT_BYTES"`

	// Workers bounds concurrent parses in batch validation.
	Workers int `yaml:"workers" env:"WORKERS"`
}

// WatchConfig configures the document watcher.
type WatchConfig struct {
	Paths    []string      `yaml:"paths" env:"PATHS" envSeparator:","`
	Debounce time.Duration `yaml:"debounce" env:"DEBOUNCE"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return finish(&cfg)
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	WORLDGATE_SERVER_HOST               - Server host (default: 0.0.0.0)
//	WORLDGATE_SERVER_PORT               - Server port (default: 8080)
//	WORLDGATE_DATABASE_DSN              - Ledger database path (default: worldgate.db)
//	WORLDGATE_LOG_LEVEL                 - Log level: debug, info, warn, error (default: info)
//	WORLDGATE_LOG_FORMAT                - Log format: json or console (default: json)
//	WORLDGATE_METRICS_ENABLED           - Enable /metrics endpoint
//	WORLDGATE_PARSER_STRICT             - Reject unknown elements
//	WORLDGATE_PARSER_MAX_DOCUMENT_BYTES - Document size cap (default: 4 MiB)
//	WORLDGATE_WATCH_PATHS               - Comma-separated documents to watch
func LoadFromEnv() (*Config, error) {
	return finish(&Config{})
}

// LoadWithFallback loads path when it exists and falls back to the
// environment otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

func finish(cfg *Config) (*Config, error) {
	// Environment variables always override file-based configuration.
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies WORLDGATE_* environment variables to the config.
// Variables that are not set leave the field alone.
func applyEnvOverrides(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "worldgate.db"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Parser.MaxDocumentBytes == 0 {
		cfg.Parser.MaxDocumentBytes = 4 << 20
	}
	if cfg.Parser.Workers == 0 {
		cfg.Parser.Workers = 4
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 200 * time.Millisecond
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", cfg.Server.Port)
	}

	if cfg.Database.Driver != "sqlite" {
		return fmt.Errorf("database.driver must be 'sqlite', got %q", cfg.Database.Driver)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	if cfg.Parser.MaxDocumentBytes < 0 {
		return fmt.Errorf("parser.max_document_bytes must not be negative")
	}
	if cfg.Parser.Workers < 1 {
		return fmt.Errorf("parser.workers must be at least 1, got %d", cfg.Parser.Workers)
	}

	for i, p := range cfg.Watch.Paths {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("watch.paths[%d] is empty", i)
		}
	}

	return nil
}
