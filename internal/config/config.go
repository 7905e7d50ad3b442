// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	docflowerrors "github.com/tombee/docflow/pkg/errors"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// Config represents the complete Docflow configuration.
type Config struct {
	Definitions DefinitionsConfig `yaml:"definitions"`
	Store       StoreConfig       `yaml:"store"`
	Agent       AgentConfig       `yaml:"agent"`
	Resolver    ResolverConfig    `yaml:"resolver"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Log         LogConfig         `yaml:"log"`
}

// DefinitionsConfig configures where workflow definitions are loaded from.
type DefinitionsConfig struct {
	// Dir is the directory searched recursively for definition files
	// (*.yaml, *.yml).
	// Environment: DOCFLOW_DEFINITIONS_DIR
	// Default: ./workflows
	Dir string `yaml:"dir"`
}

// StoreConfig configures run persistence.
type StoreConfig struct {
	// Backend selects the run store: memory, sqlite or postgres.
	// Environment: DOCFLOW_STORE_BACKEND
	// Default: memory
	Backend string `yaml:"backend"`

	// Path is the SQLite database file, used when backend is sqlite.
	// Environment: DOCFLOW_STORE_PATH
	// Default: <config dir>/runs.db
	Path string `yaml:"path,omitempty"`

	// DSN is the Postgres connection string, used when backend is postgres.
	// Environment: DOCFLOW_STORE_DSN
	DSN string `yaml:"dsn,omitempty"`
}

// AgentConfig configures the agent CLI used for analysis and
// semantic workflow matching.
type AgentConfig struct {
	// Command is the agent binary to invoke.
	// Environment: CLAUDE_CLI_PATH
	// Default: claude
	Command string `yaml:"command"`

	// Timeout bounds a single agent invocation.
	// Environment: CLAUDE_TIMEOUT (seconds)
	// Default: 30s
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// RequestsPerMinute rate-limits agent invocations.
	// Zero disables the limiter.
	RequestsPerMinute int `yaml:"requests_per_minute,omitempty"`
}

// ResolverConfig configures the workflow name resolver.
type ResolverConfig struct {
	// Cache selects the match cache: memory or redis.
	// Default: memory
	Cache string `yaml:"cache"`

	// RedisAddr is the Redis address ("host:port"), used when cache is redis.
	// Environment: DOCFLOW_REDIS_ADDR
	RedisAddr string `yaml:"redis_addr,omitempty"`

	// CacheTTL expires cached matches in Redis. Zero keeps them until
	// the key is evicted.
	CacheTTL time.Duration `yaml:"cache_ttl,omitempty"`
}

// TelemetryConfig configures metrics and trace export.
type TelemetryConfig struct {
	// MetricsAddr serves Prometheus metrics on /metrics when non-empty,
	// e.g. ":9464".
	// Environment: DOCFLOW_METRICS_ADDR
	MetricsAddr string `yaml:"metrics_addr,omitempty"`

	// TraceExporter selects span export: none, stdout, otlp-grpc or otlp-http.
	// Environment: DOCFLOW_TRACE_EXPORTER
	// Default: none
	TraceExporter string `yaml:"trace_exporter"`

	// TraceEndpoint is the collector endpoint for the otlp exporters.
	// Environment: DOCFLOW_TRACE_ENDPOINT
	TraceEndpoint string `yaml:"trace_endpoint,omitempty"`

	// Insecure disables TLS on the OTLP gRPC dial.
	Insecure bool `yaml:"insecure,omitempty"`
}

// LogConfig configures logging output.
type LogConfig struct {
	// Level is the minimum level: trace, debug, info, warn, error.
	// Environment: LOG_LEVEL
	// Default: info
	Level string `yaml:"level"`

	// Format selects the handler: json or text.
	// Environment: LOG_FORMAT
	// Default: json
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	// Environment: LOG_SOURCE
	AddSource bool `yaml:"add_source"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Definitions: DefinitionsConfig{
			Dir: "./workflows",
		},
		Store: StoreConfig{
			Backend: "memory",
		},
		Agent: AgentConfig{
			Command: "claude",
			Timeout: 30 * time.Second,
		},
		Resolver: ResolverConfig{
			Cache: "memory",
		},
		Telemetry: TelemetryConfig{
			TraceExporter: "none",
		},
		Log: LogConfig{
			Level:     "info",
			Format:    "json",
			AddSource: false,
		},
	}
}

// Load loads configuration from environment variables and optionally from a
// YAML file. Environment variables take precedence over file-based
// configuration. If configPath is empty, DOCFLOW_CONFIG is consulted, then
// the default XDG location; a missing default file is not an error.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	explicit := configPath != ""
	if configPath == "" {
		configPath = os.Getenv("DOCFLOW_CONFIG")
		explicit = configPath != ""
	}
	if configPath == "" {
		if path, err := ConfigPath(); err == nil {
			configPath = path
		}
	}

	if configPath != "" {
		if err := cfg.loadFromFile(configPath); err != nil {
			// The default location is optional; an explicit path is not.
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, &docflowerrors.ConfigError{
					Key:    "config_file",
					Reason: fmt.Sprintf("failed to load from %s", configPath),
					Cause:  err,
				}
			}
		}
	}

	// Apply defaults to any zero values (handles minimal configs)
	cfg.applyDefaults()

	// Override with environment variables
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, &docflowerrors.ConfigError{
			Key:    "validation",
			Reason: "configuration validation failed",
			Cause:  err,
		}
	}

	return cfg, nil
}

// applyDefaults fills in zero values with sensible defaults.
// This allows minimal configs (e.g., just a store section) to work
// without specifying all fields explicitly.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Definitions.Dir == "" {
		c.Definitions.Dir = defaults.Definitions.Dir
	}

	if c.Store.Backend == "" {
		c.Store.Backend = defaults.Store.Backend
	}

	if c.Agent.Command == "" {
		c.Agent.Command = defaults.Agent.Command
	}
	if c.Agent.Timeout == 0 {
		c.Agent.Timeout = defaults.Agent.Timeout
	}

	if c.Resolver.Cache == "" {
		c.Resolver.Cache = defaults.Resolver.Cache
	}

	if c.Telemetry.TraceExporter == "" {
		c.Telemetry.TraceExporter = defaults.Telemetry.TraceExporter
	}

	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
}

// loadFromFile loads configuration from a YAML file.
func (c *Config) loadFromFile(path string) error {
	// Expand home directory if present
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables.
func (c *Config) loadFromEnv() {
	// Definitions configuration
	if val := os.Getenv("DOCFLOW_DEFINITIONS_DIR"); val != "" {
		c.Definitions.Dir = val
	}

	// Store configuration
	if val := os.Getenv("DOCFLOW_STORE_BACKEND"); val != "" {
		c.Store.Backend = strings.ToLower(val)
	}
	if val := os.Getenv("DOCFLOW_STORE_PATH"); val != "" {
		c.Store.Path = val
	}
	if val := os.Getenv("DOCFLOW_STORE_DSN"); val != "" {
		c.Store.DSN = val
	}

	// Agent configuration
	if val := os.Getenv("CLAUDE_CLI_PATH"); val != "" {
		c.Agent.Command = val
	}
	if val := os.Getenv("CLAUDE_TIMEOUT"); val != "" {
		if secs, err := strconv.Atoi(val); err == nil && secs > 0 {
			c.Agent.Timeout = time.Duration(secs) * time.Second
		}
	}

	// Resolver configuration
	if val := os.Getenv("DOCFLOW_REDIS_ADDR"); val != "" {
		c.Resolver.Cache = "redis"
		c.Resolver.RedisAddr = val
	}

	// Telemetry configuration
	if val := os.Getenv("DOCFLOW_METRICS_ADDR"); val != "" {
		c.Telemetry.MetricsAddr = val
	}
	if val := os.Getenv("DOCFLOW_TRACE_EXPORTER"); val != "" {
		c.Telemetry.TraceExporter = strings.ToLower(val)
	}
	if val := os.Getenv("DOCFLOW_TRACE_ENDPOINT"); val != "" {
		c.Telemetry.TraceEndpoint = val
	}

	// Log configuration
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_SOURCE"); val != "" {
		c.Log.AddSource = val == "1" || strings.ToLower(val) == "true"
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs []string

	// Validate store configuration
	validBackends := map[string]bool{"memory": true, "sqlite": true, "postgres": true}
	if !validBackends[c.Store.Backend] {
		errs = append(errs, fmt.Sprintf("store.backend must be one of [memory, sqlite, postgres], got %q", c.Store.Backend))
	}
	if c.Store.Backend == "postgres" && c.Store.DSN == "" {
		errs = append(errs, "store.dsn is required when store.backend is postgres")
	}

	// Validate agent configuration
	if c.Agent.Timeout <= 0 {
		errs = append(errs, fmt.Sprintf("agent.timeout must be positive, got %v", c.Agent.Timeout))
	}
	if c.Agent.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Sprintf("agent.requests_per_minute must be non-negative, got %d", c.Agent.RequestsPerMinute))
	}

	// Validate resolver configuration
	validCaches := map[string]bool{"memory": true, "redis": true}
	if !validCaches[c.Resolver.Cache] {
		errs = append(errs, fmt.Sprintf("resolver.cache must be one of [memory, redis], got %q", c.Resolver.Cache))
	}
	if c.Resolver.Cache == "redis" && c.Resolver.RedisAddr == "" {
		errs = append(errs, "resolver.redis_addr is required when resolver.cache is redis")
	}

	// Validate telemetry configuration
	validExporters := map[string]bool{"none": true, "stdout": true, "otlp-grpc": true, "otlp-http": true}
	if !validExporters[c.Telemetry.TraceExporter] {
		errs = append(errs, fmt.Sprintf("telemetry.trace_exporter must be one of [none, stdout, otlp-grpc, otlp-http], got %q", c.Telemetry.TraceExporter))
	}
	if strings.HasPrefix(c.Telemetry.TraceExporter, "otlp") && c.Telemetry.TraceEndpoint == "" {
		errs = append(errs, fmt.Sprintf("telemetry.trace_endpoint is required when telemetry.trace_exporter is %s", c.Telemetry.TraceExporter))
	}

	// Validate log configuration
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level must be one of [trace, debug, info, warn, warning, error], got %q", c.Log.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("log.format must be one of [json, text], got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidConfig, strings.Join(errs, "\n  - "))
	}

	return nil
}

// StorePath returns the SQLite database path, defaulting to runs.db
// inside the config directory when unset.
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "runs.db"), nil
}
