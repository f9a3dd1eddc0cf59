// Package config loads the gateway's configuration: defaults, overridden
// by an optional JSON file, overridden by LIBSQLD_* environment variables
// — the same defaults-then-override layering as the teacher's
// defaults-then-config-table Load, adapted from a SQL-table source to a
// JSON file since the protocol server has no bootstrap database of its
// own, following the JSON-tagged-struct convention oriys-nova's
// internal/config/config.go uses for its own file/env layering.
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"
)

// Config holds every tunable the gateway reads at startup.
type Config struct {
	ListenAddr          string        `json:"listen_addr"`
	StreamIdleTimeout   time.Duration `json:"stream_idle_timeout"`
	BatonBytes          int           `json:"baton_bytes"`
	MaxPipelineRequests int           `json:"max_pipeline_requests"`
	ReadTimeout         time.Duration `json:"read_timeout"`
	WriteTimeout        time.Duration `json:"write_timeout"`
	LogLevel            string        `json:"log_level"`
	LogFormat           string        `json:"log_format"`
	MetricsEnabled      bool          `json:"metrics_enabled"`
	DBPath              string        `json:"db_path"`
	MigrationsDir       string        `json:"migrations_dir"`
	AuthEnabled         bool          `json:"auth_enabled"`
}

// Default returns the gateway's hardcoded defaults.
func Default() *Config {
	return &Config{
		ListenAddr:          ":8080",
		StreamIdleTimeout:   5 * time.Minute,
		BatonBytes:          32,
		MaxPipelineRequests: 1000,
		ReadTimeout:         30 * time.Second,
		WriteTimeout:        30 * time.Second,
		LogLevel:            "info",
		LogFormat:           "text",
		MetricsEnabled:      true,
	}
}

// Load returns the default config, overridden by path (if non-empty and
// present) and then by LIBSQLD_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LIBSQLD_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("LIBSQLD_STREAM_IDLE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.StreamIdleTimeout = d
		}
	}
	if v := os.Getenv("LIBSQLD_BATON_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BatonBytes = n
		}
	}
	if v := os.Getenv("LIBSQLD_MAX_PIPELINE_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxPipelineRequests = n
		}
	}
	if v := os.Getenv("LIBSQLD_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ReadTimeout = d
		}
	}
	if v := os.Getenv("LIBSQLD_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.WriteTimeout = d
		}
	}
	if v := os.Getenv("LIBSQLD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LIBSQLD_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("LIBSQLD_METRICS_ENABLED"); v != "" {
		cfg.MetricsEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("LIBSQLD_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("LIBSQLD_MIGRATIONS_DIR"); v != "" {
		cfg.MigrationsDir = v
	}
	if v := os.Getenv("LIBSQLD_AUTH_ENABLED"); v != "" {
		cfg.AuthEnabled = v == "true" || v == "1"
	}
}
