package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file, layers PARLEY_* environment
// overrides on top, and validates the result. A missing file is not an
// error: defaults plus environment are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
		// Re-fill anything the file explicitly blanked.
		ApplyDefaults(cfg)
	case os.IsNotExist(err):
		// Defaults plus environment only.
	default:
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies PARLEY_* environment variables, which take
// precedence over file values.
func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if val := os.Getenv(key); val != "" {
			*dst = val
		}
	}
	setDuration := func(key string, dst *Duration) {
		if val := os.Getenv(key); val != "" {
			if d, err := time.ParseDuration(val); err == nil {
				*dst = Duration(d)
			}
		}
	}
	setInt := func(key string, dst *int) {
		if val := os.Getenv(key); val != "" {
			if i, err := strconv.Atoi(val); err == nil {
				*dst = i
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if val := os.Getenv(key); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				*dst = b
			}
		}
	}

	setString("PARLEY_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	setDuration("PARLEY_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	setDuration("PARLEY_SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	setDuration("PARLEY_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	setString("PARLEY_COMPLETION_BASE_URL", &cfg.Completion.BaseURL)
	setString("PARLEY_COMPLETION_API_KEY", &cfg.Completion.APIKey)
	setString("PARLEY_COMPLETION_MODEL", &cfg.Completion.Model)
	setInt("PARLEY_COMPLETION_MAX_TOKENS", &cfg.Completion.MaxTokens)
	setDuration("PARLEY_COMPLETION_TIMEOUT", &cfg.Completion.Timeout)
	setInt("PARLEY_COMPLETION_MAX_RETRIES", &cfg.Completion.MaxRetries)

	// GROQ_API_KEY is honored for compatibility with the upstream vendor's
	// conventional variable name.
	if cfg.Completion.APIKey == "" {
		setString("GROQ_API_KEY", &cfg.Completion.APIKey)
	}

	setString("PARLEY_STORAGE_BACKEND", &cfg.Storage.Backend)
	setString("PARLEY_STORAGE_PATH", &cfg.Storage.Path)
	setInt("PARLEY_STORAGE_MAX_OPEN_CONNS", &cfg.Storage.MaxOpenConns)
	setBool("PARLEY_STORAGE_WAL_MODE", &cfg.Storage.WALMode)

	setBool("PARLEY_RETENTION_ENABLED", &cfg.Retention.Enabled)
	setDuration("PARLEY_RETENTION_MAX_IDLE", &cfg.Retention.MaxIdle)
	setString("PARLEY_RETENTION_SCHEDULE", &cfg.Retention.Schedule)

	setString("PARLEY_LOG_LEVEL", &cfg.Telemetry.Logging.Level)
	setString("PARLEY_LOG_FORMAT", &cfg.Telemetry.Logging.Format)
	setBool("PARLEY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
}
