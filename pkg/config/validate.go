package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for errors that would prevent startup.
func Validate(cfg *Config) error {
	if cfg.Server.ListenAddress == "" {
		return fmt.Errorf("server.listen_address cannot be empty")
	}
	if cfg.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout cannot be negative")
	}

	if cfg.Completion.BaseURL == "" {
		return fmt.Errorf("completion.base_url cannot be empty")
	}
	u, err := url.Parse(cfg.Completion.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("completion.base_url %q is not a valid URL", cfg.Completion.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("completion.base_url scheme must be http or https, got %q", u.Scheme)
	}
	if cfg.Completion.Model == "" {
		return fmt.Errorf("completion.model cannot be empty")
	}
	if cfg.Completion.MaxTokens < 1 {
		return fmt.Errorf("completion.max_tokens must be at least 1, got %d", cfg.Completion.MaxTokens)
	}
	if cfg.Completion.Temperature < 0 || cfg.Completion.Temperature > 2 {
		return fmt.Errorf("completion.temperature must be between 0 and 2, got %g", cfg.Completion.Temperature)
	}
	if cfg.Completion.MaxRetries < 1 {
		return fmt.Errorf("completion.max_retries must be at least 1, got %d", cfg.Completion.MaxRetries)
	}

	switch cfg.Storage.Backend {
	case "sqlite":
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage.path cannot be empty for the sqlite backend")
		}
	case "memory":
		// No further settings required.
	default:
		return fmt.Errorf("storage.backend must be \"sqlite\" or \"memory\", got %q", cfg.Storage.Backend)
	}
	if cfg.Storage.MaxOpenConns < 1 {
		return fmt.Errorf("storage.max_open_conns must be at least 1, got %d", cfg.Storage.MaxOpenConns)
	}

	if cfg.Retention.Enabled {
		if cfg.Retention.MaxIdle <= 0 {
			return fmt.Errorf("retention.max_idle must be positive when retention is enabled")
		}
		if strings.TrimSpace(cfg.Retention.Schedule) == "" {
			return fmt.Errorf("retention.schedule cannot be empty when retention is enabled")
		}
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry.logging.level must be one of debug, info, warn, error, got %q", cfg.Telemetry.Logging.Level)
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry.logging.format must be \"json\" or \"text\", got %q", cfg.Telemetry.Logging.Format)
	}
	if cfg.Telemetry.Metrics.Enabled && !strings.HasPrefix(cfg.Telemetry.Metrics.Path, "/") {
		return fmt.Errorf("telemetry.metrics.path must start with \"/\", got %q", cfg.Telemetry.Metrics.Path)
	}

	return nil
}
