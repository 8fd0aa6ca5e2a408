package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can be written as Go duration
// strings ("30s", "2m") or as integer seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw interface{}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
		return nil
	case int:
		*d = Duration(time.Duration(v) * time.Second)
		return nil
	default:
		return fmt.Errorf("invalid duration value %v", raw)
	}
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the root configuration structure for Parley.
type Config struct {
	// Server contains HTTP server configuration.
	Server ServerConfig `yaml:"server"`

	// Completion contains the upstream completion endpoint configuration.
	Completion CompletionConfig `yaml:"completion"`

	// Storage contains transcript store configuration.
	Storage StorageConfig `yaml:"storage"`

	// Chat contains orchestrator behavior knobs.
	Chat ChatConfig `yaml:"chat"`

	// Retention contains the optional idle-conversation janitor settings.
	Retention RetentionConfig `yaml:"retention"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8000"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout Duration `yaml:"read_timeout"`

	// IdleTimeout is the keep-alive idle bound.
	// Default: 120s
	IdleTimeout Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the graceful shutdown bound.
	// Default: 30s
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes bounds request header size. Default: 1MB
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS configuration.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted. Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins lists allowed origins; ["*"] allows all.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods lists allowed HTTP methods.
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders lists allowed request headers.
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is the preflight cache age in seconds. Default: 3600
	MaxAge int `yaml:"max_age"`

	// AllowCredentials controls the Allow-Credentials header.
	AllowCredentials bool `yaml:"allow_credentials"`
}

// CompletionConfig contains the upstream completion endpoint configuration.
type CompletionConfig struct {
	// BaseURL is the OpenAI-compatible API base URL.
	// Default: "https://api.groq.com/openai/v1"
	BaseURL string `yaml:"base_url"`

	// APIKey is the bearer credential. Usually supplied via
	// PARLEY_COMPLETION_API_KEY (GROQ_API_KEY is honored as a fallback).
	APIKey string `yaml:"api_key"`

	// Model is the model identifier. Default: "llama-3.3-70b-versatile"
	Model string `yaml:"model"`

	// MaxTokens bounds the generated reply length. Default: 1024
	MaxTokens int `yaml:"max_tokens"`

	// Temperature controls sampling randomness. Default: 0.7
	Temperature float64 `yaml:"temperature"`

	// Timeout bounds the connect phase of each upstream call. Default: 120s
	Timeout Duration `yaml:"timeout"`

	// MaxRetries bounds connect-phase attempts. Default: 3
	MaxRetries int `yaml:"max_retries"`
}

// StorageConfig contains transcript store configuration.
type StorageConfig struct {
	// Backend selects the store implementation: "sqlite" or "memory".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// Path is the SQLite database file path. Default: "data/parley.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the connection pool bound. Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the idle connection bound. Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging. Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the lock wait bound. Default: 5s
	BusyTimeout Duration `yaml:"busy_timeout"`
}

// ChatConfig contains orchestrator behavior knobs.
type ChatConfig struct {
	// DefaultTitle is given to conversations created implicitly.
	// Default: "New Conversation"
	DefaultTitle string `yaml:"default_title"`

	// FallbackMessage is persisted as the assistant turn when the stream
	// yields no content.
	FallbackMessage string `yaml:"fallback_message"`
}

// RetentionConfig contains the idle-conversation janitor settings.
type RetentionConfig struct {
	// Enabled turns the janitor on. Default: false
	Enabled bool `yaml:"enabled"`

	// MaxIdle is the age after which an idle conversation is deleted.
	// Default: 720h (30 days)
	MaxIdle Duration `yaml:"max_idle"`

	// Schedule is the cron expression for sweep runs.
	// Default: "0 3 * * *" (daily at 03:00)
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig contains logging and metrics configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text". Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus exposition configuration.
type MetricsConfig struct {
	// Enabled controls whether /metrics is served. Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the exposition endpoint path. Default: "/metrics"
	Path string `yaml:"path"`
}
