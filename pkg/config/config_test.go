package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ListenAddress != "127.0.0.1:8000" {
		t.Errorf("ListenAddress = %q, want %q", cfg.Server.ListenAddress, "127.0.0.1:8000")
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Backend = %q, want %q", cfg.Storage.Backend, "sqlite")
	}
	if !cfg.Storage.WALMode {
		t.Error("WALMode should default to true")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("Metrics.Enabled should default to true")
	}
	if cfg.Chat.FallbackMessage == "" {
		t.Error("FallbackMessage should have a default")
	}
}

func TestLoadFileValues(t *testing.T) {
	path := writeConfigFile(t, `
server:
  listen_address: "0.0.0.0:9090"
  read_timeout: 15s
completion:
  model: test-model
  max_tokens: 256
  timeout: 60
storage:
  backend: memory
telemetry:
  logging:
    level: debug
    format: text
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("ListenAddress = %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout.Std() != 15*time.Second {
		t.Errorf("ReadTimeout = %v, want 15s", cfg.Server.ReadTimeout.Std())
	}
	if cfg.Completion.Model != "test-model" {
		t.Errorf("Model = %q", cfg.Completion.Model)
	}
	// Integer durations are read as seconds.
	if cfg.Completion.Timeout.Std() != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", cfg.Completion.Timeout.Std())
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Backend = %q, want memory", cfg.Storage.Backend)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Telemetry.Logging.Level)
	}

	// Unset fields keep their defaults.
	if cfg.Completion.BaseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("BaseURL = %q, want default", cfg.Completion.BaseURL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
server:
  listen_address: "0.0.0.0:9090"
completion:
  api_key: from-file
`)

	t.Setenv("PARLEY_SERVER_LISTEN_ADDRESS", "127.0.0.1:7777")
	t.Setenv("PARLEY_COMPLETION_API_KEY", "from-env")
	t.Setenv("PARLEY_STORAGE_BACKEND", "memory")
	t.Setenv("PARLEY_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ListenAddress != "127.0.0.1:7777" {
		t.Errorf("env override lost: ListenAddress = %q", cfg.Server.ListenAddress)
	}
	if cfg.Completion.APIKey != "from-env" {
		t.Errorf("env override lost: APIKey = %q", cfg.Completion.APIKey)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("env override lost: Backend = %q", cfg.Storage.Backend)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("env override lost: Level = %q", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadGroqKeyFallback(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "groq-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Completion.APIKey != "groq-key" {
		t.Errorf("APIKey = %q, want groq-key", cfg.Completion.APIKey)
	}
}

func TestLoadGroqKeyDoesNotShadowPrimary(t *testing.T) {
	t.Setenv("PARLEY_COMPLETION_API_KEY", "primary")
	t.Setenv("GROQ_API_KEY", "fallback")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Completion.APIKey != "primary" {
		t.Errorf("APIKey = %q, want primary", cfg.Completion.APIKey)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "server: [not a mapping")
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"empty listen address", func(c *Config) { c.Server.ListenAddress = "" }, true},
		{"bad base url", func(c *Config) { c.Completion.BaseURL = "not a url" }, true},
		{"bad scheme", func(c *Config) { c.Completion.BaseURL = "ftp://example.com" }, true},
		{"empty model", func(c *Config) { c.Completion.Model = "" }, true},
		{"zero max tokens", func(c *Config) { c.Completion.MaxTokens = 0 }, true},
		{"temperature out of range", func(c *Config) { c.Completion.Temperature = 3.5 }, true},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "postgres" }, true},
		{"memory backend without path", func(c *Config) { c.Storage.Backend = "memory"; c.Storage.Path = "" }, false},
		{"sqlite backend without path", func(c *Config) { c.Storage.Path = "" }, true},
		{"retention enabled without schedule", func(c *Config) { c.Retention.Enabled = true; c.Retention.Schedule = " " }, true},
		{"bad log level", func(c *Config) { c.Telemetry.Logging.Level = "verbose" }, true},
		{"bad log format", func(c *Config) { c.Telemetry.Logging.Format = "logfmt" }, true},
		{"metrics path without slash", func(c *Config) { c.Telemetry.Metrics.Path = "metrics" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDurationUnmarshalRejectsGarbage(t *testing.T) {
	path := writeConfigFile(t, `
server:
  read_timeout: "soon"
`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for unparseable duration")
	}
}
