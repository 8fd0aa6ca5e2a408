// Package telemetry groups the observability subpackages.
//
//   - logging: slog handler setup driven by config.LoggingConfig
//   - metrics: Prometheus collectors for the chat pipeline
//
// Both subpackages are wired at startup in cmd/parley and passed into the
// components that use them; nothing here is a global beyond the process-wide
// default slog logger that logging.Setup installs.
package telemetry
