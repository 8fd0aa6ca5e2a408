package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"parleyhq/parley/pkg/api"
	"parleyhq/parley/pkg/chat"
	"parleyhq/parley/pkg/completion"
	"parleyhq/parley/pkg/config"
	"parleyhq/parley/pkg/retention"
	"parleyhq/parley/pkg/server"
	"parleyhq/parley/pkg/store"
	"parleyhq/parley/pkg/telemetry/logging"
	"parleyhq/parley/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Parley chat server",
	Long: `Start the chat server with the specified configuration.

The server persists conversations in the configured store and relays
completions from the configured upstream API.

Examples:
  # Start with default config
  parley run

  # Start with custom config
  parley run --config /etc/parley/config.yaml

  # Override listen address
  parley run --listen 0.0.0.0:8080

  # Validate config without starting the server
  parley run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logging.Setup(cfg.Telemetry.Logging, nil)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	registry := metrics.NewRegistry()
	chatMetrics := metrics.NewChatMetrics(registry)

	ts, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer ts.Close()

	client, err := completion.New(completion.Config{
		BaseURL:     cfg.Completion.BaseURL,
		APIKey:      cfg.Completion.APIKey,
		Model:       cfg.Completion.Model,
		MaxTokens:   cfg.Completion.MaxTokens,
		Temperature: cfg.Completion.Temperature,
		Timeout:     cfg.Completion.Timeout.Std(),
		MaxRetries:  cfg.Completion.MaxRetries,
		OnRetry:     func(int) { chatMetrics.RecordRetry() },
	})
	if err != nil {
		return fmt.Errorf("failed to create completion client: %w", err)
	}
	defer client.Close()

	completer := chat.CompleterFunc(func(ctx context.Context, turns []completion.Turn) (chat.Stream, error) {
		return client.Open(ctx, turns)
	})

	orchestrator := chat.NewOrchestrator(ts, completer,
		chat.WithFallbackMessage(cfg.Chat.FallbackMessage),
		chat.WithDefaultTitle(cfg.Chat.DefaultTitle),
		chat.WithMetrics(chatMetrics),
	)

	handler := api.NewHandler(ts, orchestrator,
		api.WithCredentialValidator(client),
		api.WithMetrics(chatMetrics),
		api.WithVersion(Version),
	)

	var metricsHandler http.Handler
	if cfg.Telemetry.Metrics.Enabled {
		metricsHandler = metrics.Handler(registry)
	}

	if cfg.Retention.Enabled {
		rs, ok := ts.(retention.Store)
		if !ok {
			return fmt.Errorf("storage backend %q does not support retention", cfg.Storage.Backend)
		}
		janitor, err := retention.New(rs, cfg.Retention.MaxIdle.Std(), cfg.Retention.Schedule)
		if err != nil {
			return err
		}
		janitor.Start()
		defer janitor.Stop()
	}

	srv := server.New(cfg.Server, handler.Routes(), cfg.Telemetry.Metrics.Path, metricsHandler)
	return srv.Start(cmd.Context())
}

// newStore creates the transcript store selected by the configuration.
func newStore(cfg *config.Config) (store.TranscriptStore, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		return store.NewSQLiteStore(&store.SQLiteConfig{
			Path:         cfg.Storage.Path,
			MaxOpenConns: cfg.Storage.MaxOpenConns,
			MaxIdleConns: cfg.Storage.MaxIdleConns,
			WALMode:      cfg.Storage.WALMode,
			BusyTimeout:  cfg.Storage.BusyTimeout.Std(),
		})
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}
