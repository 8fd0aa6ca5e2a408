package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"parleyhq/parley/pkg/completion"
	"parleyhq/parley/pkg/config"
)

var validateKeyCmd = &cobra.Command{
	Use:   "validate-key",
	Short: "Check the upstream API credential",
	Long: `Issue a minimal completion request to verify that the configured
API key is accepted by the upstream endpoint.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		client, err := completion.New(completion.Config{
			BaseURL:     cfg.Completion.BaseURL,
			APIKey:      cfg.Completion.APIKey,
			Model:       cfg.Completion.Model,
			Timeout:     cfg.Completion.Timeout.Std(),
			MaxRetries:  cfg.Completion.MaxRetries,
			Temperature: cfg.Completion.Temperature,
		})
		if err != nil {
			return fmt.Errorf("failed to create completion client: %w", err)
		}
		defer client.Close()

		v := client.ValidateCredential(cmd.Context())
		if !v.Valid {
			return fmt.Errorf("credential check failed: %s", v.Message)
		}

		fmt.Printf("✓ %s\n", v.Message)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateKeyCmd)
}
