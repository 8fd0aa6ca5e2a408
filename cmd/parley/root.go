package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley - persistent chat backend for LLM conversations",
	Long: `Parley is a chat backend that persists conversations in SQLite and
streams completions from an OpenAI-compatible API.

It guarantees that every accepted chat request leaves exactly one user turn
and exactly one assistant turn in the transcript, even when the upstream
stream fails partway through.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
}
