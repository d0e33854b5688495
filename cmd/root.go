package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/estimategenie/quote-engine/internal/config"
)

// cfg is populated before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "quote-engine",
	Short: "Photo-to-quote construction estimation pipeline",
	Long: "Turns project photos and descriptions into itemized construction quotes\n" +
		"via vision analysis, tiered AI reasoning, and a hot-reloading price catalog.",
	SilenceUsage:      true,
	PersistentPreRunE: initRuntime,
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = zap.L().Sync()
	},
}

func initRuntime(*cobra.Command, []string) error {
	c, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = c
	if err := config.InitLogger(cfg.Log); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
