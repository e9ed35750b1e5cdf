// Package main provides the entry point for the funneltrace CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shiftpages/funneltrace/internal/config"
	"github.com/shiftpages/funneltrace/internal/log"
)

// NewRootCmd creates the root command for funneltrace.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "funneltrace",
		Short: "Landing-page funnel instrumentation and analytics",
		Long: `Funneltrace records landing-page funnel events (visits, clicks,
registrations, exits) and delivers them to a configurable backend.

It ships three delivery strategies (a REST collector, a local document
store, and a versioned repository file), a collector server with a
caching geolocation proxy, and an analytics report over the recorded
events.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewTrackCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// loadConfig builds the configuration from defaults, the optional
// configuration file, and shared flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		configPath = ""
	}
	cfg.ConfigFilePath = configPath

	// An explicitly named config file must exist; otherwise a missing
	// file just means defaults.
	found := config.FindConfigFile(cfg.ConfigFilePath)
	if found != "" {
		file, err := config.LoadConfigFile(found)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
		}
		file.Apply(cfg)
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.Verbose = getVerboseFlag(cmd)
	return cfg, nil
}

// setupLogger creates the privacy-masking structured logger used by all
// commands.
func setupLogger(cfg *config.Config) *slog.Logger {
	return log.NewLogger(os.Stderr, cfg.Verbose)
}
