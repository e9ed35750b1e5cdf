package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shiftpages/funneltrace/internal/collector"
	"github.com/shiftpages/funneltrace/internal/config"
	"github.com/shiftpages/funneltrace/internal/crm"
	"github.com/shiftpages/funneltrace/internal/database"
	"github.com/shiftpages/funneltrace/internal/geo"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tracking collector server",
		Long: `Serve runs the collector backend landing pages deliver events to.

The server ingests tracking and registration events into the local
document store, serves stored events and aggregated statistics, and
proxies IP geolocation lookups with a per-client cache so pages never
hit the rate-limited resolution service directly.

Examples:
  # Run with defaults (listens on 127.0.0.1:8343)
  funneltrace serve

  # Listen on another address
  funneltrace serve --addr 0.0.0.0:8080

  # Use a configuration file with CRM forwarding
  funneltrace serve -c production.yaml`,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("addr", "a", "", "Listen address (default "+config.DefaultCollectorAddress+")")
	cmd.Flags().StringP("config", "c", "", "Configuration file path (default: .funneltrace in current or home directory)")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if addr, err := cmd.Flags().GetString("addr"); err == nil && addr != "" {
		cfg.CollectorAddress = addr
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open event database: %w", err)
	}
	defer db.Close()
	logger.Info("event database opened", "dir", cfg.DBDir)

	opts := []collector.ServerOption{collector.WithServerLogger(logger)}

	if cfg.GeoEndpoint != "" {
		proxy := geo.NewCacheProxy(cfg.GeoEndpoint,
			geo.WithProxyHTTPClient(&http.Client{Timeout: cfg.GeoTimeout}),
			geo.WithProxyLogger(logger))
		opts = append(opts, collector.WithGeoProxy(proxy))
	}

	if cfg.CRMEnabled() {
		client := crm.NewClient(cfg.CRMBaseURL, cfg.CRMWorkspaceID, cfg.CRMAPIKey,
			crm.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
			crm.WithLogger(logger),
			crm.WithDefaultTags(cfg.CRMTagIDs))
		opts = append(opts, collector.WithCRMForwarding(client))
		logger.Info("contact forwarding enabled", "workspace", cfg.CRMWorkspaceID)
	}

	// Shut down gracefully on interrupt.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := collector.NewServer(cfg.CollectorAddress, db, opts...)
	return server.Start(ctx)
}
