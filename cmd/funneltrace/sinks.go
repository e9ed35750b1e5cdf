package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shiftpages/funneltrace/internal/config"
	"github.com/shiftpages/funneltrace/internal/database"
	"github.com/shiftpages/funneltrace/internal/sink"
)

// buildSink constructs the configured delivery sink. The returned
// cleanup function releases sink resources and must be called when
// tracking is done; it is a no-op for stateless sinks.
func buildSink(cfg *config.Config, logger *slog.Logger) (sink.Sink, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Sink {
	case config.SinkREST:
		client := &http.Client{Timeout: cfg.HTTPTimeout}
		s := sink.NewREST(cfg.BackendURL,
			sink.WithRESTHTTPClient(client),
			sink.WithRESTLogger(logger))
		return s, noop, nil

	case config.SinkDocument:
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open event database: %w", err)
		}
		return sink.NewDocument(db, logger), db.Close, nil

	case config.SinkVersioned:
		client := &http.Client{Timeout: cfg.HTTPTimeout}
		s := sink.NewVersioned(
			cfg.ContentsAPIBaseURL,
			cfg.ContentsOwner,
			cfg.ContentsRepo,
			cfg.ContentsBranch,
			cfg.ContentsToken,
			sink.WithVersionedHTTPClient(client),
			sink.WithVersionedLogger(logger))
		return s, noop, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrInvalidSink, cfg.Sink)
	}
}
