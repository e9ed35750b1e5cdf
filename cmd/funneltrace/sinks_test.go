package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/shiftpages/funneltrace/internal/config"
)

// TestBuildSink tests sink construction from configuration.
func TestBuildSink(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("rest", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.Sink = config.SinkREST

		s, cleanup, err := buildSink(cfg, logger)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer cleanup()
		if s.Name() != "rest" {
			t.Errorf("sink = %s, want rest", s.Name())
		}
	})

	t.Run("document", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.Sink = config.SinkDocument
		cfg.DBDir = t.TempDir()

		s, cleanup, err := buildSink(cfg, logger)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Name() != "document" {
			t.Errorf("sink = %s, want document", s.Name())
		}
		if err := cleanup(); err != nil {
			t.Errorf("cleanup error = %v", err)
		}
	})

	t.Run("versioned", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.Sink = config.SinkVersioned
		cfg.ContentsOwner = "shiftpages"
		cfg.ContentsRepo = "landing-data"
		cfg.ContentsToken = "token"

		s, cleanup, err := buildSink(cfg, logger)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer cleanup()
		if s.Name() != "versioned" {
			t.Errorf("sink = %s, want versioned", s.Name())
		}
	})

	t.Run("unknown strategy fails", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.Sink = "carrier-pigeon"

		if _, _, err := buildSink(cfg, logger); err == nil {
			t.Error("expected error for unknown sink")
		}
	})
}
