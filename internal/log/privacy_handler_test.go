package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// newBufferLogger returns a logger writing masked text output into buf.
func newBufferLogger(buf *bytes.Buffer) *slog.Logger {
	handler := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(NewPrivacyHandler(handler))
}

// TestPrivacyHandlerMasksKeys verifies key-based masking.
func TestPrivacyHandlerMasksKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"email key", "email", "a@example.com"},
		{"phone key", "phone_number", "+15551234567"},
		{"ip key", "ip_address", "203.0.113.9"},
		{"api key", "api_key", "cf-key-123"},
		{"mixed case key", "Email", "a@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			logger := newBufferLogger(&buf)

			logger.Info("contact seen", tt.key, tt.value)

			out := buf.String()
			if strings.Contains(out, tt.value) {
				t.Errorf("expected value %q to be masked, got: %s", tt.value, out)
			}
			if !strings.Contains(out, MaskValue) {
				t.Errorf("expected mask marker in output, got: %s", out)
			}
		})
	}
}

// TestPrivacyHandlerMasksValuePatterns verifies value-based masking for
// PII that arrives under an innocuous key.
func TestPrivacyHandlerMasksValuePatterns(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	logger.Info("field captured", "field_value", "visitor@example.com")

	out := buf.String()
	if strings.Contains(out, "visitor@example.com") {
		t.Errorf("expected email value to be masked, got: %s", out)
	}
}

// TestPrivacyHandlerKeepsOrdinaryAttrs verifies non-PII passes through.
func TestPrivacyHandlerKeepsOrdinaryAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	logger.Info("visit tracked",
		"page", "/landing",
		"visitor_id", "visitor_1700000000000_abc123def",
		"duration", 45,
	)

	out := buf.String()
	for _, want := range []string{"/landing", "visitor_1700000000000_abc123def", "45"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got: %s", want, out)
		}
	}
	if strings.Contains(out, MaskValue) {
		t.Errorf("expected no masking, got: %s", out)
	}
}

// TestPrivacyHandlerWithAttrs verifies attributes added via With are masked.
func TestPrivacyHandlerWithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newBufferLogger(&buf).With("email", "a@example.com")

	logger.Info("upsert")

	if strings.Contains(buf.String(), "a@example.com") {
		t.Errorf("expected With attribute to be masked, got: %s", buf.String())
	}
}

// TestPrivacyHandlerGroups verifies masking recurses into groups.
func TestPrivacyHandlerGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	logger.Info("contact",
		slog.Group("contact",
			slog.String("email", "a@example.com"),
			slog.String("country", "Canada"),
		),
	)

	out := buf.String()
	if strings.Contains(out, "a@example.com") {
		t.Errorf("expected grouped email to be masked, got: %s", out)
	}
	if !strings.Contains(out, "Canada") {
		t.Errorf("expected grouped non-PII to pass through, got: %s", out)
	}
}
