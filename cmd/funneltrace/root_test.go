package main

import (
	"bytes"
	"strings"
	"testing"
)

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "funneltrace" {
			t.Errorf("expected use 'funneltrace', got %q", cmd.Use)
		}
	})

	t.Run("has verbose flag", func(t *testing.T) {
		t.Parallel()
		if cmd.PersistentFlags().Lookup("verbose") == nil {
			t.Error("expected persistent verbose flag")
		}
	})

	t.Run("has expected subcommands", func(t *testing.T) {
		t.Parallel()

		want := []string{"track", "serve", "report", "init", "version"}
		for _, name := range want {
			found := false
			for _, sub := range cmd.Commands() {
				if sub.Name() == name {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected subcommand %q", name)
			}
		}
	})
}

// TestVersionCmd tests the version command output.
func TestVersionCmd(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cmd := NewVersionCmd()
	cmd.SetOut(&out)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(out.String(), "funneltrace version") {
		t.Errorf("unexpected version output: %q", out.String())
	}
}

// TestParseFields tests the key=value field parsing.
func TestParseFields(t *testing.T) {
	t.Parallel()

	t.Run("parses pairs", func(t *testing.T) {
		t.Parallel()

		fields, err := parseFields([]string{"email=a@example.com", "note=hello=world"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fields["email"] != "a@example.com" {
			t.Errorf("email = %q, want a@example.com", fields["email"])
		}
		if fields["note"] != "hello=world" {
			t.Errorf("note = %q, want value with embedded equals", fields["note"])
		}
	})

	t.Run("rejects malformed pairs", func(t *testing.T) {
		t.Parallel()

		if _, err := parseFields([]string{"no-separator"}); err == nil {
			t.Error("expected error for pair without separator")
		}
		if _, err := parseFields([]string{"=value"}); err == nil {
			t.Error("expected error for empty key")
		}
	})

	t.Run("empty input yields nil", func(t *testing.T) {
		t.Parallel()

		fields, err := parseFields(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fields != nil {
			t.Errorf("fields = %v, want nil", fields)
		}
	})
}
