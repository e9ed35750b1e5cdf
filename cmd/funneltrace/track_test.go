package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/shiftpages/funneltrace/internal/database"
	"github.com/shiftpages/funneltrace/internal/model"
)

// writeTrackConfig writes a config file using the document sink with
// isolated storage directories and geolocation disabled.
func writeTrackConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	configPath := filepath.Join(dir, ".funneltrace")
	content := fmt.Sprintf(`sink: document
db_dir: %q
state_dir: %q
geo_endpoint: "off"
`, filepath.Join(dir, "db"), filepath.Join(dir, "state"))

	if err := os.MkdirAll(filepath.Join(dir, "db"), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "state"), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return configPath
}

func openTrackDB(t *testing.T, configPath string) *database.EventDB {
	t.Helper()

	dbDir := filepath.Join(filepath.Dir(configPath), "db")
	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false})
	if err != nil {
		t.Fatalf("failed to open event database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestTrackVisitCmd records a visit through the document sink.
func TestTrackVisitCmd(t *testing.T) {
	configPath := writeTrackConfig(t)

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"track", "visit",
		"-c", configPath,
		"--url", "https://lp.example.com/landing?utm_source=fb&email=a@example.com",
	})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var event model.TrackingEvent
	if err := json.Unmarshal(out.Bytes(), &event); err != nil {
		t.Fatalf("output is not a JSON event: %v\n%s", err, out.String())
	}
	if event.Event != model.EventPageVisit {
		t.Errorf("event = %s, want %s", event.Event, model.EventPageVisit)
	}
	if event.UTMSource != "fb" {
		t.Errorf("utm source = %s, want fb", event.UTMSource)
	}
	if event.HookVariant == "" {
		t.Error("expected a hook variant to be selected")
	}

	db := openTrackDB(t, configPath)
	count, err := db.CountEvents(context.Background())
	if err != nil {
		t.Fatalf("CountEvents() error = %v", err)
	}
	if count != 1 {
		t.Errorf("stored events = %d, want 1", count)
	}
}

// TestTrackClickCmd requires a button label.
func TestTrackClickCmd(t *testing.T) {
	configPath := writeTrackConfig(t)

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"track", "click",
		"-c", configPath,
		"--url", "https://lp.example.com/landing",
	})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error when --button is missing")
	}

	var out bytes.Buffer
	cmd = NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"track", "click",
		"-c", configPath,
		"--url", "https://lp.example.com/landing",
		"--button", "Register Now",
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var event model.TrackingEvent
	if err := json.Unmarshal(out.Bytes(), &event); err != nil {
		t.Fatalf("output is not a JSON event: %v", err)
	}
	if event.ButtonName != "Register Now" {
		t.Errorf("button name = %s, want Register Now", event.ButtonName)
	}
}

// TestTrackExitCmd backdates the session by the dwell flag.
func TestTrackExitCmd(t *testing.T) {
	configPath := writeTrackConfig(t)

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"track", "exit",
		"-c", configPath,
		"--url", "https://lp.example.com/landing",
		"--dwell", "45s",
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var event model.TrackingEvent
	if err := json.Unmarshal(out.Bytes(), &event); err != nil {
		t.Fatalf("output is not a JSON event: %v", err)
	}
	if event.Event != model.EventPageExit {
		t.Errorf("event = %s, want %s", event.Event, model.EventPageExit)
	}
	if event.Duration == nil || *event.Duration < 44 || *event.Duration > 46 {
		t.Errorf("duration = %v, want about 45", event.Duration)
	}
}

// TestTrackRegistrationCmd records a registration with form fields.
func TestTrackRegistrationCmd(t *testing.T) {
	configPath := writeTrackConfig(t)

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"track", "registration",
		"-c", configPath,
		"--field", "email=a@example.com",
		"--field", "first_name=Amina",
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var event model.TrackingEvent
	if err := json.Unmarshal(out.Bytes(), &event); err != nil {
		t.Fatalf("output is not a JSON event: %v", err)
	}
	if event.Event != model.EventRegistration {
		t.Errorf("event = %s, want %s", event.Event, model.EventRegistration)
	}
	if event.RegistrationFields["first_name"] != "Amina" {
		t.Errorf("registration fields = %v, want first_name Amina", event.RegistrationFields)
	}
}

// TestTrackVisitorPersistence checks that two invocations share one
// visitor identifier.
func TestTrackVisitorPersistence(t *testing.T) {
	configPath := writeTrackConfig(t)

	run := func() model.TrackingEvent {
		var out bytes.Buffer
		cmd := NewRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"track", "visit",
			"-c", configPath,
			"--url", "https://lp.example.com/landing",
		})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var event model.TrackingEvent
		if err := json.Unmarshal(out.Bytes(), &event); err != nil {
			t.Fatalf("output is not a JSON event: %v", err)
		}
		return event
	}

	first := run()
	second := run()

	if first.VisitorID != second.VisitorID {
		t.Errorf("visitor ids differ across invocations: %s vs %s", first.VisitorID, second.VisitorID)
	}
	if first.SessionID == second.SessionID {
		t.Error("session ids should differ across invocations")
	}
}
