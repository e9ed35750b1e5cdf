package sink

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shiftpages/funneltrace/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEvent(kind model.EventKind) *model.TrackingEvent {
	return &model.TrackingEvent{
		Page:      "/landing",
		Timestamp: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Event:     kind,
		VisitorID: "visitor_1710406013000_abc123def",
		SessionID: "session_1710406013000_ghi456jkl",
	}
}

func TestREST_Deliver(t *testing.T) {
	t.Parallel()

	t.Run("posts visit events to the track endpoint", func(t *testing.T) {
		t.Parallel()

		var gotPath string
		var gotBody model.TrackingEvent
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want %s", r.Method, http.MethodPost)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %s, want application/json", ct)
			}
			if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
				t.Errorf("failed to decode request body: %v", err)
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]string{"id": "evt-1"})
		}))
		defer server.Close()

		s := NewREST(server.URL, WithRESTLogger(discardLogger()))
		if err := s.Deliver(context.Background(), testEvent(model.EventPageVisit)); err != nil {
			t.Fatalf("Deliver() error = %v", err)
		}

		if gotPath != "/api/analytics/track" {
			t.Errorf("path = %s, want /api/analytics/track", gotPath)
		}
		if gotBody.Event != model.EventPageVisit {
			t.Errorf("event = %s, want %s", gotBody.Event, model.EventPageVisit)
		}
		if gotBody.VisitorID == "" {
			t.Error("visitor id was not forwarded")
		}
	})

	t.Run("routes registrations to the registration endpoint", func(t *testing.T) {
		t.Parallel()

		var gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			json.NewEncoder(w).Encode(map[string]string{"id": "evt-2"})
		}))
		defer server.Close()

		s := NewREST(server.URL, WithRESTLogger(discardLogger()))
		ev := testEvent(model.EventRegistration)
		ev.Page = ""
		ev.RegistrationFields = map[string]string{"email": "a@example.com"}
		if err := s.Deliver(context.Background(), ev); err != nil {
			t.Fatalf("Deliver() error = %v", err)
		}

		if gotPath != "/api/analytics/registration" {
			t.Errorf("path = %s, want /api/analytics/registration", gotPath)
		}
	})

	t.Run("fails on server error status", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()

		s := NewREST(server.URL, WithRESTLogger(discardLogger()))
		if err := s.Deliver(context.Background(), testEvent(model.EventPageVisit)); err == nil {
			t.Error("Deliver() error = nil, want error on status 500")
		}
	})

	t.Run("fails when the backend acknowledges without a record id", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		}))
		defer server.Close()

		s := NewREST(server.URL, WithRESTLogger(discardLogger()))
		if err := s.Deliver(context.Background(), testEvent(model.EventButtonClick)); err == nil {
			t.Error("Deliver() error = nil, want error on missing record id")
		}
	})
}

func TestREST_Name(t *testing.T) {
	t.Parallel()

	s := NewREST("http://127.0.0.1:8343")
	if got := s.Name(); got != "rest" {
		t.Errorf("Name() = %s, want rest", got)
	}
}
