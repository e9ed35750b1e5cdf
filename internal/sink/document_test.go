package sink

import (
	"context"
	"testing"

	"github.com/shiftpages/funneltrace/internal/database"
	"github.com/shiftpages/funneltrace/internal/model"
)

func TestDocument_Deliver(t *testing.T) {
	t.Parallel()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	s := NewDocument(db, discardLogger())
	if got := s.Name(); got != "document" {
		t.Errorf("Name() = %s, want document", got)
	}

	if err := s.Deliver(context.Background(), testEvent(model.EventPageVisit)); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	count, err := db.CountEvents(context.Background())
	if err != nil {
		t.Fatalf("CountEvents() error = %v", err)
	}
	if count != 1 {
		t.Errorf("stored events = %d, want 1", count)
	}
}

func TestDocument_DeliverRejectsInvalidEvent(t *testing.T) {
	t.Parallel()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	s := NewDocument(db, discardLogger())
	ev := testEvent("page_hover")
	if err := s.Deliver(context.Background(), ev); err == nil {
		t.Error("Deliver() error = nil, want error on unknown event kind")
	}
}
