package sink

import (
	"context"
	"log/slog"

	"github.com/shiftpages/funneltrace/internal/database"
	"github.com/shiftpages/funneltrace/internal/model"
)

// Document delivers events into the local SQLite document store. The
// store assigns the record identifier and timestamp, so two processes
// writing the same store never collide on identity.
type Document struct {
	db     *database.EventDB
	logger *slog.Logger
}

// NewDocument creates a document sink over an open event store.
func NewDocument(db *database.EventDB, logger *slog.Logger) *Document {
	if logger == nil {
		logger = slog.Default()
	}
	return &Document{db: db, logger: logger}
}

// Name identifies the sink strategy.
func (s *Document) Name() string { return "document" }

// Deliver inserts the event as a new record.
func (s *Document) Deliver(ctx context.Context, event *model.TrackingEvent) error {
	id, err := s.db.InsertEvent(ctx, event)
	if err != nil {
		return err
	}
	s.logger.Debug("event delivered", "sink", s.Name(), "event", event.Event, "record_id", id)
	return nil
}

// DeliverBeacon inserts the event in the background without waiting.
func (s *Document) DeliverBeacon(event *model.TrackingEvent) {
	beacon(s.logger, s.Name(), event, s.Deliver)
}
