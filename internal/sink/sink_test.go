package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shiftpages/funneltrace/internal/model"
)

// stubSink records delivered events and can be told to fail.
type stubSink struct {
	name string
	err  error

	mu        sync.Mutex
	delivered []*model.TrackingEvent
}

func (s *stubSink) Name() string { return s.name }

func (s *stubSink) Deliver(_ context.Context, event *model.TrackingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.delivered = append(s.delivered, event)
	return nil
}

func (s *stubSink) DeliverBeacon(event *model.TrackingEvent) {
	go s.Deliver(context.Background(), event)
}

func (s *stubSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delivered)
}

func TestFanout_Deliver(t *testing.T) {
	t.Parallel()

	t.Run("delivers to every sink", func(t *testing.T) {
		t.Parallel()

		first := &stubSink{name: "first"}
		second := &stubSink{name: "second"}
		f := NewFanout(discardLogger(), first, second)

		if err := f.Deliver(context.Background(), testEvent(model.EventPageVisit)); err != nil {
			t.Fatalf("Deliver() error = %v", err)
		}
		if first.count() != 1 || second.count() != 1 {
			t.Errorf("delivered counts = %d, %d, want 1, 1", first.count(), second.count())
		}
	})

	t.Run("reports a failing sink but still delivers to the others", func(t *testing.T) {
		t.Parallel()

		failErr := errors.New("backend unavailable")
		failing := &stubSink{name: "failing", err: failErr}
		healthy := &stubSink{name: "healthy"}
		f := NewFanout(discardLogger(), failing, healthy)

		err := f.Deliver(context.Background(), testEvent(model.EventButtonClick))
		if !errors.Is(err, failErr) {
			t.Errorf("Deliver() error = %v, want %v", err, failErr)
		}
		if healthy.count() != 1 {
			t.Errorf("healthy sink deliveries = %d, want 1", healthy.count())
		}
	})
}

func TestBeacon_DeliversACopyInBackground(t *testing.T) {
	t.Parallel()

	done := make(chan *model.TrackingEvent, 1)
	deliver := func(_ context.Context, event *model.TrackingEvent) error {
		done <- event
		return nil
	}

	original := testEvent(model.EventPageExit)
	beacon(discardLogger(), "test", original, deliver)

	select {
	case got := <-done:
		if got == original {
			t.Error("beacon delivered the caller's event instead of a copy")
		}
		if got.SessionID != original.SessionID {
			t.Errorf("session id = %s, want %s", got.SessionID, original.SessionID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("beacon delivery did not happen")
	}
}
