package sink

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shiftpages/funneltrace/internal/model"
)

// beaconTimeout bounds a best-effort background delivery.
const beaconTimeout = 10 * time.Second

// Sink durably records tracking events.
type Sink interface {
	// Deliver records one event and waits for the outcome.
	Deliver(ctx context.Context, event *model.TrackingEvent) error

	// DeliverBeacon records one event best-effort without blocking the
	// caller: delivery happens in the background with its own timeout,
	// failures are logged and dropped. Used for exit events so leaving
	// the page is never delayed.
	DeliverBeacon(event *model.TrackingEvent)

	// Name identifies the sink strategy for logging.
	Name() string
}

// beacon runs deliver in the background with a detached context.
// The event was fully assembled by the caller, so there is nothing to
// race with; the goroutine owns its copy.
func beacon(logger *slog.Logger, name string, event *model.TrackingEvent, deliver func(context.Context, *model.TrackingEvent) error) {
	ev := *event
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), beaconTimeout)
		defer cancel()

		if err := deliver(ctx, &ev); err != nil {
			logger.Debug("beacon delivery failed",
				"sink", name,
				"event", ev.Event,
				"error", err,
			)
		}
	}()
}

// Fanout delivers each event to several sinks concurrently, e.g. a
// local document store plus the hosted collector. Deliver fails if any
// member fails, after all members were attempted.
type Fanout struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewFanout creates a fan-out sink over the given members.
func NewFanout(logger *slog.Logger, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{sinks: sinks, logger: logger}
}

// Name identifies the sink strategy.
func (f *Fanout) Name() string { return "fanout" }

// Deliver sends the event to all members concurrently and returns the
// first error after every member finished.
func (f *Fanout) Deliver(ctx context.Context, event *model.TrackingEvent) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range f.sinks {
		g.Go(func() error {
			return s.Deliver(ctx, event)
		})
	}
	return g.Wait()
}

// DeliverBeacon forwards the best-effort delivery to all members.
func (f *Fanout) DeliverBeacon(event *model.TrackingEvent) {
	for _, s := range f.sinks {
		s.DeliverBeacon(event)
	}
}
