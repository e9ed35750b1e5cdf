package tracker

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shiftpages/funneltrace/internal/geo"
	"github.com/shiftpages/funneltrace/internal/identity"
	"github.com/shiftpages/funneltrace/internal/model"
	"github.com/shiftpages/funneltrace/internal/pagectx"
	"github.com/shiftpages/funneltrace/internal/sink"
)

// DefaultHiddenThreshold is the minimum absence after which time spent
// away from the page is excluded from the dwell duration. Short tab
// switches still count as time on page.
const DefaultHiddenThreshold = time.Second

// Clock abstracts time for dwell measurement.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Tracker builds tracking events and delivers them through a sink.
// It is safe for concurrent use; per-page-view state lives in Session.
type Tracker struct {
	sink   sink.Sink
	store  *identity.Store
	geo    *geo.Resolver
	logger *slog.Logger
	clock  Clock

	// excludePath suppresses visit tracking on matching page paths,
	// so internal dashboards don't count themselves.
	excludePath string

	hiddenThreshold time.Duration
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithLogger sets a custom logger for the tracker.
func WithLogger(logger *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// WithGeoResolver enables IP geolocation on visit events.
func WithGeoResolver(resolver *geo.Resolver) TrackerOption {
	return func(t *Tracker) {
		t.geo = resolver
	}
}

// WithClock sets the clock used for timestamps and dwell measurement.
func WithClock(clock Clock) TrackerOption {
	return func(t *Tracker) {
		t.clock = clock
	}
}

// WithExcludePath suppresses visit tracking on pages whose path
// contains the given substring. Empty disables exclusion.
func WithExcludePath(fragment string) TrackerOption {
	return func(t *Tracker) {
		t.excludePath = fragment
	}
}

// WithHiddenThreshold sets the minimum absence excluded from dwell time.
func WithHiddenThreshold(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		if d > 0 {
			t.hiddenThreshold = d
		}
	}
}

// NewTracker creates a tracker delivering through s, using store for
// visitor identity.
func NewTracker(s sink.Sink, store *identity.Store, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		sink:            s,
		store:           store,
		clock:           systemClock{},
		hiddenThreshold: DefaultHiddenThreshold,
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.logger == nil {
		t.logger = slog.Default()
	}

	return t
}

// Session tracks one page view. It is created by StartSession and is
// safe for concurrent use.
type Session struct {
	tracker *Tracker

	visitorID string
	sessionID string
	attrs     model.ContextAttributes
	variant   model.VariantSelection

	mu sync.Mutex
	// entry anchors dwell measurement; shifted forward after long absences.
	entry    time.Time
	hiddenAt time.Time

	exitOnce sync.Once
}

// StartSession opens a session for one page view. The variant records
// which A/B hook the visitor was shown; pass the zero value when the
// page has no hook.
func (t *Tracker) StartSession(page model.PageInfo, variant model.VariantSelection) (*Session, error) {
	attrs, err := pagectx.Extract(page)
	if err != nil {
		return nil, err
	}

	s := &Session{
		tracker:   t,
		visitorID: t.store.GetOrCreateVisitorID(),
		sessionID: identity.NewSessionID(),
		attrs:     attrs,
		variant:   variant,
		entry:     t.clock.Now(),
	}

	t.logger.Debug("session started",
		"session_id", s.sessionID,
		"page", attrs.Page,
		"variant", variant.ID)

	return s, nil
}

// VisitorID returns the long-lived visitor identifier of this session.
func (s *Session) VisitorID() string { return s.visitorID }

// SessionID returns the identifier correlating this page view's events.
func (s *Session) SessionID() string { return s.sessionID }

// Attributes returns the context attributes extracted at session start.
func (s *Session) Attributes() model.ContextAttributes { return s.attrs }

// Variant returns the A/B hook variant shown to the visitor.
func (s *Session) Variant() model.VariantSelection { return s.variant }

// TrackVisit records the page visit. On excluded pages it returns nil
// without delivering anything. Geolocation failures degrade to a visit
// without location fields; an explicit country URL parameter still wins
// over the resolved country.
func (s *Session) TrackVisit(ctx context.Context) *model.TrackingEvent {
	t := s.tracker
	if t.excludePath != "" && strings.Contains(s.attrs.Page, t.excludePath) {
		t.logger.Debug("visit not tracked on excluded page", "page", s.attrs.Page)
		return nil
	}

	event := s.baseEvent(model.EventPageVisit)
	if t.geo != nil {
		if loc := t.geo.Resolve(ctx); loc != nil {
			event.IPAddress = loc.IPAddress
			event.City = loc.City
			event.Region = loc.Region
			event.CountryCode = loc.CountryCode
			event.Timezone = loc.Timezone
			if event.Country == "" || event.Country == model.UnknownLocation {
				event.Country = loc.Country
			}
		}
	}

	s.deliver(ctx, event)
	return event
}

// HiddenChanged records a page visibility change. Absences longer than
// the hidden threshold are excluded from the dwell duration by shifting
// the session entry point forward.
func (s *Session) HiddenChanged(hidden bool) {
	now := s.tracker.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if hidden {
		s.hiddenAt = now
		return
	}
	if s.hiddenAt.IsZero() {
		return
	}

	if away := now.Sub(s.hiddenAt); away > s.tracker.hiddenThreshold {
		s.entry = s.entry.Add(away)
		s.tracker.logger.Debug("absence excluded from dwell time",
			"session_id", s.sessionID,
			"away", away)
	}
	s.hiddenAt = time.Time{}
}

// TrackExit records the page exit with the dwell duration in whole
// seconds. Only the first call delivers; later calls return nil. The
// event goes out as a beacon so exit delivery never blocks page unload.
func (s *Session) TrackExit() *model.TrackingEvent {
	return s.trackExit(func(event *model.TrackingEvent) {
		s.tracker.sink.DeliverBeacon(event)
	})
}

// TrackExitAwait records the page exit like TrackExit but waits for
// delivery, for callers that terminate right after (one-shot commands).
func (s *Session) TrackExitAwait(ctx context.Context) *model.TrackingEvent {
	return s.trackExit(func(event *model.TrackingEvent) {
		s.deliver(ctx, event)
	})
}

func (s *Session) trackExit(send func(*model.TrackingEvent)) *model.TrackingEvent {
	var event *model.TrackingEvent
	s.exitOnce.Do(func() {
		now := s.tracker.clock.Now()

		s.mu.Lock()
		dwell := now.Sub(s.entry)
		s.mu.Unlock()

		event = s.baseEvent(model.EventPageExit)
		event.SetDuration(int(dwell.Seconds()))

		send(event)
		s.tracker.logger.Debug("exit tracked",
			"session_id", s.sessionID,
			"duration", *event.Duration)
	})
	return event
}

// TrackClick records a call-to-action click with the given button label.
func (s *Session) TrackClick(ctx context.Context, buttonName string) *model.TrackingEvent {
	event := s.baseEvent(model.EventButtonClick)
	event.ButtonName = buttonName
	s.deliver(ctx, event)
	return event
}

// TrackRegistration records a registration form submission with the
// submitted fields.
func (s *Session) TrackRegistration(ctx context.Context, fields map[string]string) *model.TrackingEvent {
	event := s.baseEvent(model.EventRegistration)
	event.RegistrationFields = fields
	s.deliver(ctx, event)
	return event
}

// baseEvent builds an event with the fields shared by all kinds.
func (s *Session) baseEvent(kind model.EventKind) *model.TrackingEvent {
	a := s.attrs
	return &model.TrackingEvent{
		Page:         a.Page,
		Timestamp:    s.tracker.clock.Now().UTC(),
		Event:        kind,
		VisitorID:    s.visitorID,
		SessionID:    s.sessionID,
		Referrer:     a.Referrer,
		UserAgent:    a.UserAgent,
		ScreenWidth:  a.ScreenWidth,
		ScreenHeight: a.ScreenHeight,
		Language:     a.Language,
		Email:        a.Email,
		Name:         a.DisplayName(),
		UTMSource:    a.UTMSource,
		UTMMedium:    a.UTMMedium,
		UTMCampaign:  a.UTMCampaign,
		UTMContent:   a.UTMContent,
		ReferredBy:   a.ReferredBy,
		HookVariant:  s.variant.ID,
		Country:      a.Country,
	}
}

// deliver hands the event to the sink. Delivery failures are logged
// and swallowed; tracking must never break the page.
func (s *Session) deliver(ctx context.Context, event *model.TrackingEvent) {
	if err := s.tracker.sink.Deliver(ctx, event); err != nil {
		s.tracker.logger.Warn("event delivery failed",
			"sink", s.tracker.sink.Name(),
			"event", event.Event,
			"error", err)
	}
}
