package model

import (
	"errors"
	"fmt"
	"time"
)

// EventKind identifies the type of a tracking event.
// Every event belongs to exactly one kind.
type EventKind string

// Tracking event kinds. The string values are part of the wire format
// and match what landing-page integrations send.
const (
	// EventPageVisit is recorded once per page load, after the page is ready.
	EventPageVisit EventKind = "page_visit"

	// EventPageExit is recorded when the visitor leaves the page.
	// It carries the dwell duration in whole seconds.
	EventPageExit EventKind = "page_exit"

	// EventButtonClick is recorded when a visitor activates a call-to-action
	// element (register buttons, social share links, and similar).
	EventButtonClick EventKind = "button_click"

	// EventRegistration is recorded when a visitor submits a registration
	// form. It carries the submitted form fields.
	EventRegistration EventKind = "registration"
)

// Valid reports whether k is one of the known event kinds.
func (k EventKind) Valid() bool {
	switch k {
	case EventPageVisit, EventPageExit, EventButtonClick, EventRegistration:
		return true
	}
	return false
}

// Event validation errors.
var (
	// ErrInvalidEventKind is returned when an event carries an unknown kind.
	ErrInvalidEventKind = errors.New("invalid event kind")

	// ErrMissingPage is returned when a visit, exit, or click event has no page path.
	ErrMissingPage = errors.New("event has no page path")

	// ErrNegativeDuration is returned when an exit event carries a negative duration.
	ErrNegativeDuration = errors.New("duration must be non-negative")
)

// TrackingEvent is a single analytics event produced by the tracker and
// delivered to a sink. The JSON field names are the wire format shared
// with the collector backend, so they use the camelCase names the
// landing-page scripts historically sent.
//
// Fields that do not apply to an event kind are left zero and omitted
// from the encoded payload.
type TrackingEvent struct {
	// Page is the path of the page the event happened on.
	Page string `json:"page,omitempty"`

	// Timestamp is when the event was assembled, in UTC.
	// Document-store sinks replace it with a server-assigned time.
	Timestamp time.Time `json:"timestamp"`

	// Event is the kind tag for this event.
	Event EventKind `json:"event"`

	// VisitorID is the long-lived visitor identifier.
	VisitorID string `json:"visitorId,omitempty"`

	// SessionID correlates all events of one page view.
	SessionID string `json:"sessionId,omitempty"`

	// Referrer is the document referrer, or "Direct" when none was present.
	Referrer string `json:"referrer,omitempty"`

	// UserAgent is the visitor's browser user-agent string.
	UserAgent string `json:"userAgent,omitempty"`

	// ScreenWidth and ScreenHeight are the visitor's screen dimensions in pixels.
	ScreenWidth  int `json:"screenWidth,omitempty"`
	ScreenHeight int `json:"screenHeight,omitempty"`

	// Language is the visitor's preferred language as a BCP 47 tag.
	Language string `json:"language,omitempty"`

	// Email and Name are contact details captured from URL parameters,
	// present only when the landing page received them.
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`

	// UTM campaign attribution parameters.
	UTMSource   string `json:"utmSource,omitempty"`
	UTMMedium   string `json:"utmMedium,omitempty"`
	UTMCampaign string `json:"utmCampaign,omitempty"`
	UTMContent  string `json:"utmContent,omitempty"`

	// ReferredBy is the numeric referral identifier from the "ref"
	// URL parameter, or zero when absent.
	ReferredBy int `json:"referredBy,omitempty"`

	// HookVariant is the A/B hook variant shown to the visitor ("A" or
	// "B"), or empty when no variant was selected.
	HookVariant string `json:"hookVariant,omitempty"`

	// Duration is the page dwell time in whole seconds.
	// Only exit events carry it; nil means not applicable.
	Duration *int `json:"duration,omitempty"`

	// ButtonName is the descriptive label of the clicked element.
	// Only click events carry it.
	ButtonName string `json:"buttonName,omitempty"`

	// Geolocation fields resolved from the visitor's IP address.
	// All are absent when resolution failed, except Country which may
	// still come from an explicit URL parameter.
	IPAddress   string `json:"ipAddress,omitempty"`
	City        string `json:"city,omitempty"`
	Region      string `json:"region,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
	Timezone    string `json:"timezone,omitempty"`

	// RegistrationFields holds the submitted form fields of a
	// registration event.
	RegistrationFields map[string]string `json:"registrationFields,omitempty"`
}

// Validate checks the structural invariants of the event.
// It returns a sentinel error describing the first violation found.
func (e *TrackingEvent) Validate() error {
	if !e.Event.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidEventKind, e.Event)
	}

	// Registration events come from form posts and carry no page path;
	// every other kind is tied to a page.
	if e.Page == "" && e.Event != EventRegistration {
		return fmt.Errorf("%w (kind %s)", ErrMissingPage, e.Event)
	}

	if e.Duration != nil && *e.Duration < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeDuration, *e.Duration)
	}

	return nil
}

// SetDuration sets the dwell duration, clamping negative values to zero
// so clock skew can never produce an invalid event.
func (e *TrackingEvent) SetDuration(seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	e.Duration = &seconds
}

// StoredEvent is a tracking event as persisted by the document store,
// together with its server-assigned identity.
type StoredEvent struct {
	// ID is the server-assigned record identifier.
	ID string `json:"id"`

	// ReceivedAt is the server-assigned storage timestamp in UTC.
	ReceivedAt time.Time `json:"receivedAt"`

	// Event is the stored tracking event payload.
	Event TrackingEvent `json:"event"`
}
