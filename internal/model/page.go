package model

import "strings"

// PageInfo describes one page view as seen by the integration embedding
// the tracker: the full request URL plus the client properties a browser
// would report. It is the raw input to context extraction.
type PageInfo struct {
	// URL is the full page URL including the query string.
	URL string `json:"url"`

	// Referrer is the document referrer, empty for direct visits.
	Referrer string `json:"referrer,omitempty"`

	// UserAgent is the client's user-agent string.
	UserAgent string `json:"userAgent,omitempty"`

	// Language is the client's preferred language (e.g. "en-US").
	Language string `json:"language,omitempty"`

	// ScreenWidth and ScreenHeight are the client screen dimensions in pixels.
	ScreenWidth  int `json:"screenWidth,omitempty"`
	ScreenHeight int `json:"screenHeight,omitempty"`
}

// ContextAttributes is the flat attribute set extracted from a page's
// URL parameters, referrer, and client properties. Extraction is pure:
// the same PageInfo always yields the same attributes.
type ContextAttributes struct {
	// Page is the URL path of the page.
	Page string

	// SourceURL is the full page URL the attributes came from.
	SourceURL string

	// Contact fields from URL parameters. Empty when not supplied.
	FirstName string
	LastName  string
	FullName  string
	Email     string
	Phone     string

	// Country is an explicitly supplied country (e.g. carried over from
	// a registration form), distinct from geolocation results.
	Country string

	// UTM campaign attribution parameters.
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
	UTMContent  string

	// ReferredBy is the numeric referral identifier, zero when absent.
	ReferredBy int

	// Referrer is the document referrer, "Direct" when none was present.
	Referrer string

	// Client properties copied through from PageInfo.
	UserAgent    string
	Language     string
	ScreenWidth  int
	ScreenHeight int
}

// DisplayName returns the best available visitor name: the full name
// parameter if present, otherwise first and last name joined with a
// single space.
func (a ContextAttributes) DisplayName() string {
	if a.FullName != "" {
		return a.FullName
	}
	parts := make([]string, 0, 2)
	if a.FirstName != "" {
		parts = append(parts, a.FirstName)
	}
	if a.LastName != "" {
		parts = append(parts, a.LastName)
	}
	return strings.Join(parts, " ")
}
