package model

// UnknownLocation is the placeholder for geolocation fields the
// resolution endpoint did not return.
const UnknownLocation = "Unknown"

// UnknownCountryCode is the placeholder country code for unresolved locations.
const UnknownCountryCode = "XX"

// GeoContext is an IP-derived location resolved once per page view.
// It is ephemeral: merged into the visit event and never persisted on
// its own. A nil *GeoContext means resolution failed entirely; a
// non-nil value may still carry Unknown placeholders for individual
// fields the endpoint omitted.
type GeoContext struct {
	IPAddress   string `json:"ipAddress"`
	City        string `json:"city"`
	Region      string `json:"region"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	Timezone    string `json:"timezone"`
}
