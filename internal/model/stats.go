package model

// FunnelStats is the aggregated view of stored tracking events used by
// the analytics report and the collector's stats endpoint.
type FunnelStats struct {
	// TotalEvents is the number of stored events of all kinds.
	TotalEvents int `json:"totalEvents"`

	// Per-kind totals.
	PageVisits    int `json:"pageVisits"`
	PageExits     int `json:"pageExits"`
	ButtonClicks  int `json:"buttonClicks"`
	Registrations int `json:"registrations"`

	// UniqueVisitors is the number of distinct visitor identifiers seen.
	UniqueVisitors int `json:"uniqueVisitors"`

	// AverageDuration is the mean dwell time in seconds across exit
	// events, zero when no exits were recorded.
	AverageDuration float64 `json:"averageDuration"`

	// VisitsByDay maps "YYYY-MM-DD" to visit counts.
	VisitsByDay map[string]int `json:"visitsByDay,omitempty"`

	// VisitsByCountry maps country names to visit counts.
	VisitsByCountry map[string]int `json:"visitsByCountry,omitempty"`

	// VisitsByPage maps page paths to visit counts.
	VisitsByPage map[string]int `json:"visitsByPage,omitempty"`

	// ClicksByButton maps button labels to click counts.
	ClicksByButton map[string]int `json:"clicksByButton,omitempty"`

	// Variants maps hook variant identifiers to their comparison stats.
	// Events without a variant tag are not counted here.
	Variants map[string]*VariantStats `json:"variants,omitempty"`
}

// VariantStats compares funnel performance of one hook variant.
type VariantStats struct {
	// Visits, Clicks, and Registrations are event counts tagged with
	// this variant.
	Visits        int `json:"visits"`
	Clicks        int `json:"clicks"`
	Registrations int `json:"registrations"`

	// UniqueVisitors is the number of distinct visitors who saw this variant.
	UniqueVisitors int `json:"uniqueVisitors"`

	// ConversionRate is Registrations divided by Visits, zero when the
	// variant has no visits.
	ConversionRate float64 `json:"conversionRate"`
}
