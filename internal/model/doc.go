// Package model defines the core data structures shared across funneltrace:
// tracking events, page context attributes, geolocation results, hook
// variants, CRM contacts, and aggregated funnel statistics.
package model
