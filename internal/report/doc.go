// Package report aggregates stored tracking events into funnel
// statistics and renders them in multiple output formats.
//
// ComputeStats produces one FunnelStats value from a list of stored
// events. Writers render that value as human-readable text, JSON, or
// Markdown; a MultiWriter fans one report out to several destinations.
package report
