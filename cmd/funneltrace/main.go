// Package main provides the entry point for the funneltrace CLI.
//
// Funneltrace instruments landing-page funnels: it records visits,
// clicks, registrations, and exits, serves the collector backend they
// are delivered to, and reports aggregated funnel statistics.
//
// Usage:
//
//	funneltrace track visit --url <page-url>
//	funneltrace serve
//	funneltrace report --markdown
//
// See --help for all available options.
package main

// main is the entry point for funneltrace.
func main() {
	Execute()
}
