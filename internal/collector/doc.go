// Package collector implements the HTTP backend that receives tracking
// events from landing pages, stores them, and serves analytics.
//
// The server exposes the track and registration ingestion endpoints the
// REST sink posts to, read endpoints for stored events and aggregated
// statistics, and a caching geolocation proxy so pages never call the
// rate-limited resolution service directly.
package collector
