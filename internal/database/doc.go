// Package database provides SQLite-backed storage for tracking events.
// It is the document store behind the collector server and the
// document sink: each event is stored as a JSON payload with a
// server-assigned identifier and timestamp.
package database
