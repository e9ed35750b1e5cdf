// Package log provides a privacy-preserving slog handler for funneltrace.
// Tracking code routinely touches visitor PII (email addresses, phone
// numbers, IP addresses) and API credentials; the handler in this
// package masks those attribute values before they reach the underlying
// handler so log output can be shipped or shared safely.
package log
