// Package identity manages the tracking identifiers: a long-lived
// visitor ID persisted in a durable state directory, and a fresh
// session ID generated once per page view. It also exposes the small
// key/value state store the hook-variant selector persists into.
package identity
