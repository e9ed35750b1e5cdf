// Package sink provides the durable-delivery abstraction for tracking
// events. A Sink delivers one event at a time; three strategies are
// provided: a REST collector backend, a local SQLite document store,
// and a versioned daily JSON file kept behind a contents API. Every
// sink also offers a best-effort non-blocking delivery mode used for
// page-exit events, where the caller may terminate before an awaited
// request could complete.
package sink
