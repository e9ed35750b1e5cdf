// Package tracker assembles funnel tracking events for one page view
// and hands them to a delivery sink.
//
// A Tracker is configured once per process with a sink, an identity
// store, and optional geolocation. Each page view opens a Session,
// which owns the visit, visibility, click, registration, and exit
// events for that view. Sessions never fail the caller on delivery
// problems; sink errors are logged and the page keeps working.
package tracker
