// Package geo resolves IP-derived location data for visit enrichment.
// Resolution is best-effort by contract: one outbound request per page
// view, and any failure (rate limiting included) yields nil rather
// than an error. The package also provides the caching proxy handler
// the collector mounts so landing pages never call the upstream
// geolocation API directly.
package geo
