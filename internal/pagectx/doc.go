// Package pagectx extracts the flat attribute set of one page view:
// contact fields and campaign parameters from the URL query string,
// the referrer, and client properties. Extraction is pure and
// side-effect free, so it can be repeated with identical results.
package pagectx
