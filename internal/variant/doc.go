// Package variant implements A/B hook-variant selection for landing
// pages. A variant is chosen once per storage lifetime (or forced via
// a URL override), persisted next to the visitor identifier, and
// announced to subscribers so the tracker and CRM tagging can react.
package variant
