package config

import "errors"

// Configuration validation errors. Package-level sentinels so callers
// can branch with errors.Is while users still get a readable message.
var (
	// ErrInvalidSink is returned when the sink kind is not one of
	// rest, document, or versioned.
	ErrInvalidSink = errors.New("invalid sink: must be rest, document, or versioned")

	// ErrInvalidTimeout is returned when the HTTP timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidGeoTimeout is returned when geolocation is enabled with
	// a non-positive timeout.
	ErrInvalidGeoTimeout = errors.New("invalid geolocation timeout: must be positive")

	// ErrInvalidHiddenThreshold is returned when the hidden-time
	// threshold is negative.
	ErrInvalidHiddenThreshold = errors.New("invalid hidden threshold: must be non-negative")

	// ErrContentsRepoRequired is returned when the versioned sink is
	// selected without a contents repository.
	ErrContentsRepoRequired = errors.New("versioned sink requires contents owner and repo")

	// ErrContentsTokenRequired is returned when the versioned sink is
	// selected without an API token.
	ErrContentsTokenRequired = errors.New("versioned sink requires a contents API token")

	// ErrCRMPartialConfig is returned when only one of the CRM API key
	// and workspace ID is set.
	ErrCRMPartialConfig = errors.New("CRM config requires both api key and workspace id")
)
