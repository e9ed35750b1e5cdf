package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. Network defaults mirror what the
// landing-page deployments historically used.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "funneltrace"

	// DefaultCollectorAddress is the listen address of the collector
	// server. Loopback by default; deployments behind a reverse proxy
	// override this.
	DefaultCollectorAddress = "127.0.0.1:8343"

	// DefaultBackendURL is the base URL the REST sink posts events to.
	// It matches the default collector address so a local collector
	// works out of the box.
	DefaultBackendURL = "http://127.0.0.1:8343"

	// DefaultGeoEndpoint is the IP geolocation resolution endpoint.
	// The response contract is the ipapi.co JSON shape.
	DefaultGeoEndpoint = "https://ipapi.co/json/"

	// DefaultGeoTimeout bounds the single geolocation attempt. A slow
	// resolver must never hold up visit tracking, so this is short.
	DefaultGeoTimeout = 5 * time.Second

	// DefaultHTTPTimeout is the timeout for sink and CRM requests.
	DefaultHTTPTimeout = 10 * time.Second

	// DefaultExcludePath is the path substring that disables visit
	// tracking, so the analytics dashboard does not count itself.
	DefaultExcludePath = "analytics"

	// DefaultHiddenThreshold is the minimum hidden interval that pauses
	// the dwell timer. Tab switches shorter than this still count as
	// time on page.
	DefaultHiddenThreshold = 1 * time.Second

	// DefaultContentsBranch is the branch the versioned-file sink writes to.
	DefaultContentsBranch = "main"

	// DefaultContentsAPIBaseURL is the contents-API host for the
	// versioned-file sink.
	DefaultContentsAPIBaseURL = "https://api.github.com"

	// DefaultCRMBaseURL is the funnel-management API host.
	DefaultCRMBaseURL = "https://api.myclickfunnels.com"
)

// DefaultCRMTagID is the CRM tag applied to upserted contacts when no
// explicit tags are configured.
const DefaultCRMTagID = 367566

// SinkKind selects the delivery strategy for tracking events.
type SinkKind string

// Known sink strategies.
const (
	// SinkREST posts each event as JSON to the collector backend.
	SinkREST SinkKind = "rest"

	// SinkDocument inserts each event into the local sqlite document store.
	SinkDocument SinkKind = "document"

	// SinkVersioned appends each event to a daily JSON array file kept
	// in a contents-API repository, guarded by a revision token.
	SinkVersioned SinkKind = "versioned"
)

// Valid reports whether k names a known sink strategy.
func (k SinkKind) Valid() bool {
	switch k {
	case SinkREST, SinkDocument, SinkVersioned:
		return true
	}
	return false
}

// Config holds all configuration options for funneltrace. It is a
// single flat struct populated from defaults, the optional YAML file,
// and CLI flags, then passed down explicitly instead of being read from
// global state.
type Config struct {
	// CollectorAddress is the listen address for the collector server.
	CollectorAddress string

	// BackendURL is the base URL the REST sink delivers to.
	BackendURL string

	// Sink selects the delivery strategy for the tracker.
	Sink SinkKind

	// DBDir is the directory holding the sqlite document store.
	// Defaults to the XDG data directory.
	DBDir string

	// StateDir is the directory holding durable client-side state
	// (visitor identifier, persisted hook variant).
	// Defaults to the XDG data directory.
	StateDir string

	// GeoEndpoint is the IP geolocation resolution endpoint.
	// Empty disables geolocation enrichment.
	GeoEndpoint string

	// GeoTimeout bounds the single geolocation attempt per page view.
	GeoTimeout time.Duration

	// HTTPTimeout is the timeout for sink and CRM requests.
	HTTPTimeout time.Duration

	// ExcludePath is a path substring; pages whose path contains it are
	// not visit-tracked.
	ExcludePath string

	// HiddenThreshold is the minimum hidden interval excluded from
	// dwell time.
	HiddenThreshold time.Duration

	// Versioned-file sink settings. Owner, Repo, and Token are required
	// when Sink is SinkVersioned.
	ContentsAPIBaseURL string
	ContentsOwner      string
	ContentsRepo       string
	ContentsBranch     string
	ContentsToken      string

	// CRM settings. The CRM client is enabled only when both
	// CRMWorkspaceID and CRMAPIKey are set.
	CRMBaseURL     string
	CRMWorkspaceID string
	CRMAPIKey      string
	CRMTagIDs      []int

	// Verbose enables debug-level log output.
	Verbose bool

	// ConfigFilePath is an explicit configuration file path. When empty
	// the loader searches the working directory and then the home
	// directory for the default file name.
	ConfigFilePath string
}

// NewConfig creates a Config with all defaults applied. Callers
// override individual fields afterwards from flags or the config file.
func NewConfig() *Config {
	return &Config{
		CollectorAddress:   DefaultCollectorAddress,
		BackendURL:         DefaultBackendURL,
		Sink:               SinkREST,
		DBDir:              XDGDataDir(),
		StateDir:           XDGDataDir(),
		GeoEndpoint:        DefaultGeoEndpoint,
		GeoTimeout:         DefaultGeoTimeout,
		HTTPTimeout:        DefaultHTTPTimeout,
		ExcludePath:        DefaultExcludePath,
		HiddenThreshold:    DefaultHiddenThreshold,
		ContentsAPIBaseURL: DefaultContentsAPIBaseURL,
		ContentsBranch:     DefaultContentsBranch,
		CRMBaseURL:         DefaultCRMBaseURL,
		CRMTagIDs:          []int{DefaultCRMTagID},
	}
}

// XDGDataDir returns the XDG data directory for funneltrace.
// On Linux: ~/.local/share/funneltrace
// On macOS: ~/Library/Application Support/funneltrace
// On Windows: %LOCALAPPDATA%\funneltrace
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for funneltrace.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid. It is called once
// after flag and file merging, before anything opens sockets or files,
// and returns the first violation found as a sentinel error.
func (c *Config) Validate() error {
	if !c.Sink.Valid() {
		return ErrInvalidSink
	}

	if c.HTTPTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.GeoEndpoint != "" && c.GeoTimeout <= 0 {
		return ErrInvalidGeoTimeout
	}

	if c.HiddenThreshold < 0 {
		return ErrInvalidHiddenThreshold
	}

	if c.Sink == SinkVersioned {
		if c.ContentsOwner == "" || c.ContentsRepo == "" {
			return ErrContentsRepoRequired
		}
		if c.ContentsToken == "" {
			return ErrContentsTokenRequired
		}
	}

	// An API key without a workspace (or the reverse) is a half-configured
	// CRM and would fail on every upsert.
	if (c.CRMAPIKey == "") != (c.CRMWorkspaceID == "") {
		return ErrCRMPartialConfig
	}

	return nil
}

// CRMEnabled reports whether contact upserts are configured.
func (c *Config) CRMEnabled() bool {
	return c.CRMAPIKey != "" && c.CRMWorkspaceID != ""
}
