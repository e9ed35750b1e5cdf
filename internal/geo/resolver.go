package geo

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/shiftpages/funneltrace/internal/model"
)

// maxResponseSize limits how much of a geolocation response is read.
// Valid responses are a few hundred bytes.
const maxResponseSize = 64 * 1024

// wireResponse is the upstream JSON contract (the ipapi.co shape).
type wireResponse struct {
	IP          string `json:"ip"`
	City        string `json:"city"`
	Region      string `json:"region"`
	CountryName string `json:"country_name"`
	CountryCode string `json:"country_code"`
	Timezone    string `json:"timezone"`
}

// Resolver performs single-attempt IP geolocation lookups.
type Resolver struct {
	// client is the HTTP client used for lookups. Its timeout bounds
	// the single attempt.
	client *http.Client

	// endpoint is the resolution URL.
	endpoint string

	// logger for structured logging.
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient sets the HTTP client used for lookups.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		r.client = client
	}
}

// WithLogger sets a custom logger for the resolver.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a resolver against the given endpoint.
func NewResolver(endpoint string, opts ...Option) *Resolver {
	r := &Resolver{
		endpoint: endpoint,
		client:   http.DefaultClient,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r
}

// Resolve performs one lookup and returns the location, or nil when
// anything goes wrong: network failure, any non-2xx status (429 rate
// limiting included), or a malformed body. Callers treat nil as "no
// geolocation available" and fall back to explicitly supplied location
// fields. There are no retries and no caching across invocations.
func (r *Resolver) Resolve(ctx context.Context) *model.GeoContext {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint, nil)
	if err != nil {
		r.logger.Debug("geolocation request build failed", "error", err)
		return nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("geolocation request failed", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		r.logger.Debug("geolocation rate limited")
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Debug("geolocation returned non-success status", "status", resp.StatusCode)
		return nil
	}

	var wire wireResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&wire); err != nil {
		r.logger.Debug("geolocation response malformed", "error", err)
		return nil
	}

	return &model.GeoContext{
		IPAddress:   orUnknown(wire.IP),
		City:        orUnknown(wire.City),
		Region:      orUnknown(wire.Region),
		Country:     orUnknown(wire.CountryName),
		CountryCode: orDefault(wire.CountryCode, model.UnknownCountryCode),
		Timezone:    orUnknown(wire.Timezone),
	}
}

// orUnknown substitutes the Unknown placeholder for empty fields.
func orUnknown(v string) string {
	return orDefault(v, model.UnknownLocation)
}

// orDefault returns v, or def when v is empty.
func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
