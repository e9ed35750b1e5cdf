package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shiftpages/funneltrace/internal/model"
)

// Collector endpoint paths, matching the collector server's routes.
const (
	trackPath        = "/api/analytics/track"
	registrationPath = "/api/analytics/registration"
)

// maxErrorBodySize limits how much of an error response is read for
// the error message.
const maxErrorBodySize = 4 * 1024

// REST delivers events to a collector backend as JSON POSTs.
// A delivery succeeds on any 2xx response whose body carries the
// assigned record identifier.
type REST struct {
	// client performs the requests; its timeout bounds each delivery.
	client *http.Client

	// baseURL is the collector base URL without a trailing slash.
	baseURL string

	// logger for structured logging.
	logger *slog.Logger
}

// RESTOption configures a REST sink.
type RESTOption func(*REST)

// WithRESTHTTPClient sets the HTTP client used for deliveries.
func WithRESTHTTPClient(client *http.Client) RESTOption {
	return func(s *REST) {
		s.client = client
	}
}

// WithRESTLogger sets a custom logger for the sink.
func WithRESTLogger(logger *slog.Logger) RESTOption {
	return func(s *REST) {
		s.logger = logger
	}
}

// NewREST creates a REST sink against the given collector base URL.
func NewREST(baseURL string, opts ...RESTOption) *REST {
	s := &REST{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Name identifies the sink strategy.
func (s *REST) Name() string { return "rest" }

// Deliver posts the event and checks for a 2xx response carrying a
// record identifier. Registration events go to their dedicated route.
func (s *REST) Deliver(ctx context.Context, event *model.TrackingEvent) error {
	path := trackPath
	if event.Event == model.EventRegistration {
		path = registrationPath
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return fmt.Errorf("collector rejected event: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("collector response malformed: %w", err)
	}
	if result.ID == "" {
		return fmt.Errorf("collector response missing record id")
	}

	s.logger.Debug("event delivered", "sink", s.Name(), "event", event.Event, "record_id", result.ID)
	return nil
}

// DeliverBeacon posts the event in the background without waiting.
func (s *REST) DeliverBeacon(event *model.TrackingEvent) {
	beacon(s.logger, s.Name(), event, s.Deliver)
}
