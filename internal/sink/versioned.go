package sink

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shiftpages/funneltrace/internal/model"
)

// defaultConflictAttempts is how many read-append-write cycles are
// attempted before a revision conflict is surfaced to the caller.
const defaultConflictAttempts = 3

// ErrRevisionConflict is returned when concurrent writers kept
// invalidating the revision token across all attempts. The event was
// not recorded; callers decide whether to re-queue it.
var ErrRevisionConflict = errors.New("revision conflict on versioned file")

// Versioned appends events to a daily JSON array file stored behind a
// GitHub-style contents API. Each write requires the revision token
// (content SHA) from the preceding read; on a conflict the whole
// read-append-write cycle is retried with a fresh token, bounded by a
// fixed attempt count, so a losing writer never silently drops data.
type Versioned struct {
	client  *http.Client
	baseURL string
	owner   string
	repo    string
	branch  string
	token   string
	logger  *slog.Logger

	// now supplies the clock for daily file naming. Replaceable in tests.
	now func() time.Time

	// attempts is the bound on read-append-write cycles.
	attempts int
}

// VersionedOption configures a Versioned sink.
type VersionedOption func(*Versioned)

// WithVersionedHTTPClient sets the HTTP client used for contents-API calls.
func WithVersionedHTTPClient(client *http.Client) VersionedOption {
	return func(s *Versioned) {
		s.client = client
	}
}

// WithVersionedLogger sets a custom logger for the sink.
func WithVersionedLogger(logger *slog.Logger) VersionedOption {
	return func(s *Versioned) {
		s.logger = logger
	}
}

// WithVersionedClock sets the clock used for daily file naming.
func WithVersionedClock(now func() time.Time) VersionedOption {
	return func(s *Versioned) {
		s.now = now
	}
}

// WithVersionedAttempts sets the conflict retry bound.
func WithVersionedAttempts(n int) VersionedOption {
	return func(s *Versioned) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// NewVersioned creates a versioned-file sink writing to the given
// repository. baseURL is the contents-API host (e.g. the public GitHub
// API); token authenticates every request.
func NewVersioned(baseURL, owner, repo, branch, token string, opts ...VersionedOption) *Versioned {
	s := &Versioned{
		client:   http.DefaultClient,
		baseURL:  strings.TrimRight(baseURL, "/"),
		owner:    owner,
		repo:     repo,
		branch:   branch,
		token:    token,
		now:      time.Now,
		attempts: defaultConflictAttempts,
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
func (s *Versioned) Name() string { return "versioned" }

// filePath returns the daily data file path, one JSON array per UTC day.
func (s *Versioned) filePath() string {
	return "analytics/visits-" + s.now().UTC().Format("2006-01-02") + ".json"
}

// contentsURL returns the contents-API URL for the current data file.
func (s *Versioned) contentsURL() string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", s.baseURL, s.owner, s.repo, s.filePath())
}

// Deliver appends the event to today's file via a read-append-write
// cycle guarded by the revision token.
func (s *Versioned) Deliver(ctx context.Context, event *model.TrackingEvent) error {
	url := s.contentsURL()

	for attempt := 1; attempt <= s.attempts; attempt++ {
		records, revision, err := s.readFile(ctx, url)
		if err != nil {
			return err
		}

		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		records = append(records, payload)

		conflict, err := s.writeFile(ctx, url, records, revision)
		if err != nil {
			return err
		}
		if !conflict {
			s.logger.Debug("event delivered", "sink", s.Name(), "event", event.Event, "attempt", attempt)
			return nil
		}

		s.logger.Debug("revision conflict, refetching", "sink", s.Name(), "attempt", attempt)
	}

	return fmt.Errorf("%w after %d attempts", ErrRevisionConflict, s.attempts)
}

// DeliverBeacon appends the event in the background without waiting.
func (s *Versioned) DeliverBeacon(event *model.TrackingEvent) {
	beacon(s.logger, s.Name(), event, s.Deliver)
}

// readFile fetches the current file content and revision token.
// A missing file yields an empty record list and an empty token, which
// makes the subsequent write a create.
func (s *Versioned) readFile(ctx context.Context, url string) ([]json.RawMessage, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build read request: %w", err)
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read versioned file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, "", nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("contents read failed: status %d", resp.StatusCode)
	}

	var file struct {
		SHA     string `json:"sha"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return nil, "", fmt.Errorf("contents read response malformed: %w", err)
	}

	// The contents API wraps base64 at 60 columns; strip all whitespace
	// before decoding.
	raw, err := base64.StdEncoding.DecodeString(stripWhitespace(file.Content))
	if err != nil {
		return nil, "", fmt.Errorf("contents not valid base64: %w", err)
	}

	var records []json.RawMessage
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, "", fmt.Errorf("versioned file is not a JSON array: %w", err)
		}
	}

	return records, file.SHA, nil
}

// writeFile writes the updated record list, requiring the revision
// token read earlier. It reports (conflict=true, nil) when the backing
// store rejected the token so the caller can refetch and retry.
func (s *Versioned) writeFile(ctx context.Context, url string, records []json.RawMessage, revision string) (conflict bool, err error) {
	content, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return false, fmt.Errorf("failed to encode records: %w", err)
	}

	message := "Update analytics data"
	if revision == "" {
		message = "Create analytics data"
	}

	body, err := json.Marshal(struct {
		Message string `json:"message"`
		Content string `json:"content"`
		Branch  string `json:"branch"`
		SHA     string `json:"sha,omitempty"`
	}{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  s.branch,
		SHA:     revision,
	})
	if err != nil {
		return false, fmt.Errorf("failed to encode write request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to build write request: %w", err)
	}
	s.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to write versioned file: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return false, nil
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity:
		// The token went stale between read and write.
		return true, nil
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return false, fmt.Errorf("contents write failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
}

// authorize attaches the contents-API auth headers.
func (s *Versioned) authorize(req *http.Request) {
	req.Header.Set("Authorization", "token "+s.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
}

// stripWhitespace removes all whitespace from a string.
func stripWhitespace(v string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, v)
}
