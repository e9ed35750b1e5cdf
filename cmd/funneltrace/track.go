package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/shiftpages/funneltrace/internal/config"
	"github.com/shiftpages/funneltrace/internal/crm"
	"github.com/shiftpages/funneltrace/internal/geo"
	"github.com/shiftpages/funneltrace/internal/identity"
	"github.com/shiftpages/funneltrace/internal/model"
	"github.com/shiftpages/funneltrace/internal/tracker"
	"github.com/shiftpages/funneltrace/internal/variant"
)

// NewTrackCmd creates the track command with its event subcommands.
func NewTrackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Record a funnel tracking event",
		Long: `Track records one funnel event and delivers it to the configured sink.

The visitor identifier is persisted across invocations, so repeated
events from the same machine correlate to one visitor. Each invocation
opens a fresh session, matching one page view.

Examples:
  # Record a page visit
  funneltrace track visit --url "https://lp.example.com/landing?utm_source=fb"

  # Record a call-to-action click
  funneltrace track click --url "https://lp.example.com/landing" --button "Register Now"

  # Record a registration form submission
  funneltrace track registration --field email=a@example.com --field first_name=Amina

  # Record a page exit after 45 seconds on page
  funneltrace track exit --url "https://lp.example.com/landing" --dwell 45s`,
	}

	cmd.PersistentFlags().StringP("url", "u", "", "Full page URL including the query string")
	cmd.PersistentFlags().String("referrer", "", "Document referrer")
	cmd.PersistentFlags().String("user-agent", "", "Client user-agent string")
	cmd.PersistentFlags().String("language", "", "Client language tag (e.g. en-US)")
	cmd.PersistentFlags().StringP("sink", "s", "", "Delivery strategy: rest, document, or versioned")
	cmd.PersistentFlags().StringP("config", "c", "", "Configuration file path (default: .funneltrace in current or home directory)")

	cmd.AddCommand(newTrackVisitCmd())
	cmd.AddCommand(newTrackClickCmd())
	cmd.AddCommand(newTrackRegistrationCmd())
	cmd.AddCommand(newTrackExitCmd())

	return cmd
}

func newTrackVisitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "visit",
		Short: "Record a page visit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTrack(cmd, func(ctx context.Context, session *tracker.Session) *model.TrackingEvent {
				return session.TrackVisit(ctx)
			})
		},
	}
}

func newTrackClickCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "click",
		Short: "Record a call-to-action click",
		RunE: func(cmd *cobra.Command, _ []string) error {
			button, err := cmd.Flags().GetString("button")
			if err != nil {
				return err
			}
			if button == "" {
				return fmt.Errorf("--button is required for click events")
			}
			return runTrack(cmd, func(ctx context.Context, session *tracker.Session) *model.TrackingEvent {
				return session.TrackClick(ctx, button)
			})
		},
	}
	cmd.Flags().StringP("button", "b", "", "Descriptive label of the clicked element")
	return cmd
}

func newTrackRegistrationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registration",
		Short: "Record a registration form submission",
		RunE:  runTrackRegistrationCmd,
	}
	cmd.Flags().StringArrayP("field", "f", nil, "Submitted form field as key=value (repeatable)")
	return cmd
}

func newTrackExitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exit",
		Short: "Record a page exit with its dwell duration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dwell, err := cmd.Flags().GetDuration("dwell")
			if err != nil {
				return err
			}
			var clock tracker.Clock
			if dwell > 0 {
				clock = newBackdatedClock(dwell)
			}
			return runTrackWithClock(cmd, clock, func(ctx context.Context, session *tracker.Session) *model.TrackingEvent {
				// A beacon would race process exit; wait for delivery.
				return session.TrackExitAwait(ctx)
			})
		},
	}
	cmd.Flags().DurationP("dwell", "d", 0, "Time spent on the page before leaving")
	return cmd
}

// runTrackRegistrationCmd records a registration and, when the CRM is
// configured, upserts the contact.
func runTrackRegistrationCmd(cmd *cobra.Command, _ []string) error {
	rawFields, err := cmd.Flags().GetStringArray("field")
	if err != nil {
		return err
	}
	fields, err := parseFields(rawFields)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return fmt.Errorf("at least one --field is required for registration events")
	}

	cfg, logger, err := trackSetup(cmd)
	if err != nil {
		return err
	}

	return runTrackWith(cmd, cfg, logger, nil, func(ctx context.Context, session *tracker.Session) *model.TrackingEvent {
		event := session.TrackRegistration(ctx, fields)

		if cfg.CRMEnabled() {
			client := crm.NewClient(cfg.CRMBaseURL, cfg.CRMWorkspaceID, cfg.CRMAPIKey,
				crm.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
				crm.WithLogger(logger),
				crm.WithDefaultTags(cfg.CRMTagIDs))
			if err := client.UpsertContact(ctx, crm.ContactFromRegistration(fields)); err != nil {
				logger.Warn("contact upsert failed", "error", err)
			}
		}

		return event
	})
}

// runTrack executes one tracking action with the real clock.
func runTrack(cmd *cobra.Command, action func(context.Context, *tracker.Session) *model.TrackingEvent) error {
	return runTrackWithClock(cmd, nil, action)
}

// runTrackWithClock executes one tracking action with an optional
// custom clock.
func runTrackWithClock(cmd *cobra.Command, clock tracker.Clock, action func(context.Context, *tracker.Session) *model.TrackingEvent) error {
	cfg, logger, err := trackSetup(cmd)
	if err != nil {
		return err
	}
	return runTrackWith(cmd, cfg, logger, clock, action)
}

// trackSetup loads and validates configuration and builds the logger.
func trackSetup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	if sinkFlag, err := cmd.Flags().GetString("sink"); err == nil && sinkFlag != "" {
		cfg.Sink = config.SinkKind(sinkFlag)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// runTrackWith opens a session from the command flags and runs the
// tracking action, printing the produced event as JSON.
func runTrackWith(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, clock tracker.Clock, action func(context.Context, *tracker.Session) *model.TrackingEvent) error {
	pageURL, err := cmd.Flags().GetString("url")
	if err != nil {
		return err
	}
	referrer, _ := cmd.Flags().GetString("referrer")
	userAgent, _ := cmd.Flags().GetString("user-agent")
	language, _ := cmd.Flags().GetString("language")

	s, closeSink, err := buildSink(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSink(); err != nil {
			logger.Error("failed to close sink", "error", err)
		}
	}()

	store := identity.NewStore(cfg.StateDir, identity.WithLogger(logger))

	opts := []tracker.TrackerOption{
		tracker.WithLogger(logger),
		tracker.WithExcludePath(cfg.ExcludePath),
		tracker.WithHiddenThreshold(cfg.HiddenThreshold),
	}
	if clock != nil {
		opts = append(opts, tracker.WithClock(clock))
	}
	if cfg.GeoEndpoint != "" {
		resolver := geo.NewResolver(cfg.GeoEndpoint,
			geo.WithHTTPClient(&http.Client{Timeout: cfg.GeoTimeout}),
			geo.WithLogger(logger))
		opts = append(opts, tracker.WithGeoResolver(resolver))
	}

	page := model.PageInfo{
		URL:       pageURL,
		Referrer:  referrer,
		UserAgent: userAgent,
		Language:  language,
	}

	selector := variant.NewSelector(store, variant.DefaultVariants(), variant.WithLogger(logger))
	selection := selector.Select(pageURL)

	tr := tracker.NewTracker(s, store, opts...)
	session, err := tr.StartSession(page, selection)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	event := action(cmd.Context(), session)
	if event == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "event not tracked")
		return nil
	}

	encoded, err := json.MarshalIndent(event, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return nil
}

// parseFields parses repeated key=value flags into a field map.
func parseFields(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	fields := make(map[string]string, len(raw))
	for _, pair := range raw {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid field %q (expected key=value)", pair)
		}
		fields[key] = value
	}
	return fields, nil
}

// backdatedClock reports a start time shifted into the past on its
// first reading, so a one-shot exit event carries the real dwell
// duration.
type backdatedClock struct {
	offset time.Duration
	once   sync.Once
}

func newBackdatedClock(offset time.Duration) *backdatedClock {
	return &backdatedClock{offset: offset}
}

func (c *backdatedClock) Now() time.Time {
	now := time.Now()
	first := false
	c.once.Do(func() { first = true })
	if first {
		return now.Add(-c.offset)
	}
	return now
}
