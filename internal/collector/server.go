package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shiftpages/funneltrace/internal/crm"
	"github.com/shiftpages/funneltrace/internal/database"
	"github.com/shiftpages/funneltrace/internal/geo"
	"github.com/shiftpages/funneltrace/internal/model"
	"github.com/shiftpages/funneltrace/internal/report"
)

const (
	// maxEventBodySize bounds ingested request bodies. Tracking events
	// are small; anything bigger is not a tracking event.
	maxEventBodySize = 64 * 1024

	shutdownTimeout = 10 * time.Second
)

// Server is the tracking collector: it ingests events over HTTP, stores
// them, and serves aggregated analytics.
type Server struct {
	db       *database.EventDB
	logger   *slog.Logger
	addr     string
	geoProxy *geo.CacheProxy
	crm      *crm.Client
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets a custom logger for the server.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGeoProxy serves IP geolocation through the given caching proxy.
func WithGeoProxy(proxy *geo.CacheProxy) ServerOption {
	return func(s *Server) {
		s.geoProxy = proxy
	}
}

// WithCRMForwarding forwards registration contacts to the CRM after
// they are stored.
func WithCRMForwarding(client *crm.Client) ServerOption {
	return func(s *Server) {
		s.crm = client
	}
}

// NewServer creates a collector listening on addr, storing events in db.
func NewServer(addr string, db *database.EventDB, opts ...ServerOption) *Server {
	s := &Server{
		db:   db,
		addr: addr,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Handler returns the collector's HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/analytics/track", s.handleTrack)
	mux.HandleFunc("POST /api/analytics/registration", s.handleRegistration)
	mux.HandleFunc("GET /api/analytics/stats", s.handleStats)
	mux.HandleFunc("GET /api/analytics/events", s.handleListEvents)
	mux.HandleFunc("GET /api/analytics/event/{id}", s.handleGetEvent)
	mux.HandleFunc("DELETE /api/analytics/event/{id}", s.handleDeleteEvent)

	if s.geoProxy != nil {
		mux.Handle("GET /api/geolocation", s.geoProxy)
	}

	return mux
}

// Start runs the server until ctx is canceled, then shuts down
// gracefully, draining in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("collector listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("collector server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("collector shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTrack ingests one tracking event of any kind.
func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	event, ok := s.decodeEvent(w, r)
	if !ok {
		return
	}
	s.storeEvent(w, r, event)
}

// handleRegistration ingests a registration form submission. The kind
// is forced so form integrations don't have to set it, and the contact
// is forwarded to the CRM when forwarding is configured.
func (s *Server) handleRegistration(w http.ResponseWriter, r *http.Request) {
	event, ok := s.decodeEvent(w, r)
	if !ok {
		return
	}
	event.Event = model.EventRegistration

	if !s.storeEvent(w, r, event) {
		return
	}

	if s.crm != nil && len(event.RegistrationFields) > 0 {
		// CRM forwarding must not delay the 201 response; the event is
		// already stored either way.
		fields := event.RegistrationFields
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			contact := crm.ContactFromRegistration(fields)
			if err := s.crm.UpsertContact(ctx, contact); err != nil {
				s.logger.Warn("contact forwarding failed", "error", err)
			}
		}()
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	events, err := s.db.ListEvents(r.Context(), 0)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load events")
		s.logger.Error("stats aggregation failed", "error", err)
		return
	}
	s.writeJSON(w, http.StatusOK, report.ComputeStats(events))
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	events, err := s.db.ListEvents(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load events")
		s.logger.Error("event listing failed", "error", err)
		return
	}
	if events == nil {
		events = []model.StoredEvent{}
	}
	s.writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := s.db.GetEvent(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, database.ErrEventNotFound) {
			s.writeError(w, http.StatusNotFound, "event not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to load event")
		s.logger.Error("event lookup failed", "error", err)
		return
	}
	s.writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteEvent(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, database.ErrEventNotFound) {
			s.writeError(w, http.StatusNotFound, "event not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to delete event")
		s.logger.Error("event deletion failed", "error", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeEvent reads and decodes the request body. On failure it writes
// the error response and reports false.
func (s *Server) decodeEvent(w http.ResponseWriter, r *http.Request) (*model.TrackingEvent, bool) {
	var event model.TrackingEvent
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBodySize))
	if err := dec.Decode(&event); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid event payload")
		return nil, false
	}
	return &event, true
}

// storeEvent validates and stores the event, responding with the
// assigned record identifier. It reports whether the event was stored.
func (s *Server) storeEvent(w http.ResponseWriter, r *http.Request, event *model.TrackingEvent) bool {
	id, err := s.db.InsertEvent(r.Context(), event)
	if err != nil {
		if errors.Is(err, model.ErrInvalidEventKind) ||
			errors.Is(err, model.ErrMissingPage) ||
			errors.Is(err, model.ErrNegativeDuration) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return false
		}
		s.writeError(w, http.StatusInternalServerError, "failed to store event")
		s.logger.Error("event storage failed", "error", err)
		return false
	}

	s.logger.Debug("event stored",
		"id", id,
		"event", event.Event,
		"page", event.Page)

	s.writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encoding failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
