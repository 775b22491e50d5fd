package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"timegrid/internal/cache"
	"timegrid/internal/events"
	"timegrid/internal/export"
	"timegrid/internal/metrics"
	"timegrid/internal/repository"
	"timegrid/internal/schedule"

	"github.com/rs/zerolog"
)

// HTTPServer serves the scheduling JSON API.
type HTTPServer struct {
	server     *http.Server
	repo       *repository.Repo
	aggregator *schedule.Aggregator
	cache      *cache.ScheduleCache
	bus        *events.Bus
	exporter   *export.Service
	siteTZ     *time.Location
	apiKey     string
	logger     *zerolog.Logger
}

// NewHTTPServer wires the API routes. apiKey empty disables auth (local
// development only).
func NewHTTPServer(
	port int,
	repo *repository.Repo,
	aggregator *schedule.Aggregator,
	scheduleCache *cache.ScheduleCache,
	bus *events.Bus,
	siteTZ *time.Location,
	apiKey string,
	logger *zerolog.Logger,
) *HTTPServer {
	if siteTZ == nil {
		siteTZ = time.UTC
	}
	s := &HTTPServer{
		repo:       repo,
		aggregator: aggregator,
		cache:      scheduleCache,
		bus:        bus,
		exporter:   export.NewService(repo, repo, logger),
		siteTZ:     siteTZ,
		apiKey:     apiKey,
		logger:     logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/schedule/daily", s.requireAPIKey(s.handleDailySchedule))
	mux.HandleFunc("/api/v1/calendar/events", s.requireAPIKey(s.handleCalendarEvents))
	mux.HandleFunc("/api/v1/slots/available", s.requireAPIKey(s.handleAvailableSlots))
	mux.HandleFunc("/api/v1/locations", s.requireAPIKey(s.handleLocations))
	mux.HandleFunc("/api/v1/employees", s.requireAPIKey(s.handleEmployees))
	mux.HandleFunc("/api/v1/appointments", s.requireAPIKey(s.handleCreateAppointment))
	mux.HandleFunc("/api/v1/appointments/cancel", s.requireAPIKey(s.handleCancelAppointment))
	mux.HandleFunc("/api/v1/export/appointments", s.requireAPIKey(s.handleExportAppointments))

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("API server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) requireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("x-api-key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next(w, r)
	}
}

func (s *HTTPServer) handleLocations(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("locations")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	locations, err := s.repo.ListLocations(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list locations failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"locations": locations})
}

func (s *HTTPServer) handleEmployees(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("employees")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	employees, err := s.repo.ListEmployees(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list employees failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"employees": employees})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
