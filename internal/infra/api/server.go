package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"legal-ai-jobs/internal/domain"
	"legal-ai-jobs/internal/usecase"
)

// Server is the HTTP surface of the job system: submissions, status reads
// and the maintenance endpoints, all under /api/v1.
type Server struct {
	dispatcher  usecase.DispatcherUseCase
	maintenance usecase.MaintenanceUseCase
	log         *zerolog.Logger
	server      *http.Server
}

func NewServer(dispatcher usecase.DispatcherUseCase, maintenance usecase.MaintenanceUseCase, logger *zerolog.Logger) *Server {
	sLog := logger.With().Str("component", "API").Logger()
	return &Server{dispatcher: dispatcher, maintenance: maintenance, log: &sLog}
}

// Router builds the chi mux. Exposed separately from Start so tests can
// drive it through httptest.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/jobs/chat", s.handleSubmitChat)
		r.Post("/jobs/document", s.handleSubmitDocument)
		r.Post("/jobs/health-check", s.handleSubmitHealthCheck)
		r.Get("/jobs/stats", s.handleJobStats)
		r.Post("/jobs/cleanup", s.handleCleanup)
		r.Post("/jobs/clear-failed", s.handleClearFailed)
		r.Get("/jobs/{jobID}", s.handleJobStatus)
		r.Get("/jobs", s.handleRecentJobs)
		r.Get("/queue/health", s.handleQueueHealth)
	})
	return r
}

func (s *Server) Start(port int) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	s.log.Info().Int("port", port).Msg("http server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type submitChatRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id"`
}

func (s *Server) handleSubmitChat(w http.ResponseWriter, r *http.Request) {
	var req submitChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: malformed request body", domain.ErrInvalidArgument))
		return
	}
	res, err := s.dispatcher.SubmitChatQuery(r.Context(), req.Query, req.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, res)
}

type submitDocumentRequest struct {
	Content  string `json:"file_content"`
	Filename string `json:"filename"`
	UserID   string `json:"user_id"`
}

func (s *Server) handleSubmitDocument(w http.ResponseWriter, r *http.Request) {
	var req submitDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: malformed request body", domain.ErrInvalidArgument))
		return
	}
	res, err := s.dispatcher.SubmitDocumentUpload(r.Context(), req.Content, req.Filename, req.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, res)
}

func (s *Server) handleSubmitHealthCheck(w http.ResponseWriter, r *http.Request) {
	res, err := s.dispatcher.SubmitHealthCheck(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, res)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	rec, err := s.dispatcher.GetJobStatus(r.Context(), jobID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRecentJobs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: limit must be an integer", domain.ErrInvalidArgument))
			return
		}
		limit = n
	}
	list, err := s.dispatcher.GetRecentJobs(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleQueueHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.maintenance.QueueHealth(r.Context())
	code := http.StatusOK
	if snap.OverallStatus != "healthy" {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, snap)
}

func (s *Server) handleJobStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.maintenance.JobStats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: days must be an integer", domain.ErrInvalidArgument))
			return
		}
		days = n
	}
	res, err := s.maintenance.CleanupOldJobs(r.Context(), days)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleClearFailed(w http.ResponseWriter, r *http.Request) {
	res := s.maintenance.ClearFailedJobs(r.Context())
	s.writeJSON(w, http.StatusOK, res)
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrQueueUnavailable), errors.Is(err, domain.ErrBrokerUnavailable):
		code = http.StatusServiceUnavailable
	}
	if code == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}
	s.writeJSON(w, code, errorBody{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("response encoding failed")
	}
}
