package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benangmerah/sekolah/internal/dispatcher"
	"github.com/benangmerah/sekolah/internal/metrics"
)

// Run states reported by /v1/status.
const (
	StateStarting = "starting"
	StateRunning  = "running"
	StateDrained  = "drained"
	StateFailed   = "failed"
)

// StatsSource reports scheduler counters.
type StatsSource interface {
	Stats() dispatcher.Stats
}

// SchoolCounter reports how many schools the sink accepted.
type SchoolCounter interface {
	Count() int
}

// Status is the /v1/status payload.
type Status struct {
	RunID     string    `json:"run_id"`
	State     string    `json:"state"`
	StartedAt time.Time `json:"started_at"`
	Pending   int       `json:"pending"`
	InFlight  int       `json:"in_flight"`
	Completed int       `json:"completed"`
	Schools   int       `json:"schools"`
}

// Server exposes run status over HTTP.
type Server struct {
	router    chi.Router
	runID     string
	startedAt time.Time
	stats     StatsSource
	schools   SchoolCounter
	logger    *zap.Logger

	mu    sync.RWMutex
	state string
}

// NewServer constructs a Server with middleware and routes.
func NewServer(runID string, stats StatsSource, schools SchoolCounter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runID:     runID,
		startedAt: time.Now().UTC(),
		stats:     stats,
		schools:   schools,
		logger:    logger,
		state:     StateStarting,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.status)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetState records the run state reported by /readyz and /v1/status.
func (s *Server) SetState(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *Server) currentState() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("status server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown status server: %w", err)
		}
		return nil
	}
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	state := s.currentState()
	if state == StateStarting || state == StateFailed {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": state})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": state})
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	st := Status{
		RunID:     s.runID,
		State:     s.currentState(),
		StartedAt: s.startedAt,
	}
	if s.stats != nil {
		stats := s.stats.Stats()
		st.Pending, st.InFlight, st.Completed = stats.Pending, stats.InFlight, stats.Completed
	}
	if s.schools != nil {
		st.Schools = s.schools.Count()
	}
	s.writeJSON(w, http.StatusOK, st)
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		reqID, _ := r.Context().Value(requestIDKey{}).(string)
		s.logger.Debug("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.String("request_id", reqID),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}
