// Package admin serves the health, status, metrics and manual trigger endpoints.
package admin

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"pokeball-ops/internal/coordinator"
	"pokeball-ops/internal/domain"
	"pokeball-ops/internal/spawn"
)

// SecretHeader carries the shared admin secret.
const SecretHeader = "X-Admin-Secret"

// recentRecordLimit bounds the phase records returned by /status.
const recentRecordLimit = 20

// Pipeline is the coordinator surface used by the handlers.
type Pipeline interface {
	Status() coordinator.Status
	RecentRecords(ctx context.Context, limit int) ([]*domain.PhaseRecord, error)
	RunSwap(ctx context.Context) (*coordinator.SwapRunResult, error)
	RunReplenish(ctx context.Context) (*domain.ReplenishmentResult, error)
	RunSpawn(ctx context.Context, opts spawn.RunOptions) (*domain.SpawnManagerResult, error)
}

// Options configures Server.
type Options struct {
	Pipeline Pipeline
	Secret   string
	Metrics  http.Handler // served on /metrics when set
	Now      func() time.Time
	Logger   *log.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	pipeline  Pipeline
	secret    []byte
	metrics   http.Handler
	now       func() time.Time
	startedAt time.Time
	logger    *log.Logger
}

// New creates a Server.
func New(opts Options) *Server {
	s := &Server{
		pipeline: opts.Pipeline,
		secret:   []byte(opts.Secret),
		metrics:  opts.Metrics,
		now:      opts.Now,
		logger:   opts.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	s.startedAt = s.now()
	return s
}

// Handler returns the routed mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /status", s.handleStatus)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	mux.Handle("POST /admin/swap", s.requireSecret(s.handleSwap))
	mux.Handle("POST /admin/replenish", s.requireSecret(s.handleReplenish))
	mux.Handle("POST /admin/spawn", s.requireSecret(s.handleSpawn))

	return mux
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status       string                `json:"status"`
	Uptime       string                `json:"uptime"`
	Pipeline     coordinator.Status    `json:"pipeline"`
	RecentRuns   []*domain.PhaseRecord `json:"recent_runs"`
	RecordsError string                `json:"records_error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:   "running",
		Uptime:   s.now().Sub(s.startedAt).Truncate(time.Second).String(),
		Pipeline: s.pipeline.Status(),
	}
	records, err := s.pipeline.RecentRecords(r.Context(), recentRecordLimit)
	if err != nil {
		s.logger.Printf("Failed to list recent runs: %v", err)
		resp.RecordsError = err.Error()
	}
	resp.RecentRuns = records
	if resp.RecentRuns == nil {
		resp.RecentRuns = []*domain.PhaseRecord{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) requireSecret(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := []byte(r.Header.Get(SecretHeader))
		if len(s.secret) == 0 || subtle.ConstantTimeCompare(got, s.secret) != 1 {
			s.logger.Printf("Rejected %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		next(w, r)
	})
}

// runContext detaches manual runs from client disconnects.
func runContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	s.logger.Println("Manual swap triggered")
	result, err := s.pipeline.RunSwap(runContext(r))
	s.respond(w, "swap", result, err)
}

func (s *Server) handleReplenish(w http.ResponseWriter, r *http.Request) {
	s.logger.Println("Manual replenish triggered")
	result, err := s.pipeline.RunReplenish(runContext(r))
	s.respond(w, "replenish", result, err)
}

func (s *Server) handleSpawn(w http.ResponseWriter, r *http.Request) {
	opts := spawn.RunOptions{FillEmpty: r.URL.Query().Get("fill") == "true"}
	s.logger.Printf("Manual spawn triggered (fill=%v)", opts.FillEmpty)
	result, err := s.pipeline.RunSpawn(runContext(r), opts)
	s.respond(w, "spawn", result, err)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respond(w http.ResponseWriter, phase string, result any, err error) {
	switch {
	case errors.Is(err, coordinator.ErrBusy):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case err != nil:
		s.logger.Printf("Manual %s failed: %v", phase, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
