// Package server exposes the agent's ops surface: health, metrics, the
// persisted progress snapshot and the block flag. It observes the walk, it
// never drives it.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/adwalk/listing-agent/internal/blockguard"
	"github.com/adwalk/listing-agent/internal/metrics"
	"github.com/adwalk/listing-agent/internal/state"
)

// Server wires the ops handlers over the progress store and block flag.
type Server struct {
	router chi.Router
	store  state.Store
	flag   blockguard.Flag
	logger *zap.Logger
}

// New constructs the ops server.
func New(store state.Store, flag blockguard.Flag, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{store: store, flag: flag, logger: logger}

	r := chi.NewRouter()
	r.Use(s.logging)
	r.Use(recoverer)

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/progress", s.progress)
	r.Get("/block", s.block)
	r.Post("/block/release", s.releaseBlock)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) progress(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Load(r.Context())
	if errors.Is(err, state.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no job in flight")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) block(w http.ResponseWriter, r *http.Request) {
	status, err := s.flag.Status(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) releaseBlock(w http.ResponseWriter, r *http.Request) {
	if err := s.flag.Release(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("block flag released via ops endpoint")
	writeJSON(w, http.StatusOK, map[string]string{"status": "released"})
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Debug("ops request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("dur", time.Since(start)))
	})
}

func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
