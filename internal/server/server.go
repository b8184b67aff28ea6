// Package server exposes extraction over HTTP: upload a video, extract
// subtitles from a region of it, stream it back, and list past jobs.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mgpai22/sublens/internal/jobs"
	"github.com/mgpai22/sublens/internal/logging"
	"github.com/mgpai22/sublens/internal/pipeline"
	"github.com/mgpai22/sublens/internal/storage"
)

// DefaultMaxUploadBytes caps uploads when Options.MaxUploadBytes is unset.
const DefaultMaxUploadBytes = 4 << 30

type Options struct {
	Addr    string
	Version string
	// per-request settings the API does not expose
	Defaults       pipeline.Request
	MaxUploadBytes int64
}

type Server struct {
	opts      Options
	extractor *pipeline.Extractor
	uploads   *storage.Uploads
	jobs      *jobs.Store
	recorder  *jobs.Recorder
	logger    *logging.Logger

	handler http.Handler
	server  *http.Server
}

// New wires the routes. jobStore may be nil, in which case nothing is recorded.
func New(
	opts Options,
	extractor *pipeline.Extractor,
	uploads *storage.Uploads,
	jobStore *jobs.Store,
	logger *logging.Logger,
) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	s := &Server{
		opts:      opts,
		extractor: extractor,
		uploads:   uploads,
		jobs:      jobStore,
		recorder:  jobs.NewRecorder(jobStore, logger),
		logger:    logging.OrNop(logger),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("POST /api/extract", s.handleExtract)
	mux.HandleFunc("GET /api/video/{filename}", s.handleVideo)
	mux.HandleFunc("GET /api/jobs", s.handleJobs)

	s.handler = withCORS(s.withRequestLog(mux))
	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Addr, err)
	}
	s.logger.Infow("server listening", "address", listener.Addr().String(), "uploads", s.uploads.Dir())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Infow("shutting down server")
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Errorw("failed to encode response", "error", err)
	}
}

// FastAPI-style error body
func (s *Server) writeDetail(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{"detail": detail})
}
