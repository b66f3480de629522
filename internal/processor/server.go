package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"

	"linedoc/internal/domain"
	"linedoc/internal/metrics"
)

const serviceName = "document-processor"

// ServerConfig configures the storage-trigger HTTP server.
type ServerConfig struct {
	Port          int
	Pipeline      *Pipeline
	MaxConcurrent int
	// Timeout bounds one document, recognition and uploads together.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Server accepts {bucket, name} triggers over HTTP.
type Server struct {
	port     int
	pipeline *Pipeline
	sem      *semaphore.Weighted
	timeout  time.Duration
	logger   *slog.Logger
	server   *http.Server
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Port == 0 {
		cfg.Port = 8081
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{
		port:     cfg.Port,
		pipeline: cfg.Pipeline,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		timeout:  cfg.Timeout,
		logger:   cfg.Logger.With("component", "processor_server"),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Collector.Handler())
	mux.HandleFunc("/", s.handleRoot)
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.timeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("processor server starting", "port", s.port)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("processor server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("processor server: %w", err)
	}
}

func (s *Server) handleRoot(rw http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(rw, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleHealth(rw, r)
	case http.MethodPost:
		s.handleTrigger(rw, r)
	default:
		http.Error(rw, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleHealth(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]string{"status": "healthy", "service": serviceName})
}

func (s *Server) handleTrigger(rw http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var ev domain.StorageEvent
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&ev); err != nil {
		writeJSON(rw, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if ev.Bucket == "" || ev.Name == "" {
		writeJSON(rw, http.StatusBadRequest, map[string]string{"error": ErrInvalidEvent.Error()})
		return
	}

	if err := s.sem.Acquire(r.Context(), 1); err != nil {
		writeJSON(rw, http.StatusServiceUnavailable, map[string]string{"error": "request cancelled while queued"})
		return
	}
	defer s.sem.Release(1)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.timeout)
	defer cancel()

	res, err := s.pipeline.Process(ctx, ev)
	if err != nil {
		s.logger.Error("document processing failed", "bucket", ev.Bucket, "name", ev.Name, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, ErrInvalidEvent) {
			status = http.StatusBadRequest
		}
		writeJSON(rw, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(rw, http.StatusOK, res)
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	json.NewEncoder(rw).Encode(v)
}
