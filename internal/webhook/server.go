package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"linedoc/internal/metrics"
)

const (
	signatureHeader = "X-Line-Signature"
	maxBodyBytes    = 1 << 20
	serviceName     = "line-webhook-receiver"
)

// ServerConfig configures the webhook HTTP server.
type ServerConfig struct {
	Port            int
	ChannelSecret   string
	VerifySignature bool
	Router          *Router
	Logger          *slog.Logger
}

// Server serves the webhook, health and metrics endpoints.
type Server struct {
	port            int
	secret          string
	verifySignature bool
	router          *Router
	logger          *slog.Logger
	server          *http.Server
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{
		port:            cfg.Port,
		secret:          cfg.ChannelSecret,
		verifySignature: cfg.VerifySignature && cfg.ChannelSecret != "",
		router:          cfg.Router,
		logger:          cfg.Logger.With("component", "webhook"),
	}
}

// Handler returns the request multiplexer.
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
		// A file message can hold its request for a full fallback chain.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting", "port", s.port, "verify_signature", s.verifySignature)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("webhook server: %w", err)
	}
}

// handleRoot mirrors a function-style entry point: GET is a health check,
// POST is a webhook delivery, anything else is refused.
func (s *Server) handleRoot(rw http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(rw, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleHealth(rw, r)
	case http.MethodPost:
		s.handleWebhook(rw, r)
	default:
		writeText(rw, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleHealth(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(http.StatusOK)
	json.NewEncoder(rw).Encode(map[string]string{
		"status":  "healthy",
		"service": serviceName,
	})
}

func (s *Server) handleWebhook(rw http.ResponseWriter, r *http.Request) {
	metrics.WebhookRequests.Inc()
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		metrics.WebhookFailures.Inc()
		writeText(rw, http.StatusBadRequest, "Bad Request")
		return
	}
	if len(body) > maxBodyBytes {
		s.logger.Warn("webhook body too large", "limit_bytes", maxBodyBytes)
		metrics.WebhookFailures.Inc()
		writeText(rw, http.StatusRequestEntityTooLarge, "Request Entity Too Large")
		return
	}

	if s.verifySignature {
		sig := r.Header.Get(signatureHeader)
		if sig == "" {
			s.logger.Warn("webhook without signature")
			metrics.WebhookFailures.Inc()
			writeText(rw, http.StatusUnauthorized, "Missing signature")
			return
		}
		if !verifySignature(body, s.secret, sig) {
			s.logger.Warn("webhook signature mismatch")
			metrics.WebhookFailures.Inc()
			writeText(rw, http.StatusForbidden, "Invalid signature")
			return
		}
	}

	// The handlers push results after the download finishes, so the work
	// must outlive a provider that hangs up early.
	ctx := context.WithoutCancel(r.Context())

	status, text := s.router.Route(ctx, body)
	if status != http.StatusOK {
		metrics.WebhookFailures.Inc()
	}
	writeText(rw, status, text)
}

func writeText(rw http.ResponseWriter, status int, text string) {
	rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
	rw.WriteHeader(status)
	io.WriteString(rw, text)
}

// verifySignature checks X-Line-Signature: base64 HMAC-SHA256 of the raw body.
func verifySignature(body []byte, secret, signature string) bool {
	return hmac.Equal([]byte(Sign(body, secret)), []byte(signature))
}

// Sign computes the X-Line-Signature value for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
