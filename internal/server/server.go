// Package server provides the HTTP API for corpus submissions and the reviewer panel.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/happyhackingspace/kurdish-dataset/internal/lifecycle"
	"github.com/happyhackingspace/kurdish-dataset/internal/observability"
	"github.com/happyhackingspace/kurdish-dataset/internal/server/middleware"
	"github.com/happyhackingspace/kurdish-dataset/internal/server/ratelimit"
)

// Pinger reports whether the record store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds server configuration
type Config struct {
	Port           int
	MaxUploadBytes int64
	AllowedOrigin  string
}

// Dependencies are the services the handlers call.
type Dependencies struct {
	Lifecycle *lifecycle.Service
	Reviewers *ReviewerService
	Tokens    *SessionTokens
	Health    Pinger
	Metrics   *observability.Metrics
	RateLimit *ratelimit.Config
	Logger    *zap.Logger
}

// Server represents the HTTP server
type Server struct {
	httpServer     *http.Server
	lifecycle      *lifecycle.Service
	reviewers      *ReviewerService
	authHandler    *AuthHandler
	health         Pinger
	metrics        *observability.Metrics
	rateLimiter    *ratelimit.Limiter
	logger         *zap.Logger
	maxUploadBytes int64
	allowedOrigin  string
	onShutdown     []func()
}

// New creates a new server instance
func New(cfg Config, deps Dependencies) *Server {
	s := &Server{
		lifecycle:      deps.Lifecycle,
		reviewers:      deps.Reviewers,
		health:         deps.Health,
		metrics:        deps.Metrics,
		logger:         deps.Logger,
		maxUploadBytes: cfg.MaxUploadBytes,
		allowedOrigin:  cfg.AllowedOrigin,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = 20 << 20
	}
	if s.allowedOrigin == "" {
		s.allowedOrigin = "*"
	}
	s.rateLimiter = ratelimit.NewLimiter(deps.RateLimit)
	s.authHandler = NewAuthHandler(deps.Reviewers, deps.Tokens, s.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("GET /text-types", s.handleTextTypes)

	// Contributor endpoints
	mux.HandleFunc("POST /submissions", s.handleCreateSubmission)
	mux.HandleFunc("GET /submissions/{id}/preview", s.handlePreview)
	mux.HandleFunc("PUT /submissions/{id}/text", s.handleContributorEdit)

	mux.HandleFunc("POST /auth/login", s.authHandler.Login)

	// Reviewer panel
	auth := middleware.AuthMiddleware(deps.Tokens)
	panel := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, auth(h))
	}
	panel("GET /panel/me", s.authHandler.Me)
	panel("GET /panel/submissions", s.handleListSubmissions)
	panel("GET /panel/submissions/{id}", s.handleGetSubmission)
	panel("PUT /panel/submissions/{id}/text", s.handleReviewerEdit)
	panel("POST /panel/submissions/{id}/decision", s.handleDecision)
	panel("POST /panel/submissions/{id}/merge", s.handleRetryMerge)
	panel("DELETE /panel/submissions/{id}", s.handleDeleteSubmission)
	panel("GET /panel/reconciliations", s.handleListReconciliations)
	panel("POST /panel/reconciliations/resume", s.handleResumeReconciliations)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second, // decisions wait for the hub commit
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// OnShutdown registers fn to run after the HTTP server has drained.
func (s *Server) OnShutdown(fn func()) {
	s.onShutdown = append(s.onShutdown, fn)
}

// Start begins listening and blocks until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		s.Close()
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	s.logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.Close()
	s.logger.Info("Server stopped")
	return nil
}

// Close releases background resources without touching the listener.
func (s *Server) Close() {
	s.rateLimiter.Stop()
	for _, fn := range s.onShutdown {
		fn()
	}
	s.onShutdown = nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)
		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// withLogging logs one line per request
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		s.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr))
	})
}

// handleHealth reports liveness and record store reachability
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			s.logger.Warn("Health check failed", zap.Error(err))
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("Error encoding JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// notFoundResponse writes a 404 that tells the client where to go instead.
func (s *Server) notFoundResponse(w http.ResponseWriter, message, redirect string) {
	s.jsonResponse(w, http.StatusNotFound, map[string]string{
		"error":    message,
		"redirect": redirect,
	})
}

// serviceError maps err to a status and writes it. Submission lookups that miss
// answer with a redirect to the given page.
func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, err error, redirect string) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	if status == http.StatusNotFound && redirect != "" {
		s.notFoundResponse(w, err.Error(), redirect)
		return
	}
	s.errorResponse(w, status, publicMessage(err, status))
}

// extractClientID uses the IP from RemoteAddr.
// X-Forwarded-For is ignored because no proxy is trusted by default.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	s.logger.Warn("Rate limit exceeded",
		zap.String("client", s.extractClientID(r)),
		zap.String("path", r.URL.Path),
		zap.Int("limit", info.Limit))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
