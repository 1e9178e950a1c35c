package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	applog "expensebot/internal/log"
	"expensebot/internal/middleware/ratelimit"
	"expensebot/internal/middleware/security"
	"expensebot/internal/middleware/trace"
)

// ReadyFunc reports whether the backing store can serve requests.
type ReadyFunc func(ctx context.Context) error

// Options configures the routes NewServer mounts.
type Options struct {
	Platform string
	// Webhook is mounted at POST /webhook when set.
	Webhook http.Handler
	// Limiter throttles the webhook per client IP when set.
	Limiter *ratelimit.Limiter
	Ready   ReadyFunc
	Logger  *applog.Logger
	Headers security.HeadersConfig
}

// Server serves the health endpoints and, on WhatsApp, the Twilio webhook.
type Server struct {
	http.Server
	platform     string
	ready        ReadyFunc
	tracer       *trace.Middleware
	limiter      *ratelimit.Limiter
	now          func() time.Time
	shutdownOnce sync.Once
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Platform  string `json:"platform"`
}

func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}
	headers := opts.Headers
	if headers == (security.HeadersConfig{}) {
		headers = security.DefaultHeadersConfig()
	}

	s := &Server{
		platform: opts.Platform,
		ready:    opts.Ready,
		tracer:   trace.NewMiddleware(logger, security.ClientIP),
		limiter:  opts.Limiter,
		now:      time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleBanner)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	if opts.Webhook != nil {
		webhook := opts.Webhook
		if s.limiter != nil {
			webhook = s.limiter.Middleware(security.ClientIP)(webhook)
		}
		mux.Handle("POST /webhook", webhook)
	}

	handler := security.HeadersMiddleware(headers)(mux)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

// Requests is the number of requests the server has seen.
func (s *Server) Requests() int64 {
	return s.tracer.TotalRequests()
}

func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintf(w, "Expense Bot is running on %s platform!", strings.ToUpper(s.platform))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
		Platform:  s.platform,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed",
				applog.FieldRequestID, trace.GetRequestID(r.Context()),
				applog.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// Shutdown stops the rate limiter cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		args := []any{applog.FieldComponent, applog.ComponentHTTP, "requests", s.Requests()}
		if s.limiter != nil {
			s.limiter.Stop()
			args = append(args, "rate_limited", s.limiter.Hits())
		}
		shutdownErr = s.Server.Shutdown(ctx)
		slog.InfoContext(ctx, "HTTP server stopped", args...)
	})
	return shutdownErr
}
