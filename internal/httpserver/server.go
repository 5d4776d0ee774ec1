// Package httpserver exposes the gateway's HTTP surface: a single
// Anthropic-Messages-compatible endpoint plus a handful of operational
// endpoints for model discovery, health, and account-pool management.
//
// The router uses the same middleware chain, bearer/X-API-Key extraction,
// and respondJSON/respondError conventions as a chi-based facade with many
// provider-specific endpoints, narrowed down to the one canonical surface
// this gateway exposes.
package httpserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tokligence/relaymux/internal/accountpool"
	"github.com/tokligence/relaymux/internal/config"
	"github.com/tokligence/relaymux/internal/dispatch"
	"github.com/tokligence/relaymux/internal/logx"
	"github.com/tokligence/relaymux/internal/ratelimit"
)

// Server holds everything needed to answer requests against the gateway's
// public HTTP surface.
type Server struct {
	cfg          config.GatewayConfig
	orchestrator *dispatch.Orchestrator
	pools        map[config.BackendName]*accountpool.Pool
	log          *logx.Logger
	startedAt    time.Time
	limiter      *ratelimit.Limiter
}

// New builds a Server. pools must contain the same backend set the
// orchestrator was constructed with, so /account-limits, /refresh-token,
// and /clear-cache can address any configured backend by name.
func New(cfg config.GatewayConfig, orchestrator *dispatch.Orchestrator, pools map[config.BackendName]*accountpool.Pool, log *logx.Logger) *Server {
	if log == nil {
		log = logx.Nop()
	}
	burst := cfg.RateLimitBurst
	perSec := cfg.RateLimitPerSec
	if burst <= 0 {
		burst = 50
	}
	if perSec <= 0 {
		perSec = 10
	}
	return &Server{
		cfg:          cfg,
		orchestrator: orchestrator,
		pools:        pools,
		log:          log,
		startedAt:    time.Now(),
		limiter:      ratelimit.NewLimiter(burst, perSec),
	}
}

// Router builds the chi mux for the whole gateway surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Group(func(api chi.Router) {
		if s.cfg.APIKey != "" {
			api.Use(s.requireAPIKey)
		}
		api.With(s.rateLimit).Post("/v1/messages", s.handleMessages)
		api.Get("/v1/models", s.handleModels)
		api.Get("/account-limits", s.handleAccountLimits)
		api.Post("/refresh-token", s.handleRefreshToken)
		api.Post("/clear-cache", s.handleClearCache)
		api.Post("/clear-rate-limit", s.handleClearRateLimit)
	})

	return r
}

// requireAPIKey rejects requests whose bearer token (Authorization header
// or X-API-Key) does not match the configured key.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			token = strings.TrimSpace(r.Header.Get("X-API-Key"))
		}
		if token == "" || token != s.cfg.APIKey {
			respondError(w, http.StatusUnauthorized, "missing or invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimit throttles inbound dispatch requests independent of which
// backend account eventually serves them, guarding against a runaway local
// client saturating every pool at once.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			wait := s.limiter.WaitTime()
			w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
			respondError(w, http.StatusTooManyRequests, "too many requests, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("bearer "):])
}

func (s *Server) poolFor(name config.BackendName) (*accountpool.Pool, bool) {
	p, ok := s.pools[name]
	return p, ok
}
