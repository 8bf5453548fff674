// Package api serves the market list, pool dashboards and the assistant as
// read-only JSON over HTTP.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/defistate/lending-console-go/chat"
	"github.com/defistate/lending-console-go/markets"
	"github.com/defistate/lending-console-go/metrics"
	"github.com/defistate/lending-console-go/protocols/blend"
	"github.com/defistate/lending-console-go/source"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// PoolTracker serves the latest snapshot of a pool. *poolfeed.Tracker
// satisfies it.
type PoolTracker interface {
	// Latest starts following id when needed.
	Latest(id blend.PoolID) (source.Snapshot, error)
	// Peek never starts following id.
	Peek(id blend.PoolID) (source.Snapshot, bool, error)
}

// Config holds the configuration for a Server.
type Config struct {
	Logger    Logger
	Markets   *markets.Registry
	Pools     PoolTracker
	Responder *chat.Responder // defaults to chat.NewResponder()

	Metrics  *metrics.Metrics    // optional
	Gatherer prometheus.Gatherer // served at /metrics when set

	// RPC, when set, is mounted at /rpc.
	RPC http.Handler

	// Token bucket shared by every client; 0 disables limiting.
	RateLimit rate.Limit
	RateBurst int

	RequestTimeout time.Duration // defaults to 15s
}

func (c *Config) validate() error {
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.Markets == nil {
		return errors.New("config: Markets is required")
	}
	if c.Pools == nil {
		return errors.New("config: Pools is required")
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		return errors.New("config: RateLimit and RateBurst must not be negative")
	}
	if c.RateLimit > 0 && c.RateBurst == 0 {
		return errors.New("config: RateBurst is required when RateLimit is set")
	}
	return nil
}

// Server routes the JSON surface.
type Server struct {
	markets   *markets.Registry
	pools     PoolTracker
	responder *chat.Responder
	logger    Logger
	metrics   *metrics.Metrics
	router    chi.Router
}

// New builds a Server and its routes.
func New(cfg Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Responder == nil {
		cfg.Responder = chat.NewResponder()
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 15 * time.Second
	}

	s := &Server{
		markets:   cfg.Markets,
		pools:     cfg.Pools,
		responder: cfg.Responder,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Logger, cfg.Metrics))
	r.Use(middleware.Recoverer)
	if cfg.RateLimit > 0 {
		r.Use(rateLimit(rate.NewLimiter(cfg.RateLimit, cfg.RateBurst), cfg.Logger))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	if cfg.RPC != nil {
		r.Handle("/rpc", cfg.RPC)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		r.Get("/markets", s.handleMarkets)
		r.Get("/markets/compare", s.handleCompare)
		r.Get("/pools/{poolId}", s.handlePool)
		r.Post("/pools/{poolId}/assistant", s.handleAssistant)
	})

	s.router = r
	return s, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
