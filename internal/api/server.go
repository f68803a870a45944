// Package api implements the HTTP surface of the solver service.
package api

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"carpsolver/internal/auth"
	"carpsolver/internal/config"
	"carpsolver/internal/logging"
	"carpsolver/internal/metrics"
	"carpsolver/internal/store"
	"carpsolver/internal/webhooks"
)

type Server struct {
	Store   store.Store
	Pub     *webhooks.Publisher
	Auth    *auth.Verifier
	Broker  EventBroker
	Limiter *rate.Limiter
	Log     *logging.Logger
	Config  config.Config

	// async runs outlive their request; cancelled by Close
	bg     context.Context
	cancel context.CancelFunc
	runs   sync.WaitGroup
}

// NewServer wires the store, broker, and auth chosen by cfg. With neither
// DATABASE_URL nor SQLITE_PATH set it uses the in-memory store; without
// REDIS_URL it uses the in-process broker.
func NewServer(cfg config.Config, log *logging.Logger) (*Server, error) {
	var s store.Store
	switch {
	case strings.TrimSpace(cfg.Store.DatabaseURL) != "":
		pg, err := store.NewPostgres(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(context.Background()); err != nil {
			pg.Close()
			return nil, err
		}
		s = pg
	case strings.TrimSpace(cfg.Store.SQLitePath) != "":
		lite, err := store.NewSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		s = lite
	default:
		s = store.NewMemory()
	}

	var broker EventBroker
	if cfg.Broker.RedisURL != "" {
		rb, err := NewRedisBroker(cfg.Broker.RedisURL)
		if err != nil {
			log.Errorf("redis broker unavailable, using in-process broker: %v", err)
			broker = NewBroker()
		} else {
			broker = rb
		}
	} else {
		broker = NewBroker()
	}

	verifier, err := auth.NewVerifier(cfg.Auth)
	if err != nil {
		s.Close()
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.Server.RateRPS > 0 {
		burst := cfg.Server.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateRPS), burst)
	}

	metrics.RegisterDefault()
	bg, cancel := context.WithCancel(context.Background())
	return &Server{
		Store:   s,
		Pub:     webhooks.NewPublisher(s),
		Auth:    verifier,
		Broker:  broker,
		Limiter: limiter,
		Log:     log,
		Config:  cfg,
		bg:      bg,
		cancel:  cancel,
	}, nil
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store, s.Config.Webhooks, s.Log)
}

// Handler returns the service routes, each instrumented under its pattern.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, metrics.Instrument(pattern, h))
	}
	handle("/v1/solve", s.SolveHandler)
	handle("/v1/validate", s.ValidateHandler)
	handle("/v1/runs", s.RunsHandler)
	handle("/v1/runs/", s.RunByIDHandler) // includes /solution, /metrics, /webhooks, /events/stream, /events/ws
	handle("/v1/solver/config", s.SolverConfigHandler)

	handle("/healthz", s.HealthHandler)
	handle("/readyz", s.ReadyHandler)
	handle("/debug/info", s.DebugJSON)
	handle("/openapi.yaml", s.OpenAPIHandler)
	handle("/openapi.json", s.OpenAPIJSONHandler)
	handle("/docs", s.DocsHandler)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// Close cancels in-flight async runs, waits for them to archive their
// result, and releases the store.
func (s *Server) Close() error {
	s.cancel()
	s.runs.Wait()
	if c, ok := s.Broker.(interface{ Close() error }); ok {
		_ = c.Close()
	}
	return s.Store.Close()
}
