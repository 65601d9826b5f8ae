// Package http serves the read-only finance API over the ledger.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"finsheet/internal/log"
	"finsheet/internal/middleware/ratelimit"
	"finsheet/internal/middleware/security"
	"finsheet/internal/middleware/trace"
)

// Metrics is what the server reports to and exposes at /metrics.
type Metrics interface {
	trace.Observer
	ObserveRateLimited()
	Handler() http.Handler
}

type Config struct {
	Addr         string
	RateLimitRPS float64
	RateBurst    int
	Metrics      Metrics // optional
	Logger       *log.Logger
}

type Server struct {
	http.Server
	finance  Finance
	limiter  *ratelimit.Limiter
	detector *security.Detector
	logger   *log.Logger

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, finance Finance) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		finance:  finance,
		detector: security.NewDetector(),
		logger:   logger,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateBurst,
		}),
	}

	var observer trace.Observer
	if cfg.Metrics != nil {
		observer = cfg.Metrics
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})
	notAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
	router.MethodNotAllowedHandler = notAllowed

	router.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	if cfg.Metrics != nil {
		router.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/finance").Subrouter()
	// subrouters do not inherit the parent's handler
	api.MethodNotAllowedHandler = notAllowed
	api.Use(s.limiter.Middleware(s.detector.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		if cfg.Metrics != nil {
			cfg.Metrics.ObserveRateLimited()
		}
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ClientIP(r), log.FieldPath, r.URL.Path)
		writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
	}))
	api.HandleFunc("/overview", s.handleOverview).Methods(http.MethodGet)
	api.HandleFunc("/balances", s.handleBalances).Methods(http.MethodGet)
	api.HandleFunc("/transactions", s.handleTransactions).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.handleCategories).Methods(http.MethodGet)
	api.HandleFunc("/sheets", s.handleSheets).Methods(http.MethodGet)

	router.Use(
		trace.Recover(logger),
		trace.NewMiddleware(logger, s.detector.ClientIP, observer).Middleware,
		security.Headers(security.DefaultHeadersConfig()),
		s.detector.Middleware(logger),
	)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
