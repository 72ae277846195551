package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/strata/pkg/httputil"
	"github.com/platinummonkey/strata/pkg/observability"
	"github.com/platinummonkey/strata/pkg/resolver"
	"github.com/platinummonkey/strata/pkg/store"
)

// Server exposes the configuration resolver over HTTP
type Server struct {
	resolver *resolver.Resolver
	store    store.Store
	router   *mux.Router
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// Options configures an API server
type Options struct {
	Resolver *resolver.Resolver
	Store    store.Store
	Logger   *observability.Logger
	Metrics  *observability.Metrics

	// MetricsHandler, when set, is mounted at /metrics
	MetricsHandler http.Handler

	// HealthHandler, when set, is mounted at /healthz (the dedicated
	// health port serves the same handler)
	HealthHandler http.Handler
}

// NewServer creates a new API server with routes configured
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	s := &Server{
		resolver: opts.Resolver,
		store:    opts.Store,
		router:   mux.NewRouter(),
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}

	s.router.Use(s.requestContextMiddleware, s.observeMiddleware)
	s.setupRoutes(opts.MetricsHandler, opts.HealthHandler)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(metricsHandler, healthHandler http.Handler) {
	v1 := s.router.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/config", s.getSection).Methods("GET")
	v1.HandleFunc("/config/{key}", s.getConfig).Methods("GET")
	v1.HandleFunc("/environment", s.getEnvironment).Methods("GET")
	v1.HandleFunc("/environments", s.listEnvironments).Methods("GET")
	v1.HandleFunc("/cache/flush", s.flushCache).Methods("POST")

	if metricsHandler != nil {
		s.router.Handle("/metrics", metricsHandler).Methods("GET")
	}
	if healthHandler != nil {
		s.router.Handle("/healthz", healthHandler).Methods("GET")
	}
}

// Handler returns the fully wrapped HTTP handler for the server
func (s *Server) Handler() http.Handler {
	return httputil.Chain(
		httputil.RecoveryMiddleware(s.logger),
		httputil.MaxBytesMiddleware(1<<20),
	)(s.router)
}
