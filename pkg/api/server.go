package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/SwapHiremath/subscription-billing-simulator/pkg/httputil"
	"github.com/SwapHiremath/subscription-billing-simulator/pkg/observability"
)

const maxRequestBytes = 1 << 20 // 1 MiB

// ServerOptions configures the API server
type ServerOptions struct {
	Logger         *observability.Logger
	Metrics        *observability.Metrics
	HealthChecker  *observability.HealthChecker
	TracingEnabled bool
}

// Server wires handlers, middleware and operational endpoints into a router
type Server struct {
	router  *mux.Router
	handler http.Handler
	logger  *observability.Logger
}

// NewServer creates a server exposing the given subscription handlers
func NewServer(handlers *SubscriptionHandlers, opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger("info", nil)
	}

	router := mux.NewRouter()
	handlers.RegisterRoutes(router)

	if opts.HealthChecker != nil {
		router.HandleFunc("/healthz", opts.HealthChecker.Liveness).Methods("GET")
		router.HandleFunc("/readyz", opts.HealthChecker.Readiness).Methods("GET")
	}
	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics.Handler()).Methods("GET")
	}

	var handler http.Handler = router
	handler = httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger, opts.Metrics),
		httputil.RecoveryMiddleware(logger),
		httputil.ContentTypeMiddleware,
		httputil.MaxBytesMiddleware(maxRequestBytes),
	)(handler)

	if opts.TracingEnabled {
		handler = otelhttp.NewHandler(handler, "billing-sim")
	}

	return &Server{
		router:  router,
		handler: handler,
		logger:  logger,
	}
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
