package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/taskhub/taskhub/pkg/auth"
	"github.com/taskhub/taskhub/pkg/config"
	"github.com/taskhub/taskhub/pkg/middleware"
	"github.com/taskhub/taskhub/pkg/observability"
	"github.com/taskhub/taskhub/pkg/storage"
)

// Server wires storage, credentials, and middleware into the HTTP API
type Server struct {
	cfg       *config.Config
	store     storage.Store
	logger    *observability.Logger
	metrics   *observability.Metrics
	tokens    *auth.TokenIssuer
	passwords *auth.PasswordHasher

	rateLimiter func(http.Handler) http.Handler
}

// NewServer creates the API server. metrics may be nil to disable
// instrumentation (used by tests).
func NewServer(cfg *config.Config, store storage.Store, logger *observability.Logger, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:       cfg,
		store:     store,
		logger:    logger,
		metrics:   metrics,
		tokens:    auth.NewTokenIssuer(cfg.Auth.SecretKey, cfg.Auth.TokenTTL),
		passwords: auth.NewPasswordHasher(cfg.Auth.BcryptCost),
	}
}

// SetRateLimiter installs a rate limiting middleware ahead of routing
func (s *Server) SetRateLimiter(limiter func(http.Handler) http.Handler) {
	s.rateLimiter = limiter
}

// Router builds the versioned API router
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	if s.metrics != nil {
		router.Use(middleware.InstrumentMetrics(s.metrics))
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	authMw := middleware.NewAuthMiddleware(s.tokens, s.store, s.logger)

	authHandlers := NewAuthHandlers(s.store, s.tokens, s.passwords, s.logger, s.metrics)
	authHandlers.RegisterRoutes(api, authMw)

	itemHandlers := NewItemHandlers(s.store, s.logger, s.metrics)
	itemHandlers.RegisterRoutes(api, authMw)

	adminHandlers := NewAdminHandlers(s.store, s.logger, s.metrics)
	adminHandlers.RegisterRoutes(api, authMw)

	// Health endpoint is also exposed on the API port for convenience;
	// the ops listener serves the canonical one.
	router.Handle("/health", observability.NewHealthChecker(s.store).Handler()).Methods("GET")

	return router
}

// Handler returns the complete middleware chain around the router:
// request ID, logging, CORS, rate limiting, optional tracing, then routing.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.Router()

	if s.rateLimiter != nil {
		handler = s.rateLimiter(handler)
	}
	handler = middleware.CORS(middleware.CORSConfig{AllowedOrigins: s.cfg.CORS.AllowedOrigins})(handler)
	handler = middleware.RequestLogger(s.logger)(handler)
	handler = middleware.RequestID(handler)

	if s.cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "taskhub-api")
	}

	return handler
}
