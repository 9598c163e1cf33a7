package rest

import (
	"net/http"

	"thoughtgraph/application/ports"
	"thoughtgraph/interfaces/http/rest/handlers"
	"thoughtgraph/interfaces/http/rest/middleware"
	"thoughtgraph/pkg/auth"
	apperrors "thoughtgraph/pkg/errors"
	"thoughtgraph/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterConfig holds the knobs of the stub backend router
type RouterConfig struct {
	AllowedOrigins        []string
	IPRequestsPerMinute   int
	UserRequestsPerMinute int
	Debug                 bool
}

// Router creates and configures the HTTP router
type Router struct {
	repo      ports.GraphRepository
	validator *auth.JWTValidator
	metrics   *observability.Collector
	config    RouterConfig
	logger    *zap.Logger
}

// NewRouter creates a new router instance. metrics may be nil.
func NewRouter(
	repo ports.GraphRepository,
	validator *auth.JWTValidator,
	metrics *observability.Collector,
	config RouterConfig,
	logger *zap.Logger,
) *Router {
	if config.IPRequestsPerMinute <= 0 {
		config.IPRequestsPerMinute = middleware.DefaultIPRequestsPerMinute
	}
	if config.UserRequestsPerMinute <= 0 {
		config.UserRequestsPerMinute = middleware.DefaultUserRequestsPerMinute
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"http://localhost:3000"}
	}
	return &Router{
		repo:      repo,
		validator: validator,
		metrics:   metrics,
		config:    config,
		logger:    logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()
	errorHandler := apperrors.NewErrorHandler(rt.logger, rt.config.Debug)

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(errorHandler.Middleware)
	router.Use(middleware.Logger(rt.logger, rt.metrics))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.NotFound(errorHandler.NotFound)
	router.MethodNotAllowed(errorHandler.MethodNotAllowed)

	router.Get("/health", rt.healthCheck)
	if rt.metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(rt.metrics.GetRegistry(), promhttp.HandlerOpts{}))
	}

	graphHandler := handlers.NewGraphHandler(rt.repo, errorHandler, rt.logger)

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(
			rt.validator,
			auth.NewIPRateLimiter(rt.config.IPRequestsPerMinute),
			auth.NewUserRateLimiter(rt.config.UserRequestsPerMinute),
			errorHandler,
			rt.logger,
		))

		r.Route("/graphs", func(r chi.Router) {
			r.Get("/list", graphHandler.ListThreads)
			r.Post("/", graphHandler.CreateGraph)
			r.Post("/update", graphHandler.UpdateGraph)
			r.Get("/{graphID}", graphHandler.GetGraph)
		})
		r.Post("/process-text", graphHandler.ProcessText)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
