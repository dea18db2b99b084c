package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/cargo-analytics/internal/observability"
)

// APIPrefixes are the paths the report API is mounted under. The dashboard
// client uses all three interchangeably.
var APIPrefixes = []string{"/api/dashboard", "/api/analytics", "/api/cargo-prediction"}

// Options configures the router.
type Options struct {
	CORSAllowedOrigins []string
	PredictRateLimit   int // requests per minute per client IP; 0 disables the limit
}

// Server exposes the report API plus health, readiness and metrics endpoints.
type Server struct {
	httpServer *http.Server
	dashboard  Dashboard
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server for the dashboard service.
func NewServer(addr string, dashboard Dashboard, opts Options, metrics *observability.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		dashboard: dashboard,
		metrics:   metrics,
		logger:    logger,
	}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.routes(opts),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/", handleBanner)
	r.Get("/api/health", handleHealth)
	r.Get("/healthz", handleLiveness)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	limit := func(next http.Handler) http.Handler { return next }
	if opts.PredictRateLimit > 0 {
		limit = httprate.Limit(opts.PredictRateLimit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many prediction requests"})
			}),
		)
	}
	for _, prefix := range APIPrefixes {
		r.Mount(prefix, s.apiRoutes(limit))
	}
	return r
}

// apiRoutes builds the report router. The predict limiter is shared across
// mounts so one client cannot multiply its quota by switching prefix.
func (s *Server) apiRoutes(predictLimit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/summary", s.handleSummary)
	r.Get("/all", s.handleTypeTotals)
	r.Get("/top-stations", s.handleTopStations)
	r.Get("/yearly", s.handleYearly)
	r.Get("/heatmap", s.handleHeatmap)
	r.Get("/daily-pattern", s.handleDailyPattern)
	r.Get("/yoy-full", s.handleYoY)
	r.Post("/marketShare/station", s.handleStationShare)
	r.Post("/marketShare/cargoType", s.handleCategoryShare)
	r.Get("/quarterly", s.handleQuarterly)
	r.Get("/growth-decline", s.handleGrowthDecline)
	r.Post("/cargo-mix", s.handleCargoMix)
	r.With(predictLimit).Post("/predict", s.handlePredict)
	r.Get("/getAll", s.handleListPredictions)
	return r
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
