package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"retail-dashboard/internal/errors"
	"retail-dashboard/internal/handlers"
	"retail-dashboard/internal/middleware"
	"retail-dashboard/internal/observability"
	"retail-dashboard/internal/services"
)

type Server struct {
	analytics   *services.Analytics
	router      chi.Router
	logger      *slog.Logger
	telemetry   *observability.Telemetry
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

// NewServer routes every endpoint through the given middleware, outermost
// first. The middleware runs inside the router so it can see route patterns.
func NewServer(analytics *services.Analytics, logger *slog.Logger, telemetry *observability.Telemetry, templateHandlers *TemplateHandlers, mws ...middleware.Middleware) *Server {
	if telemetry == nil {
		telemetry = observability.NewNoopTelemetry()
	}

	s := &Server{
		analytics:   analytics,
		router:      chi.NewRouter(),
		logger:      logger,
		telemetry:   telemetry,
		apiHandlers: handlers.NewAPIHandlers(analytics, logger),
		sseHandlers: handlers.NewSSEHandlers(analytics, logger),
	}
	if len(mws) > 0 {
		s.router.Use(middleware.Chain(mws...))
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	r := s.router

	r.NotFound(s.notFound)
	r.MethodNotAllowed(s.methodNotAllowed)

	// Dashboard routes
	r.Get("/", templateHandlers.Dashboard)
	r.Get("/health", s.apiHandlers.HandleHealth)
	r.Get("/admin/stats", s.apiHandlers.HandleStats)
	r.Method(http.MethodGet, "/metrics", s.telemetry.Handler())

	// REST API endpoints
	r.Route("/api", func(r chi.Router) {
		r.Get("/options", s.apiHandlers.HandleOptions)
		r.Get("/analysis", s.apiHandlers.HandleAnalysis)
		r.Get("/metrics", s.apiHandlers.HandleMetrics)
		r.Get("/monthly-trend", s.apiHandlers.HandleMonthlyTrend)
		r.Get("/top", s.apiHandlers.HandleTop)
		r.Get("/export.xlsx", s.apiHandlers.HandleExport)
	})

	// Datastar SSE endpoints
	r.Get("/sse/analyze", s.sseHandlers.HandleAnalyze)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	errors.WriteError(w, r, s.logger, errors.NotFound("Resource not found"),
		observability.GetRequestID(r.Context()))
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	errors.WriteError(w, r, s.logger, errors.MethodNotAllowed("Method not allowed"),
		observability.GetRequestID(r.Context()))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
