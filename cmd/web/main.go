package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"retail-dashboard/internal/aggregate"
	"retail-dashboard/internal/config"
	"retail-dashboard/internal/dataset"
	"retail-dashboard/internal/middleware"
	"retail-dashboard/internal/observability"
	"retail-dashboard/internal/server"
	"retail-dashboard/internal/services"
	"retail-dashboard/internal/ui/templates"
)

const (
	version       = "1.0.0"
	pageTitle     = "Retail Sales Dashboard"
	renderTimeout = 10 * time.Second
	cacheMaxAge   = "public, max-age=300"
)

func dashboardHandler(analytics *services.Analytics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		opts, err := analytics.Options()
		if err != nil && !errors.Is(err, services.ErrNotLoaded) {
			logger.ErrorContext(ctx, "list dashboard options", "error", err)
			http.Error(w, "render error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := templates.Dashboard(templates.Page{Title: pageTitle, Options: opts}).Render(ctx, w); err != nil {
			logger.ErrorContext(ctx, "render dashboard", "error", err)
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func settingsFrom(cfg config.DashboardConfig) aggregate.Settings {
	s := aggregate.DefaultSettings()
	if cfg.CurrencySymbol != "" {
		s.CurrencySymbol = cfg.CurrencySymbol
	}
	s.TopCountries = cfg.TopCountries
	s.TopProducts = cfg.TopProducts
	s.TopCustomers = cfg.TopCustomers
	s.TopProductsByQuantity = cfg.TopProductsByQuantity
	s.ZeroFillMonths = cfg.ZeroFillMonths
	return s
}

// newHandler wires the routes behind the middleware chain.
func newHandler(cfg *config.Config, analytics *services.Analytics, tel *observability.Telemetry, logger *slog.Logger) http.Handler {
	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardHandler(analytics, logger),
	}

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	return server.NewServer(analytics, logger, tel, templateHandlers,
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(tel),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)
}

func loadDataset(cfg *config.Config, analytics *services.Analytics, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Dataset.LoadTimeout)
	defer cancel()

	var opts []dataset.Option
	if cfg.Dataset.CacheDir != "" {
		opts = append(opts, dataset.WithCacheDir(cfg.Dataset.CacheDir))
	}

	start := time.Now()
	if err := analytics.Load(ctx, cfg.Dataset.File, opts...); err != nil {
		return err
	}

	stats := analytics.Stats()
	logger.Info("dataset loaded",
		"file", cfg.Dataset.File,
		"rows", stats["record_count"],
		"skipped", stats["skipped_rows"],
		"duration", time.Since(start),
	)
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", version,
		"config", cfg,
	)

	tel, err := observability.SetupTelemetry(cfg.Telemetry, logger)
	if err != nil {
		logger.Error("failed to set up telemetry", "error", err)
		os.Exit(1)
	}

	analytics := services.NewAnalytics(
		services.WithSettings(settingsFrom(cfg.Dashboard)),
		services.WithTelemetry(tel),
		services.WithLogger(logger),
	)

	if err := loadDataset(cfg, analytics, logger); err != nil {
		logger.Log(context.Background(), observability.LevelCritical, "failed to load dataset",
			"file", cfg.Dataset.File,
			"error", err,
		)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, analytics, tel, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("flushing telemetry")
		return tel.Shutdown(ctx)
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
