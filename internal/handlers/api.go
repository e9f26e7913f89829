package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"retail-dashboard/internal/aggregate"
	"retail-dashboard/internal/errors"
	"retail-dashboard/internal/models"
	"retail-dashboard/internal/observability"
	"retail-dashboard/internal/services"
)

const version = "1.0.0"

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func (h *APIHandlers) HandleOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.analytics.Options()
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	headers := map[string]string{
		"Cache-Control": "public, max-age=300",
	}

	errors.WriteSuccessWithHeaders(w, r, opts, headers)
}

// HandleAnalysis returns the full view for the query's controls.
func (h *APIHandlers) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	view, ok := h.render(w, r)
	if !ok {
		return
	}
	errors.WriteSuccess(w, r, view)
}

func (h *APIHandlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	view, ok := h.render(w, r)
	if !ok {
		return
	}
	errors.WriteSuccess(w, r, map[string]any{
		"title":   view.Title,
		"start":   view.Start,
		"end":     view.End,
		"metrics": view.Metrics,
	})
}

func (h *APIHandlers) HandleMonthlyTrend(w http.ResponseWriter, r *http.Request) {
	view, ok := h.render(w, r)
	if !ok {
		return
	}
	errors.WriteSuccess(w, r, view.Monthly)
}

// HandleTop runs one ranking chosen by group, metric, secondary and n over
// the selection.
func (h *APIHandlers) HandleTop(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	controls, err := controlsFromQuery(q)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	query := aggregate.Query{
		Group:     models.Group(q.Get("group")),
		Primary:   models.Metric(q.Get("metric")),
		Secondary: models.Metric(q.Get("secondary")),
		N:         10,
	}
	if query.Primary == models.MetricNone {
		query.Primary = models.MetricRevenue
	}
	if raw := q.Get("n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			errors.WriteError(w, r, h.logger,
				errors.ValidationWrap(err, "n must be an integer"),
				observability.GetRequestID(r.Context()))
			return
		}
		query.N = n
	}

	entries, err := h.analytics.Top(r.Context(), controls, query)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	errors.WriteSuccess(w, r, entries)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if !h.analytics.Ready() {
		status = "loading"
	}

	healthData := map[string]string{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   version,
	}

	errors.WriteSuccess(w, r, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.analytics.Stats()

	errors.WriteSuccess(w, r, stats)
}

func (h *APIHandlers) render(w http.ResponseWriter, r *http.Request) (models.View, bool) {
	controls, err := controlsFromQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return models.View{}, false
	}

	view, err := h.analytics.Render(r.Context(), controls)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return models.View{}, false
	}
	return view, true
}
