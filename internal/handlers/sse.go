package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"retail-dashboard/internal/aggregate"
	"retail-dashboard/internal/models"
	"retail-dashboard/internal/services"
	"retail-dashboard/internal/ui/templates"
)

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// analyzeSignals are the control signals the page sends with @get.
type analyzeSignals struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Mode      string `json:"mode"`
	Country   string `json:"country"`
	Product   string `json:"product"`
}

func (s analyzeSignals) controls() (models.Controls, error) {
	return buildControls(s.Mode, s.Country, s.Product, s.StartDate, s.EndDate)
}

// HandleAnalyze re-renders the analysis for the page's current controls.
// Fragments replace #analysis-title, #metrics and #tables; chart series go
// out as the monthlyData and chartData signals.
func (h *SSEHandlers) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var signals analyzeSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		h.logger.WarnContext(r.Context(), "read signals", "error", err)
		http.Error(w, "invalid signals", http.StatusBadRequest)
		return
	}

	sse := datastar.NewSSE(w, r)
	ctx := r.Context()

	controls, err := signals.controls()
	if err != nil {
		h.patch(ctx, sse, templates.Notice("Dates must be formatted YYYY-MM-DD"))
		return
	}

	view, err := h.analytics.Render(ctx, controls)
	switch {
	case err == nil:
	case stderrors.Is(err, context.Canceled):
		h.logger.DebugContext(ctx, "analysis abandoned", "mode", signals.Mode)
		return
	case stderrors.Is(err, aggregate.ErrInvalidControls):
		h.patch(ctx, sse, templates.Notice(noticeFor(controls)))
		return
	case stderrors.Is(err, services.ErrNotLoaded):
		h.patch(ctx, sse, templates.Notice("The dataset is still loading"))
		return
	default:
		h.logger.ErrorContext(ctx, "render analysis", "error", err)
		h.patch(ctx, sse, templates.Notice("Analysis failed, try again"))
		return
	}

	symbol := h.analytics.Settings().CurrencySymbol
	for _, c := range []templ.Component{
		templates.Title(view),
		templates.Metrics(view),
		templates.Tables(view, symbol),
	} {
		if !h.patch(ctx, sse, c) {
			return
		}
	}

	charts, err := json.Marshal(map[string]any{
		"monthlyData": templates.NewMonthlySeries(view),
		"chartData":   templates.NewChartSeries(view.Rankings),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "marshal chart signals", "error", err)
		return
	}
	if err := sse.PatchSignals(charts); err != nil {
		h.logger.DebugContext(ctx, "patch signals", "error", err)
	}
}

func (h *SSEHandlers) patch(ctx context.Context, sse *datastar.ServerSentEventGenerator, c templ.Component) bool {
	html, err := templ.ToGoHTML(ctx, c)
	if err != nil {
		h.logger.ErrorContext(ctx, "render fragment", "error", err)
		return false
	}
	if err := sse.PatchElements(string(html)); err != nil {
		h.logger.DebugContext(ctx, "patch elements", "error", err)
		return false
	}
	return true
}

func noticeFor(c models.Controls) string {
	switch {
	case c.Mode != models.ModeCountry && c.Mode != models.ModeProduct:
		return "Choose Country or Product analysis"
	case c.Mode == models.ModeCountry && c.Country == "":
		return "Select a country to analyse"
	case c.Mode == models.ModeProduct && c.Product == "":
		return "Select a product to analyse"
	default:
		return "Check the selected dates and filters"
	}
}
