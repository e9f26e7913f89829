// Package templates renders the dashboard page and the fragments the SSE
// endpoint patches into it.
package templates

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"strconv"

	"github.com/a-h/templ"

	"retail-dashboard/internal/currency"
	"retail-dashboard/internal/models"
)

//go:embed html/*.html
var files embed.FS

var pages = template.Must(template.New("").ParseFS(files, "html/*.html"))

// Page is what the dashboard shell needs to draw its controls.
type Page struct {
	Title   string
	Options models.Options
	Mode    models.Mode
}

// Signals is the initial datastar signal set, serialised for data-signals.
func (p Page) Signals() string {
	signals := map[string]any{
		"startDate":   p.Options.MinDate,
		"endDate":     p.Options.MaxDate,
		"mode":        string(p.Mode),
		"country":     first(p.Options.Countries),
		"product":     first(p.Options.Products),
		"monthlyData": map[string]any{},
		"chartData":   map[string]any{},
	}
	b, _ := json.Marshal(signals)
	return string(b)
}

func Dashboard(p Page) templ.Component {
	if p.Mode == "" {
		p.Mode = models.ModeCountry
	}
	return templ.FromGoHTML(pages.Lookup("dashboard.html"), p)
}

func Title(view models.View) templ.Component {
	return templ.FromGoHTML(pages.Lookup("title.html"), view)
}

type tile struct {
	Label string
	Value string
}

func Metrics(view models.View) templ.Component {
	m := view.Metrics
	tiles := []tile{
		{"Number of Customers", strconv.Itoa(m.UniqueCustomers)},
		{"Total Quantity", strconv.FormatInt(m.TotalQuantity, 10)},
		{"Total Invoices", strconv.Itoa(m.TotalInvoices)},
		{"Total Revenue", m.Revenue},
	}
	return templ.FromGoHTML(pages.Lookup("metrics.html"), tiles)
}

type table struct {
	ID      string
	Title   string
	Headers []string
	Rows    [][]string
}

// Tables renders every ranking flagged for tabular display. symbol prefixes
// revenue cells.
func Tables(view models.View, symbol string) templ.Component {
	tables := make([]table, 0, len(view.Rankings))
	for _, r := range view.Rankings {
		if !r.Table {
			continue
		}

		t := table{
			ID:      r.ID,
			Title:   r.Title,
			Headers: []string{r.Group.Label(), r.Primary.Label()},
		}
		if r.Secondary != models.MetricNone {
			t.Headers = append(t.Headers, r.Secondary.Label())
		}

		for _, e := range r.Entries {
			row := []string{e.Key, cell(r.Primary, e, symbol)}
			if r.Secondary != models.MetricNone {
				row = append(row, cell(r.Secondary, e, symbol))
			}
			t.Rows = append(t.Rows, row)
		}
		tables = append(tables, t)
	}
	return templ.FromGoHTML(pages.Lookup("tables.html"), tables)
}

// Notice replaces the analysis title with a message, used for rejected
// controls.
func Notice(message string) templ.Component {
	return templ.FromGoHTML(pages.Lookup("notice.html"), message)
}

// cell shows full grouped amounts; only the metric tiles abbreviate.
func cell(m models.Metric, e models.RankedEntry, symbol string) string {
	if m == models.MetricQuantity {
		return groupedQuantity(e.Quantity)
	}
	return currency.GroupedWithSymbol(symbol, e.Revenue)
}

func groupedQuantity(q int64) string {
	if q < 0 {
		return "-" + currency.GroupInt(strconv.FormatInt(-q, 10))
	}
	return currency.GroupInt(strconv.FormatInt(q, 10))
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// MonthlySeries is the chart-ready form of the monthly trend.
type MonthlySeries struct {
	Title  string    `json:"title"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

func NewMonthlySeries(view models.View) MonthlySeries {
	s := MonthlySeries{
		Title:  fmt.Sprintf("Monthly Revenue for %s", view.Entity),
		Labels: make([]string, 0, len(view.Monthly)),
		Values: make([]float64, 0, len(view.Monthly)),
	}
	for _, p := range view.Monthly {
		s.Labels = append(s.Labels, p.Month)
		s.Values = append(s.Values, p.Revenue.InexactFloat64())
	}
	return s
}

// ChartSeries is the chart-ready form of the ranking flagged for a chart.
type ChartSeries struct {
	Title  string    `json:"title"`
	Label  string    `json:"label"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

func NewChartSeries(rankings []models.Ranking) ChartSeries {
	for _, r := range rankings {
		if !r.Chart {
			continue
		}
		s := ChartSeries{
			Title:  r.Title,
			Label:  r.Primary.Label(),
			Labels: make([]string, 0, len(r.Entries)),
			Values: make([]float64, 0, len(r.Entries)),
		}
		for _, e := range r.Entries {
			s.Labels = append(s.Labels, e.Key)
			if r.Primary == models.MetricQuantity {
				s.Values = append(s.Values, float64(e.Quantity))
			} else {
				s.Values = append(s.Values, e.Revenue.InexactFloat64())
			}
		}
		return s
	}
	return ChartSeries{Labels: []string{}, Values: []float64{}}
}
