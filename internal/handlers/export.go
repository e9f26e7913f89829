package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"retail-dashboard/internal/currency"
	"retail-dashboard/internal/errors"
	"retail-dashboard/internal/models"
	"retail-dashboard/internal/observability"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// HandleExport downloads the current analysis as a workbook.
func (h *APIHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	view, ok := h.render(w, r)
	if !ok {
		return
	}

	f, err := Workbook(view, h.analytics.Settings().CurrencySymbol)
	if err != nil {
		errors.WriteError(w, r, h.logger, errors.InternalWrap(err, "build workbook"),
			observability.GetRequestID(r.Context()))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportFilename(view)))
	if err := f.Write(w); err != nil {
		h.logger.WarnContext(r.Context(), "write workbook", "error", err)
	}
}

// Workbook lays a view out as a Metrics sheet, a Monthly sheet and one sheet
// per ranking. Revenue is written as numbers so it stays summable.
func Workbook(view models.View, symbol string) (*excelize.File, error) {
	f := excelize.NewFile()

	const metrics = "Metrics"
	if err := f.SetSheetName("Sheet1", metrics); err != nil {
		f.Close()
		return nil, err
	}

	rows := [][]any{
		{"Analysis", view.Title},
		{"From", view.Start},
		{"To", view.End},
		{"Number of Customers", view.Metrics.UniqueCustomers},
		{"Total Quantity", view.Metrics.TotalQuantity},
		{"Total Invoices", view.Metrics.TotalInvoices},
		{"Total Revenue", view.Metrics.TotalRevenue.InexactFloat64()},
		{"Total Revenue (formatted)", currency.WithSymbol(symbol, view.Metrics.TotalRevenue)},
	}
	if err := writeRows(f, metrics, rows); err != nil {
		f.Close()
		return nil, err
	}

	monthly := [][]any{{"Month", "Month End", "Total Revenue"}}
	for _, p := range view.Monthly {
		monthly = append(monthly, []any{p.Month, p.MonthEnd.Format("2006-01-02"), p.Revenue.InexactFloat64()})
	}
	if err := newSheet(f, "Monthly", monthly); err != nil {
		f.Close()
		return nil, err
	}

	for _, rk := range view.Rankings {
		header := []any{rk.Group.Label(), rk.Primary.Label()}
		if rk.Secondary != models.MetricNone {
			header = append(header, rk.Secondary.Label())
		}
		data := [][]any{header}
		for _, e := range rk.Entries {
			row := []any{e.Key, measure(rk.Primary, e)}
			if rk.Secondary != models.MetricNone {
				row = append(row, measure(rk.Secondary, e))
			}
			data = append(data, row)
		}
		if err := newSheet(f, rk.ID, data); err != nil {
			f.Close()
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

func newSheet(f *excelize.File, name string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("new sheet %s: %w", name, err)
	}
	return writeRows(f, name, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return f.SetColWidth(sheet, "A", "C", 24)
}

func measure(m models.Metric, e models.RankedEntry) any {
	if m == models.MetricQuantity {
		return e.Quantity
	}
	return e.Revenue.InexactFloat64()
}

func exportFilename(view models.View) string {
	entity := strings.Trim(unsafeFilename.ReplaceAllString(view.Entity, "-"), "-")
	if entity == "" {
		entity = "all"
	}
	return fmt.Sprintf("retail-%s-%s-%s_%s.xlsx", view.Mode, entity, view.Start, view.End)
}
