package handlers

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"retail-dashboard/internal/models"
)

func TestAPIHandlers_HandleExport(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	w := httptest.NewRecorder()
	handlers.HandleExport(w, httptest.NewRequest(http.MethodGet, "/api/export.xlsx?mode=country&country=UK", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	cd := w.Header().Get("Content-Disposition")
	if !strings.Contains(cd, `filename="retail-country-UK-2024-01-05_2024-02-10.xlsx"`) {
		t.Errorf("Content-Disposition = %q", cd)
	}

	f, err := excelize.OpenReader(w.Body)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	for _, want := range []string{"Metrics", "Monthly", "top-products", "top-customers", "top-products-quantity"} {
		if !slices.Contains(sheets, want) {
			t.Errorf("sheets = %v, missing %s", sheets, want)
		}
	}

	if v, _ := f.GetCellValue("Metrics", "B1"); v != "Analysis for UK" {
		t.Errorf("Metrics!B1 = %q", v)
	}
	if v, _ := f.GetCellValue("Metrics", "B4"); v != "2" {
		t.Errorf("customers cell = %q, want 2", v)
	}
	if v, _ := f.GetCellValue("Metrics", "B8"); v != "$150.00" {
		t.Errorf("formatted revenue = %q, want $150.00", v)
	}

	monthly, err := f.GetRows("Monthly")
	if err != nil {
		t.Fatal(err)
	}
	if len(monthly) != 3 || monthly[1][0] != "2024-01" || monthly[2][1] != "2024-02-29" {
		t.Errorf("Monthly rows = %v", monthly)
	}

	customers, err := f.GetRows("top-customers")
	if err != nil {
		t.Fatal(err)
	}
	if len(customers) < 2 || customers[0][0] != "CustomerID" || customers[1][0] != "CustomerA" {
		t.Errorf("top-customers rows = %v", customers)
	}
}

func TestAPIHandlers_HandleExport_Invalid(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	w := httptest.NewRecorder()
	handlers.HandleExport(w, httptest.NewRequest(http.MethodGet, "/api/export.xlsx?mode=product", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if w.Header().Get("Content-Type") == xlsxContentType {
		t.Error("rejected export must not send a workbook")
	}
}

func TestExportFilename(t *testing.T) {
	name := exportFilename(models.View{Mode: models.ModeProduct, Entity: `WHITE "HEART" / LIGHT`, Start: "2024-01-01", End: "2024-01-31"})
	if name != "retail-product-WHITE-HEART-LIGHT-2024-01-01_2024-01-31.xlsx" {
		t.Errorf("exportFilename() = %q", name)
	}
}
