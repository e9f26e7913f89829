package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"retail-dashboard/internal/models"
	"retail-dashboard/internal/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func createTestAnalytics() *services.Analytics {
	a := services.NewAnalytics(services.WithLogger(testLogger()))
	date := func(m time.Month, d int) time.Time { return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC) }
	a.SetData([]models.Transaction{
		{InvoiceNo: "INV1", CustomerID: "CustomerA", Country: "UK", Description: "Widget", Quantity: 2, TotalRevenue: decimal.NewFromInt(100), Date: date(1, 5)},
		{InvoiceNo: "INV2", CustomerID: "CustomerB", Country: "UK", Description: "Widget", Quantity: 1, TotalRevenue: decimal.NewFromInt(50), Date: date(2, 10)},
		{InvoiceNo: "INV3", CustomerID: "CustomerA", Country: "US", Description: "Gadget", Quantity: 3, TotalRevenue: decimal.NewFromInt(9000000), Date: date(1, 20)},
	})
	return a
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Fields  []struct {
			Field string `json:"field"`
			Rule  string `json:"rule"`
		} `json:"fields"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

func TestNewAPIHandlers(t *testing.T) {
	analytics := createTestAnalytics()
	handlers := NewAPIHandlers(analytics, testLogger())

	if handlers == nil {
		t.Fatal("NewAPIHandlers() returned nil")
	}
	if handlers.analytics != analytics {
		t.Error("NewAPIHandlers() should set analytics field")
	}
}

func TestAPIHandlers_HandleOptions(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/options", nil)
	w := httptest.NewRecorder()
	handlers.HandleOptions(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "public, max-age=300" {
		t.Errorf("expected Cache-Control header, got %q", cc)
	}

	var opts models.Options
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &opts); err != nil {
		t.Fatalf("decode options: %v", err)
	}
	if len(opts.Countries) != 2 || opts.Countries[0] != "UK" || opts.Countries[1] != "US" {
		t.Errorf("Countries = %v, want [UK US]", opts.Countries)
	}
	if opts.MinDate != "2024-01-05" || opts.MaxDate != "2024-02-10" {
		t.Errorf("date bounds = %s..%s", opts.MinDate, opts.MaxDate)
	}
}

func TestAPIHandlers_HandleAnalysis(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/analysis?mode=country&country=UK&start=2024-01-01&end=2024-12-31", nil)
	w := httptest.NewRecorder()
	handlers.HandleAnalysis(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Errorf("expected JSON content type, got %q", ct)
	}

	env := decodeEnvelope(t, w)
	if !env.Success {
		t.Error("expected success to be true")
	}

	var view models.View
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Title != "Analysis for UK" {
		t.Errorf("Title = %q", view.Title)
	}
	if view.Metrics.Revenue != "$150.00" || view.Metrics.UniqueCustomers != 2 || view.Metrics.TotalInvoices != 2 {
		t.Errorf("Metrics = %+v", view.Metrics)
	}
	if len(view.Rankings) != 3 {
		t.Errorf("expected 3 rankings in country mode, got %d", len(view.Rankings))
	}
}

func TestAPIHandlers_HandleAnalysis_Errors(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		analytics  *services.Analytics
		wantStatus int
		wantCode   string
		wantField  string
	}{
		{
			name:       "bad date",
			url:        "/api/analysis?mode=country&country=UK&start=2024-13-01",
			analytics:  createTestAnalytics(),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "missing country",
			url:        "/api/analysis?mode=country",
			analytics:  createTestAnalytics(),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
			wantField:  "Country",
		},
		{
			name:       "unknown mode",
			url:        "/api/analysis?mode=region",
			analytics:  createTestAnalytics(),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
			wantField:  "Mode",
		},
		{
			name:       "not loaded",
			url:        "/api/analysis?mode=country&country=UK",
			analytics:  services.NewAnalytics(services.WithLogger(testLogger())),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "SERVICE_UNAVAILABLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlers := NewAPIHandlers(tt.analytics, testLogger())

			w := httptest.NewRecorder()
			handlers.HandleAnalysis(w, httptest.NewRequest(http.MethodGet, tt.url, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			env := decodeEnvelope(t, w)
			if env.Success || env.Error == nil {
				t.Fatalf("expected error envelope, got %+v", env)
			}
			if env.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", env.Error.Code, tt.wantCode)
			}
			if tt.wantField != "" {
				found := false
				for _, f := range env.Error.Fields {
					if f.Field == tt.wantField {
						found = true
					}
				}
				if !found {
					t.Errorf("fields = %+v, want one for %s", env.Error.Fields, tt.wantField)
				}
			}
		})
	}
}

func TestAPIHandlers_HandleMetrics(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	w := httptest.NewRecorder()
	handlers.HandleMetrics(w, httptest.NewRequest(http.MethodGet, "/api/metrics?mode=product&product=Widget", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var data struct {
		Title   string         `json:"title"`
		Start   string         `json:"start"`
		End     string         `json:"end"`
		Metrics models.Metrics `json:"metrics"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &data); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	if data.Title != "Analysis for Widget" {
		t.Errorf("Title = %q", data.Title)
	}
	if data.Start != "2024-01-05" || data.End != "2024-02-10" {
		t.Errorf("range = %s..%s, want dataset bounds", data.Start, data.End)
	}
	if data.Metrics.TotalQuantity != 3 {
		t.Errorf("TotalQuantity = %d, want 3", data.Metrics.TotalQuantity)
	}
}

func TestAPIHandlers_HandleMonthlyTrend(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	w := httptest.NewRecorder()
	handlers.HandleMonthlyTrend(w, httptest.NewRequest(http.MethodGet, "/api/monthly-trend?mode=country&country=UK", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var points []models.MonthlyPoint
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &points); err != nil {
		t.Fatalf("decode trend: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 months, got %d", len(points))
	}
	if points[0].Month != "2024-01" || !points[0].Revenue.Equal(decimal.NewFromInt(100)) {
		t.Errorf("first point = %+v", points[0])
	}
	if points[1].Month != "2024-02" || !points[1].Revenue.Equal(decimal.NewFromInt(50)) {
		t.Errorf("second point = %+v", points[1])
	}
}

func TestAPIHandlers_HandleTop(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	w := httptest.NewRecorder()
	handlers.HandleTop(w, httptest.NewRequest(http.MethodGet, "/api/top?mode=country&country=UK&group=customer&metric=revenue&n=1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var entries []models.RankedEntry
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Key != "CustomerA" {
		t.Errorf("entries = %+v, want CustomerA only", entries)
	}
}

func TestAPIHandlers_HandleTop_Invalid(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	for _, url := range []string{
		"/api/top?mode=country&country=UK&group=customer&n=abc",
		"/api/top?mode=country&country=UK&group=region",
		"/api/top?mode=country&country=UK&group=product&metric=price",
	} {
		w := httptest.NewRecorder()
		handlers.HandleTop(w, httptest.NewRequest(http.MethodGet, url, nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", url, w.Code, http.StatusBadRequest)
		}
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	tests := []struct {
		name      string
		analytics *services.Analytics
		want      string
	}{
		{"loaded", createTestAnalytics(), "healthy"},
		{"loading", services.NewAnalytics(services.WithLogger(testLogger())), "loading"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlers := NewAPIHandlers(tt.analytics, testLogger())

			w := httptest.NewRecorder()
			handlers.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != http.StatusOK {
				t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
			}

			var health map[string]string
			if err := json.Unmarshal(decodeEnvelope(t, w).Data, &health); err != nil {
				t.Fatalf("decode health: %v", err)
			}
			if health["status"] != tt.want {
				t.Errorf("status = %q, want %q", health["status"], tt.want)
			}
			if health["version"] != version {
				t.Errorf("version = %q, want %q", health["version"], version)
			}
		})
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	w := httptest.NewRecorder()
	handlers.HandleStats(w, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var stats map[string]any
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats["loaded"] != true {
		t.Errorf("loaded = %v, want true", stats["loaded"])
	}
	if stats["record_count"] != float64(3) {
		t.Errorf("record_count = %v, want 3", stats["record_count"])
	}
}

func TestBuildControls(t *testing.T) {
	c, err := buildControls(" country ", "UK", "", "2024-01-01", "")
	if err != nil {
		t.Fatalf("buildControls() error = %v", err)
	}
	if c.Mode != models.ModeCountry || c.Country != "UK" {
		t.Errorf("controls = %+v", c)
	}
	if !c.Start.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Start = %v", c.Start)
	}
	if !c.End.IsZero() {
		t.Errorf("End = %v, want zero for the service to default", c.End)
	}

	if _, err := buildControls("country", "UK", "", "01/02/2024", ""); err == nil {
		t.Error("expected an error for a non ISO date")
	}
}

func BenchmarkAPIHandlers_HandleAnalysis(b *testing.B) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())
	req := httptest.NewRequest(http.MethodGet, "/api/analysis?mode=country&country=UK", nil)

	for b.Loop() {
		w := httptest.NewRecorder()
		handlers.HandleAnalysis(w, req)
	}
}
