package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"retail-dashboard/internal/config"
)

func TestNewLoggerTo_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggerConfig{Level: "info", Format: "json"})

	ctx := WithRequestID(context.Background(), "req-1")
	logger.DebugContext(ctx, "hidden")
	logger.InfoContext(ctx, "visible", "rows", 3)
	logger.Log(ctx, LevelCritical, "fatal")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "visible", first["msg"])
	assert.Equal(t, "req-1", first["request_id"])
	assert.EqualValues(t, 3, first["rows"])
	assert.Contains(t, first, "source")

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "CRITICAL", second["level"])
}

func TestNewLoggerTo_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggerConfig{Level: "debug", Format: "text"})
	logger.With("component", "loader").Debug("parsing")

	assert.Contains(t, buf.String(), "msg=parsing")
	assert.Contains(t, buf.String(), "component=loader")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warning"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("bogus"))
}

func TestRequestID(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
	assert.Equal(t, "abc", GetRequestID(WithRequestID(context.Background(), "abc")))
}

func TestSetupTelemetry_MetricsExposed(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tel, err := SetupTelemetry(config.TelemetryConfig{
		ServiceName:   "retail-dashboard-test",
		EnableTracing: false,
		TraceExporter: "none",
		SampleRatio:   1,
		EnableMetrics: true,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	tel.Metrics.Renders.Add(context.Background(), 2,
		metric.WithAttributes(attribute.String("mode", "country")))

	rec := httptest.NewRecorder()
	tel.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, body, "dashboard_renders")
	assert.Contains(t, body, `mode="country"`)
}

func TestNoopTelemetry(t *testing.T) {
	tel := NewNoopTelemetry()
	require.NotNil(t, tel.Metrics)

	ctx, span := tel.Tracer.Start(context.Background(), "noop")
	span.End()
	tel.Metrics.RowsLoaded.Add(ctx, 10)

	assert.NoError(t, tel.Shutdown(context.Background()))
}
