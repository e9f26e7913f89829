package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"retail-dashboard/internal/config"
)

const instrumentationName = "retail-dashboard"

// Telemetry bundles the tracer and meter the application reports through.
// Disabled signals are backed by no-op providers, so callers never check.
type Telemetry struct {
	Tracer  trace.Tracer
	Meter   metric.Meter
	Metrics *Metrics

	registry       *prometheus.Registry
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// Metrics holds the instruments recorded by the server and the analytics
// service.
type Metrics struct {
	HTTPRequests   metric.Int64Counter
	HTTPDuration   metric.Float64Histogram
	Renders        metric.Int64Counter
	RenderDuration metric.Float64Histogram
	RowsLoaded     metric.Int64Counter
	RowsSkipped    metric.Int64Counter
}

func SetupTelemetry(cfg config.TelemetryConfig, logger *slog.Logger) (*Telemetry, error) {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
	)

	t := &Telemetry{
		Tracer:   tracenoop.NewTracerProvider().Tracer(instrumentationName),
		Meter:    metricnoop.NewMeterProvider().Meter(instrumentationName),
		registry: prometheus.NewRegistry(),
	}

	if cfg.EnableTracing && cfg.TraceExporter != "none" {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
		if err != nil {
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}

		t.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		)
		t.Tracer = t.tracerProvider.Tracer(instrumentationName)

		otel.SetTracerProvider(t.tracerProvider)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	}

	if cfg.EnableMetrics {
		exporter, err := otelprom.New(otelprom.WithRegisterer(t.registry))
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}

		t.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		t.Meter = t.meterProvider.Meter(instrumentationName)
	}

	metrics, err := NewMetrics(t.Meter)
	if err != nil {
		return nil, fmt.Errorf("create instruments: %w", err)
	}
	t.Metrics = metrics

	logger.Info("telemetry initialized",
		"service", cfg.ServiceName,
		"tracing_enabled", t.tracerProvider != nil,
		"metrics_enabled", t.meterProvider != nil,
		"sample_ratio", cfg.SampleRatio,
	)

	return t, nil
}

// NewNoopTelemetry records nothing. Tests and tools use it.
func NewNoopTelemetry() *Telemetry {
	meter := metricnoop.NewMeterProvider().Meter(instrumentationName)
	metrics, _ := NewMetrics(meter)
	return &Telemetry{
		Tracer:   tracenoop.NewTracerProvider().Tracer(instrumentationName),
		Meter:    meter,
		Metrics:  metrics,
		registry: prometheus.NewRegistry(),
	}
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var m Metrics
	var err error

	if m.HTTPRequests, err = meter.Int64Counter(
		"http_requests",
		metric.WithDescription("HTTP requests served"),
	); err != nil {
		return nil, err
	}
	if m.HTTPDuration, err = meter.Float64Histogram(
		"http_request_duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.Renders, err = meter.Int64Counter(
		"dashboard_renders",
		metric.WithDescription("Dashboard views built, by mode and outcome"),
	); err != nil {
		return nil, err
	}
	if m.RenderDuration, err = meter.Float64Histogram(
		"dashboard_render_duration",
		metric.WithDescription("Time spent building a dashboard view"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.RowsLoaded, err = meter.Int64Counter(
		"dataset_rows_loaded",
		metric.WithDescription("Transaction rows loaded from the dataset file"),
	); err != nil {
		return nil, err
	}
	if m.RowsSkipped, err = meter.Int64Counter(
		"dataset_rows_skipped",
		metric.WithDescription("Dataset lines skipped for unparsable numbers"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

// Handler serves the Prometheus exposition of the recorded metrics.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes pending spans and metrics.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.tracerProvider != nil {
		errs = append(errs, t.tracerProvider.Shutdown(ctx))
	}
	if t.meterProvider != nil {
		errs = append(errs, t.meterProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
