package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"retail-dashboard/internal/aggregate"
	"retail-dashboard/internal/dataset"
	"retail-dashboard/internal/models"
	"retail-dashboard/internal/observability"
)

var ErrNotLoaded = errors.New("dataset not loaded")

// Analytics owns the loaded dataset and builds dashboard views from it.
// The dataset is swapped atomically, so renders never take a lock.
type Analytics struct {
	data      atomic.Pointer[dataset.Dataset]
	settings  aggregate.Settings
	renders   singleflight.Group
	telemetry *observability.Telemetry
	logger    *slog.Logger

	rendersServed atomic.Int64
	rendersShared atomic.Int64
}

type Option func(*Analytics)

func WithSettings(s aggregate.Settings) Option {
	return func(a *Analytics) {
		a.settings = s
	}
}

func WithTelemetry(t *observability.Telemetry) Option {
	return func(a *Analytics) {
		if t != nil {
			a.telemetry = t
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Analytics) {
		if l != nil {
			a.logger = l
		}
	}
}

func NewAnalytics(opts ...Option) *Analytics {
	a := &Analytics{
		settings:  aggregate.DefaultSettings(),
		telemetry: observability.NewNoopTelemetry(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Load reads the dataset file and makes it current.
func (a *Analytics) Load(ctx context.Context, path string, opts ...dataset.Option) error {
	ctx, span := a.telemetry.Tracer.Start(ctx, "dataset.load",
		trace.WithAttributes(attribute.String("dataset.path", path)))
	defer span.End()

	opts = append([]dataset.Option{dataset.WithLogger(a.logger)}, opts...)
	ds, err := dataset.Load(ctx, path, opts...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return fmt.Errorf("load dataset: %w", err)
	}

	span.SetAttributes(
		attribute.Int("dataset.rows", ds.Len()),
		attribute.Int("dataset.skipped", ds.SkippedRows()),
	)
	a.telemetry.Metrics.RowsLoaded.Add(ctx, int64(ds.Len()))
	a.telemetry.Metrics.RowsSkipped.Add(ctx, int64(ds.SkippedRows()))

	a.data.Store(ds)
	return nil
}

// SetData installs already parsed rows.
func (a *Analytics) SetData(rows []models.Transaction) {
	a.data.Store(dataset.New(rows))
}

func (a *Analytics) Dataset() *dataset.Dataset {
	return a.data.Load()
}

func (a *Analytics) Ready() bool {
	return a.data.Load() != nil
}

func (a *Analytics) Settings() aggregate.Settings {
	return a.settings
}

// Options lists what the controls can offer.
func (a *Analytics) Options() (models.Options, error) {
	ds := a.data.Load()
	if ds == nil {
		return models.Options{}, ErrNotLoaded
	}

	opts := models.Options{
		Countries: ds.Countries(),
		Products:  ds.Products(),
		Rows:      ds.Len(),
	}
	if minDate, maxDate, ok := ds.DateBounds(); ok {
		opts.MinDate = minDate.Format(time.DateOnly)
		opts.MaxDate = maxDate.Format(time.DateOnly)
	}
	return opts, nil
}

// ResolveControls fills missing dates with the dataset bounds.
func (a *Analytics) ResolveControls(c models.Controls) models.Controls {
	ds := a.data.Load()
	if ds == nil {
		return c
	}
	minDate, maxDate, ok := ds.DateBounds()
	if !ok {
		return c
	}
	if c.Start.IsZero() {
		c.Start = minDate
	}
	if c.End.IsZero() {
		c.End = maxDate
	}
	return c
}

// Render builds the view for c. Concurrent calls with identical controls
// share one computation.
func (a *Analytics) Render(ctx context.Context, c models.Controls) (models.View, error) {
	ds := a.data.Load()
	if ds == nil {
		return models.View{}, ErrNotLoaded
	}
	c = a.ResolveControls(c)

	ctx, span := a.telemetry.Tracer.Start(ctx, "dashboard.render",
		trace.WithAttributes(
			attribute.String("dashboard.mode", string(c.Mode)),
			attribute.String("dashboard.entity", c.Entity()),
		))
	defer span.End()

	start := time.Now()
	var owner bool
	result, err, _ := a.renders.Do(c.Key(), func() (any, error) {
		owner = true
		return aggregate.BuildView(ctx, ds.Rows(), c, a.settings)
	})
	joined := !owner

	// The caller that ran the shared render may have gone away; its
	// cancellation is not ours.
	if err != nil && joined && isCancellation(err) && ctx.Err() == nil {
		result, err = aggregate.BuildView(ctx, ds.Rows(), c, a.settings)
		joined = false
	}

	outcome := "ok"
	switch {
	case err == nil:
	case isCancellation(err):
		outcome = "cancelled"
	default:
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
	}

	attrs := metric.WithAttributes(
		attribute.String("mode", string(c.Mode)),
		attribute.String("outcome", outcome),
	)
	a.telemetry.Metrics.Renders.Add(ctx, 1, attrs)
	a.telemetry.Metrics.RenderDuration.Record(ctx, time.Since(start).Seconds(), attrs)

	if err != nil {
		return models.View{}, err
	}

	a.rendersServed.Add(1)
	if joined {
		a.rendersShared.Add(1)
	}
	span.SetAttributes(attribute.Bool("dashboard.shared", joined))

	view, _ := result.(models.View)
	return view, nil
}

// Top runs a single ranking over the rows selected by c.
func (a *Analytics) Top(ctx context.Context, c models.Controls, q aggregate.Query) ([]models.RankedEntry, error) {
	ds := a.data.Load()
	if ds == nil {
		return nil, ErrNotLoaded
	}
	c = a.ResolveControls(c)

	if err := aggregate.ValidateControls(c); err != nil {
		return nil, err
	}
	if err := aggregate.ValidateQuery(q); err != nil {
		return nil, err
	}

	subset := aggregate.Select(ds.Rows(), c)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return aggregate.TopN(subset, q), nil
}

func (a *Analytics) Stats() map[string]any {
	stats := map[string]any{
		"loaded":         false,
		"renders_served": a.rendersServed.Load(),
		"renders_shared": a.rendersShared.Load(),
	}

	ds := a.data.Load()
	if ds == nil {
		return stats
	}

	stats["loaded"] = true
	stats["source"] = ds.Source()
	stats["record_count"] = ds.Len()
	stats["skipped_rows"] = ds.SkippedRows()
	stats["countries"] = len(ds.Countries())
	stats["products"] = len(ds.Products())
	stats["loaded_at"] = ds.LoadedAt()
	if minDate, maxDate, ok := ds.DateBounds(); ok {
		stats["min_date"] = minDate.Format(time.DateOnly)
		stats["max_date"] = maxDate.Format(time.DateOnly)
	}
	return stats
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
