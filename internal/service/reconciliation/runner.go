package reconciliation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/reconciliation"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/schedule"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/metrics"
)

type runner struct {
	ingestor  *Ingestor
	engine    *Engine
	activator *Activator
	employees employee.EmployeeRepository
	refs      schedule.ReferenceRepository

	sampleSize int
	location   *time.Location
	now        func() time.Time
	metrics    *metrics.Metrics
	group      singleflight.Group
}

type RunnerOption func(*runner)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *runner) {
		r.now = now
	}
}

func WithErrorSampleSize(n int) RunnerOption {
	return func(r *runner) {
		r.sampleSize = n
	}
}

func WithLocation(loc *time.Location) RunnerOption {
	return func(r *runner) {
		r.location = loc
	}
}

func NewRunner(
	ingestor *Ingestor,
	engine *Engine,
	activator *Activator,
	employees employee.EmployeeRepository,
	refs schedule.ReferenceRepository,
	m *metrics.Metrics,
	opts ...RunnerOption,
) reconciliation.Runner {
	r := &runner{
		ingestor:   ingestor,
		engine:     engine,
		activator:  activator,
		employees:  employees,
		refs:       refs,
		sampleSize: reconciliation.DefaultErrorSampleSize,
		location:   time.UTC,
		now:        time.Now,
		metrics:    m,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *runner) today() time.Time {
	return punch.DayOf(r.now().In(r.location))
}

// SyncRecent mirrors the last days of raw punches and activates employees seen punching.
func (r *runner) SyncRecent(ctx context.Context, days int) (reconciliation.RunSummary, error) {
	cutoff := r.today().AddDate(0, 0, -days)
	return r.do(ctx, reconciliation.JobSyncRawLogs, cutoff, func(ctx context.Context, cache *RunCache, s *reconciliation.RunSummary) error {
		ingest, err := r.ingestor.Ingest(ctx, cutoff, cache)
		s.Ingest = ingest
		if err != nil {
			return err
		}

		s.Activated, err = r.activator.Activate(ctx, ingest.Seen)
		return err
	})
}

// FullReconcile ingests, derives canonical records and activates employees with observed activity.
func (r *runner) FullReconcile(ctx context.Context, cutoff time.Time) (reconciliation.RunSummary, error) {
	cutoff = punch.DayOf(cutoff)
	if cutoff.After(r.today()) {
		return reconciliation.RunSummary{}, reconciliation.ErrInvalidCutoff
	}

	return r.do(ctx, reconciliation.JobFullReconciliation, cutoff, func(ctx context.Context, cache *RunCache, s *reconciliation.RunSummary) error {
		ingest, err := r.ingestor.Ingest(ctx, cutoff, cache)
		s.Ingest = ingest
		if err != nil {
			return err
		}

		rec, err := r.engine.Reconcile(ctx, cutoff, cache)
		s.Reconcile = &rec
		if err != nil {
			return err
		}

		s.Activated, err = r.activator.Activate(ctx, rec.Observed)
		return err
	})
}

type runFunc func(ctx context.Context, cache *RunCache, s *reconciliation.RunSummary) error

// do collapses identical concurrent triggers into one run and gives each run a fresh cache.
func (r *runner) do(ctx context.Context, job string, cutoff time.Time, fn runFunc) (reconciliation.RunSummary, error) {
	key := job + ":" + cutoff.Format("2006-01-02")

	v, err, shared := r.group.Do(key, func() (interface{}, error) {
		return r.run(ctx, job, cutoff, fn)
	})
	if shared {
		slog.Info("Reconciliation: joined in-flight run", "job", job, "cutoff", cutoff.Format("2006-01-02"))
	}

	summary, _ := v.(reconciliation.RunSummary)
	return summary, err
}

func (r *runner) run(ctx context.Context, job string, cutoff time.Time, fn runFunc) (reconciliation.RunSummary, error) {
	ctx, span := tracer.Start(ctx, "reconciliation."+job, trace.WithAttributes(
		attribute.String("job", job),
		attribute.String("cutoff", cutoff.Format("2006-01-02")),
	))
	defer span.End()

	start := r.now()
	defer r.metrics.ObserveRun(job, time.Now())

	cache := NewRunCache(r.employees, r.refs, r.sampleSize)
	summary := reconciliation.RunSummary{
		Job:       job,
		Cutoff:    cutoff.Format("2006-01-02"),
		StartedAt: start,
		Errors:    cache.Errors,
	}

	slog.Info("Reconciliation: run started", "job", job, "cutoff", summary.Cutoff)

	err := fn(ctx, cache, &summary)
	summary.FinishedAt = r.now()

	if err != nil {
		kind := "run_error"
		if reconciliation.IsConnectivity(err) {
			kind = "connectivity_error"
		}
		slog.Error("Reconciliation: run aborted", "kind", kind, "job", job, "cutoff", summary.Cutoff, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		return summary, fmt.Errorf("%s run aborted: %w", job, err)
	}

	attrs := []any{
		"job", job,
		"cutoff", summary.Cutoff,
		"ingested", summary.Ingest.Imported,
		"ingest_total", summary.Ingest.Total,
		"row_errors", summary.Errors.Count,
		"activated", summary.Activated,
		"duration", summary.FinishedAt.Sub(start).String(),
	}
	if summary.Reconcile != nil {
		attrs = append(attrs,
			"pairs", summary.Reconcile.Pairs,
			"inserted", summary.Reconcile.Inserted,
			"updated", summary.Reconcile.Updated,
			"overrides", summary.Reconcile.Overrides,
		)
	}
	slog.Info("Reconciliation: run finished", attrs...)
	span.SetAttributes(attribute.Int("row_errors", summary.Errors.Count))

	return summary, nil
}
