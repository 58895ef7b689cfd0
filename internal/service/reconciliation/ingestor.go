package reconciliation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/reconciliation"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/metrics"
)

const stageIngest = "ingest"

// Ingestor mirrors raw terminal punches into the canonical punch store.
type Ingestor struct {
	source  reconciliation.SourceRepository
	punches punch.Repository
	metrics *metrics.Metrics
}

func NewIngestor(source reconciliation.SourceRepository, punches punch.Repository, m *metrics.Metrics) *Ingestor {
	return &Ingestor{source: source, punches: punches, metrics: m}
}

// Ingest pulls every raw punch dated on or after cutoff. Only a source read failure aborts;
// bad rows are recorded in cache.Errors and skipped.
func (i *Ingestor) Ingest(ctx context.Context, cutoff time.Time, cache *RunCache) (reconciliation.IngestResult, error) {
	ctx, span := tracer.Start(ctx, "reconciliation.Ingest",
		trace.WithAttributes(attribute.String("cutoff", cutoff.Format("2006-01-02"))))
	defer span.End()

	var result reconciliation.IngestResult

	rows, err := i.source.RawPunchesSince(ctx, cutoff)
	if err != nil {
		err = &reconciliation.ConnectivityError{Source: "time-clock raw punch log", Err: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, "source unreachable")
		return result, err
	}

	for _, row := range rows {
		result.Total++

		outcome, rowErr := i.ingestRow(ctx, row, cache)
		if rowErr != nil {
			result.Errored++
			cache.Errors.Add(*rowErr)
			slog.Warn("Reconciliation: ingest row rejected",
				"kind", rowErr.Kind,
				"employee_key", rowErr.EmployeeKey,
				"date", rowErr.Date,
				"error", rowErr.Message,
			)
			continue
		}

		switch outcome {
		case "imported":
			result.Imported++
		case "duplicate":
			result.Duplicates++
		case "skipped":
			result.Skipped++
		}
	}

	result.Seen = cache.Seen()

	i.metrics.AddRows(stageIngest, "imported", result.Imported)
	i.metrics.AddRows(stageIngest, "duplicate", result.Duplicates)
	i.metrics.AddRows(stageIngest, "skipped", result.Skipped)
	i.metrics.AddRows(stageIngest, "errored", result.Errored)

	span.SetAttributes(
		attribute.Int("rows.total", result.Total),
		attribute.Int("rows.imported", result.Imported),
		attribute.Int("rows.errored", result.Errored),
	)

	return result, nil
}

func (i *Ingestor) ingestRow(ctx context.Context, row reconciliation.RawPunchRow, cache *RunCache) (string, *reconciliation.RowError) {
	key := strings.TrimSpace(row.EmployeeKey)
	date := punch.DayOf(row.Date)
	rowErr := func(err error) *reconciliation.RowError {
		return &reconciliation.RowError{
			Stage:       stageIngest,
			Kind:        reconciliation.KindOf(err),
			EmployeeKey: key,
			Date:        date.Format("2006-01-02"),
			Message:     err.Error(),
		}
	}

	if key == "" {
		return "", rowErr(reconciliation.ErrMissingEmployee)
	}

	emp, err := cache.ResolveEmployee(ctx, key)
	if err != nil {
		return "", rowErr(err)
	}
	if emp == nil {
		// legacy logs reference employees that were never migrated
		slog.Debug("Reconciliation: unknown employee key skipped", "employee_key", key)
		return "skipped", nil
	}

	t, err := punch.ParseClockTime(row.Time)
	if err != nil {
		return "", rowErr(fmt.Errorf("%w: %v", reconciliation.ErrInvalidClockTime, err))
	}
	direction, ok := punch.ParseDirection(row.Flag)
	if !ok {
		return "", rowErr(fmt.Errorf("%w %q", reconciliation.ErrInvalidDirection, row.Flag))
	}

	_, created, err := i.punches.Save(ctx, punch.Event{
		EmployeeID:  emp.ID,
		EmployeeKey: key,
		Date:        date,
		Time:        t,
		Direction:   direction,
		Source:      punch.SourceTerminal,
	})
	if err != nil {
		return "", rowErr(err)
	}

	cache.MarkSeen(emp.ID)
	if created {
		return "imported", nil
	}
	return "duplicate", nil
}
