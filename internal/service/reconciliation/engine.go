package reconciliation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/reconciliation"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/metrics"
)

const stageReconcile = "reconcile"

// Engine derives canonical daily records from stored punches and the legacy summaries.
type Engine struct {
	source      reconciliation.SourceRepository
	punches     punch.Repository
	attendances attendance.Repository
	policy      reconciliation.Policy
	metrics     *metrics.Metrics
}

func NewEngine(
	source reconciliation.SourceRepository,
	punches punch.Repository,
	attendances attendance.Repository,
	policy reconciliation.Policy,
	m *metrics.Metrics,
) *Engine {
	return &Engine{
		source:      source,
		punches:     punches,
		attendances: attendances,
		policy:      policy,
		metrics:     m,
	}
}

// dayPair is everything known about one employee on one date.
type dayPair struct {
	key    string
	date   time.Time
	events []punch.Event
	legacy *reconciliation.LegacySummaryRow
}

type pairID struct {
	key  string
	date string
}

// Reconcile processes every (employee, date) with punches or a legacy summary since cutoff,
// one pair at a time. Each pair commits on its own.
func (e *Engine) Reconcile(ctx context.Context, cutoff time.Time, cache *RunCache) (reconciliation.ReconcileResult, error) {
	ctx, span := tracer.Start(ctx, "reconciliation.Reconcile",
		trace.WithAttributes(attribute.String("cutoff", cutoff.Format("2006-01-02"))))
	defer span.End()

	var result reconciliation.ReconcileResult

	// the two reads are independent; either failing aborts the run
	var (
		legacy []reconciliation.LegacySummaryRow
		events []punch.Event
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := e.source.LegacySummariesSince(gctx, cutoff)
		if err != nil {
			return &reconciliation.ConnectivityError{Source: "legacy attendance summary", Err: err}
		}
		legacy = rows
		return nil
	})
	g.Go(func() error {
		stored, err := e.punches.ListSince(gctx, cutoff)
		if err != nil {
			return fmt.Errorf("list punch events: %w", err)
		}
		events = stored
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return result, err
	}

	pairs, duplicates := e.collectPairs(events, legacy, cache)
	result.Pairs = len(pairs)
	result.Errored += duplicates

	for _, p := range pairs {
		outcome, overridden, rowErr := e.reconcilePair(ctx, p, cache)
		if rowErr != nil {
			result.Errored++
			cache.Errors.Add(*rowErr)
			slog.Warn("Reconciliation: row rejected",
				"kind", rowErr.Kind,
				"employee_key", rowErr.EmployeeKey,
				"date", rowErr.Date,
				"error", rowErr.Message,
			)
			continue
		}

		if overridden {
			result.Overrides++
		}
		switch outcome {
		case attendance.UpsertInserted:
			result.Inserted++
		case attendance.UpsertUpdated:
			result.Updated++
		case attendance.UpsertUnchanged:
			result.Unchanged++
		}
	}

	result.Observed = cache.Observed()

	e.metrics.AddRows(stageReconcile, "inserted", result.Inserted)
	e.metrics.AddRows(stageReconcile, "updated", result.Updated)
	e.metrics.AddRows(stageReconcile, "unchanged", result.Unchanged)
	e.metrics.AddRows(stageReconcile, "errored", result.Errored)

	span.SetAttributes(
		attribute.Int("pairs", result.Pairs),
		attribute.Int("pairs.errored", result.Errored),
		attribute.Int("pairs.overridden", result.Overrides),
	)

	return result, nil
}

func (e *Engine) collectPairs(events []punch.Event, legacy []reconciliation.LegacySummaryRow, cache *RunCache) ([]*dayPair, int) {
	duplicates := 0
	byID := make(map[pairID]*dayPair)
	get := func(key string, date time.Time) *dayPair {
		id := pairID{key: key, date: date.Format("2006-01-02")}
		p, ok := byID[id]
		if !ok {
			p = &dayPair{key: key, date: date}
			byID[id] = p
		}
		return p
	}

	for _, ev := range events {
		key := strings.TrimSpace(ev.EmployeeKey)
		p := get(key, punch.DayOf(ev.Date))
		p.events = append(p.events, ev)
	}

	for i := range legacy {
		row := legacy[i]
		key := strings.TrimSpace(row.EmployeeKey)
		date := punch.DayOf(row.Date)
		p := get(key, date)
		if p.legacy != nil {
			dup := reconciliation.RowError{
				Stage:       stageReconcile,
				Kind:        reconciliation.KindDuplicate,
				EmployeeKey: key,
				Date:        date.Format("2006-01-02"),
				Message:     "duplicate legacy summary ignored",
			}
			cache.Errors.Add(dup)
			slog.Warn("Reconciliation: row rejected",
				"kind", dup.Kind,
				"employee_key", dup.EmployeeKey,
				"date", dup.Date,
				"error", dup.Message,
			)
			duplicates++
			continue
		}
		p.legacy = &row
	}

	pairs := make([]*dayPair, 0, len(byID))
	for _, p := range byID {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if !pairs[i].date.Equal(pairs[j].date) {
			return pairs[i].date.Before(pairs[j].date)
		}
		return pairs[i].key < pairs[j].key
	})
	return pairs, duplicates
}

func (e *Engine) reconcilePair(ctx context.Context, p *dayPair, cache *RunCache) (attendance.UpsertOutcome, bool, *reconciliation.RowError) {
	rowErr := func(err error) *reconciliation.RowError {
		return &reconciliation.RowError{
			Stage:       stageReconcile,
			Kind:        reconciliation.KindOf(err),
			EmployeeKey: p.key,
			Date:        p.date.Format("2006-01-02"),
			Message:     err.Error(),
		}
	}

	// 1. validate references
	if p.key == "" {
		return "", false, rowErr(reconciliation.ErrMissingEmployee)
	}
	emp, err := cache.ResolveEmployee(ctx, p.key)
	if err != nil {
		return "", false, rowErr(err)
	}
	if emp == nil {
		return "", false, rowErr(fmt.Errorf("%w %q", reconciliation.ErrUnknownEmployee, p.key))
	}

	shiftCode := ""
	if p.legacy != nil {
		shiftCode = strings.ToUpper(strings.TrimSpace(p.legacy.ShiftCode))
	}
	if shiftCode == "" && emp.DefaultShift != nil {
		shiftCode = strings.ToUpper(strings.TrimSpace(*emp.DefaultShift))
	}
	if shiftCode == "" {
		return "", false, rowErr(fmt.Errorf("%w: no shift code for day", reconciliation.ErrUnknownShiftType))
	}
	if err := cache.CheckShift(ctx, shiftCode); err != nil {
		return "", false, rowErr(err)
	}

	var periodID *string
	if p.legacy != nil && p.legacy.PeriodID != nil && strings.TrimSpace(*p.legacy.PeriodID) != "" {
		id := strings.TrimSpace(*p.legacy.PeriodID)
		period, err := cache.PayPeriod(ctx, id)
		if err != nil {
			return "", false, rowErr(err)
		}
		if !period.Contains(p.date) {
			return "", false, rowErr(fmt.Errorf("%w: %s is outside period %q", reconciliation.ErrUnknownPeriod, p.date.Format("2006-01-02"), id))
		}
		periodID = &id
	}

	standardIn, standardOut, err := e.standardTimes(ctx, shiftCode, p, cache)
	if err != nil {
		return "", false, rowErr(err)
	}

	// 2. actual times: deduped raw punches, else the legacy aggregate
	raw := Dedup(SortEvents(p.events), e.policy.DedupGrainMinutes)
	useRaw := len(raw) > 0 && (p.legacy == nil || e.policy.PreferRaw())

	var actualIn, actualOut *punch.ClockTime
	provenance := attendance.ProvenanceLegacy
	if useRaw {
		actualIn, actualOut = actualFromPunches(raw)
		provenance = attendance.ProvenanceRawLog
	} else if p.legacy != nil {
		if actualIn, err = punch.ParseClockTimePtr(p.legacy.ActualIn); err != nil {
			return "", false, rowErr(fmt.Errorf("%w: actual in: %v", reconciliation.ErrInvalidClockTime, err))
		}
		if actualOut, err = punch.ParseClockTimePtr(p.legacy.ActualOut); err != nil {
			return "", false, rowErr(fmt.Errorf("%w: actual out: %v", reconciliation.ErrInvalidClockTime, err))
		}
	}

	nominal := ""
	if p.legacy != nil {
		nominal = p.legacy.Status
	}

	// 3-4. override policy and late/early
	res := Resolve(ResolveInput{
		Date:          p.date,
		ShiftCode:     shiftCode,
		NominalStatus: nominal,
		StandardIn:    standardIn,
		StandardOut:   standardOut,
		ActualIn:      actualIn,
		ActualOut:     actualOut,
		HasRawPunches: len(raw) > 0,
	}, e.policy)

	overridden := res.OverrideRule != nil
	if overridden {
		slog.Info("Reconciliation: data quality override applied",
			"kind", "data_quality_override",
			"override_rule", *res.OverrideRule,
			"employee_key", p.key,
			"date", p.date.Format("2006-01-02"),
			"shift_code", shiftCode,
			"legacy_had_times", actualIn != nil || actualOut != nil,
		)
		e.metrics.IncOverride(*res.OverrideRule)
	}

	// 5. full overwrite keyed by (employee, date)
	record := attendance.Record{
		EmployeeID:   emp.ID,
		EmployeeKey:  p.key,
		Date:         p.date,
		ShiftCode:    shiftCode,
		PeriodID:     periodID,
		StandardIn:   standardIn,
		StandardOut:  standardOut,
		ActualIn:     res.ActualIn,
		ActualOut:    res.ActualOut,
		LateMinutes:  res.LateMinutes,
		EarlyMinutes: res.EarlyMinutes,
		Status:       res.Status,
		Provenance:   provenance,
		OverrideRule: res.OverrideRule,
	}

	_, outcome, err := e.attendances.Upsert(ctx, record)
	if err != nil {
		return "", false, rowErr(err)
	}

	// 6. activity
	if res.ActualIn != nil || res.ActualOut != nil {
		cache.MarkObserved(emp.ID)
	}

	return outcome, overridden, nil
}

func (e *Engine) standardTimes(ctx context.Context, shiftCode string, p *dayPair, cache *RunCache) (*punch.ClockTime, *punch.ClockTime, error) {
	std, err := cache.Standard(ctx, shiftCode, p.date)
	if err != nil {
		return nil, nil, err
	}
	if std != nil {
		return std.ClockIn, std.ClockOut, nil
	}
	if p.legacy == nil {
		return nil, nil, nil
	}

	in, err := punch.ParseClockTimePtr(p.legacy.StandardIn)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: standard in: %v", reconciliation.ErrInvalidClockTime, err)
	}
	out, err := punch.ParseClockTimePtr(p.legacy.StandardOut)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: standard out: %v", reconciliation.ErrInvalidClockTime, err)
	}
	return in, out, nil
}

// actualFromPunches takes the first punch as actual in and the last as actual out.
// A lone punch fills the slot matching its direction.
func actualFromPunches(events []punch.Event) (*punch.ClockTime, *punch.ClockTime) {
	if len(events) == 0 {
		return nil, nil
	}
	if len(events) == 1 {
		t := events[0].Time
		if events[0].Direction == punch.DirectionOut {
			return nil, &t
		}
		return &t, nil
	}
	first, last := events[0].Time, events[len(events)-1].Time
	return &first, &last
}
