package reconciliation

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
)

const (
	JobSyncRawLogs        = "sync_raw_logs"
	JobFullReconciliation = "full_reconciliation"

	DefaultErrorSampleSize = 20
	GenericWorkdayCode     = "N"
)

// Policy configures how raw punches and legacy summaries become canonical records.
type Policy struct {
	DedupGrainMinutes int            `yaml:"dedup_grain_minutes"`
	SourcePriority    []string       `yaml:"source_priority"`
	OverrideRules     []OverrideRule `yaml:"override_rules"`
}

// OverrideRule corrects a known legacy data defect: days tagged with a workday code that are
// really rest days. A rule matches on weekday or explicit date, and on shift code.
type OverrideRule struct {
	Name             string   `yaml:"name"`
	Weekdays         []string `yaml:"weekdays"`
	Dates            []string `yaml:"dates"`
	ShiftCodes       []string `yaml:"shift_codes"`
	RequireNoPunches bool     `yaml:"require_no_punches"`
	Status           string   `yaml:"status"`
}

func DefaultPolicy() Policy {
	return Policy{
		DedupGrainMinutes: 1,
		SourcePriority:    []string{string(attendance.ProvenanceRawLog), string(attendance.ProvenanceLegacy)},
		OverrideRules: []OverrideRule{
			{
				Name:             "sunday-generic-workday",
				Weekdays:         []string{"sunday"},
				ShiftCodes:       []string{GenericWorkdayCode},
				RequireNoPunches: true,
				Status:           string(attendance.StatusOff),
			},
		},
	}
}

func (p *Policy) Validate() error {
	if p.DedupGrainMinutes <= 0 {
		p.DedupGrainMinutes = 1
	}
	if p.DedupGrainMinutes > 60 {
		return fmt.Errorf("%w: dedup_grain_minutes must not exceed 60", ErrInvalidPolicy)
	}

	if len(p.SourcePriority) == 0 {
		p.SourcePriority = []string{string(attendance.ProvenanceRawLog), string(attendance.ProvenanceLegacy)}
	}
	for _, s := range p.SourcePriority {
		if s != string(attendance.ProvenanceRawLog) && s != string(attendance.ProvenanceLegacy) {
			return fmt.Errorf("%w: unknown source %q in source_priority", ErrInvalidPolicy, s)
		}
	}

	for i := range p.OverrideRules {
		r := &p.OverrideRules[i]
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("%w: override rule #%d has no name", ErrInvalidPolicy, i+1)
		}
		if len(r.Weekdays) == 0 && len(r.Dates) == 0 {
			return fmt.Errorf("%w: override rule %q needs weekdays or dates", ErrInvalidPolicy, r.Name)
		}
		for _, w := range r.Weekdays {
			if _, ok := parseWeekday(w); !ok {
				return fmt.Errorf("%w: override rule %q has unknown weekday %q", ErrInvalidPolicy, r.Name, w)
			}
		}
		for _, d := range r.Dates {
			if _, err := time.Parse("2006-01-02", d); err != nil {
				return fmt.Errorf("%w: override rule %q has invalid date %q", ErrInvalidPolicy, r.Name, d)
			}
		}
		if r.Status == "" {
			r.Status = string(attendance.StatusOff)
		}
	}

	return nil
}

// PreferRaw reports whether raw punches outrank the legacy aggregate.
func (p Policy) PreferRaw() bool {
	if len(p.SourcePriority) == 0 {
		return true
	}
	return p.SourcePriority[0] == string(attendance.ProvenanceRawLog)
}

// MatchOverride returns the first rule that applies to the day, or nil.
func (p Policy) MatchOverride(date time.Time, shiftCode string, hasActual, hasRawPunches bool) *OverrideRule {
	for i := range p.OverrideRules {
		if p.OverrideRules[i].matches(date, shiftCode, hasActual, hasRawPunches) {
			return &p.OverrideRules[i]
		}
	}
	return nil
}

func (r OverrideRule) matches(date time.Time, shiftCode string, hasActual, hasRawPunches bool) bool {
	if !r.matchesDay(date) || !r.matchesShift(shiftCode) {
		return false
	}
	if r.RequireNoPunches {
		// no raw evidence: legacy-provided times are not trusted
		return !hasRawPunches
	}
	return !hasActual
}

func (r OverrideRule) matchesDay(date time.Time) bool {
	for _, w := range r.Weekdays {
		if wd, ok := parseWeekday(w); ok && wd == date.Weekday() {
			return true
		}
	}
	day := date.Format("2006-01-02")
	for _, d := range r.Dates {
		if d == day {
			return true
		}
	}
	return false
}

func (r OverrideRule) matchesShift(code string) bool {
	if len(r.ShiftCodes) == 0 {
		return true
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range r.ShiftCodes {
		if strings.ToUpper(strings.TrimSpace(c)) == code {
			return true
		}
	}
	return false
}

func parseWeekday(s string) (time.Weekday, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sunday", "sun":
		return time.Sunday, true
	case "monday", "mon":
		return time.Monday, true
	case "tuesday", "tue":
		return time.Tuesday, true
	case "wednesday", "wed":
		return time.Wednesday, true
	case "thursday", "thu":
		return time.Thursday, true
	case "friday", "fri":
		return time.Friday, true
	case "saturday", "sat":
		return time.Saturday, true
	}
	return 0, false
}

// RawPunchRow is one tap as stored by the external time-clock system.
type RawPunchRow struct {
	EmployeeKey string
	Date        time.Time
	Time        string // HH.mm
	Flag        string
}

// LegacySummaryRow is one pre-aggregated day from the legacy attendance system.
type LegacySummaryRow struct {
	EmployeeKey string
	Date        time.Time
	ShiftCode   string
	PeriodID    *string
	Status      string
	StandardIn  *string
	StandardOut *string
	ActualIn    *string
	ActualOut   *string
}

// RowError is a row-scoped failure. It never aborts a run.
type RowError struct {
	Stage       string `json:"stage"`
	Kind        string `json:"kind"`
	EmployeeKey string `json:"employee_key"`
	Date        string `json:"date"`
	Message     string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s %s/%s: %s", e.Stage, e.EmployeeKey, e.Date, e.Message)
}

// ErrorLog counts every row error and keeps a bounded sample.
type ErrorLog struct {
	Count  int        `json:"count"`
	Sample []RowError `json:"sample"`
	limit  int
}

func NewErrorLog(limit int) *ErrorLog {
	if limit <= 0 {
		limit = DefaultErrorSampleSize
	}
	return &ErrorLog{limit: limit, Sample: []RowError{}}
}

func (l *ErrorLog) Add(e RowError) {
	l.Count++
	if len(l.Sample) < l.limit {
		l.Sample = append(l.Sample, e)
	}
}

type IngestResult struct {
	Total      int      `json:"total"`
	Imported   int      `json:"imported"`
	Duplicates int      `json:"duplicates"`
	Skipped    int      `json:"skipped"`
	Errored    int      `json:"errored"`
	Seen       []string `json:"-"`
}

type ReconcileResult struct {
	Pairs     int      `json:"pairs"`
	Inserted  int      `json:"inserted"`
	Updated   int      `json:"updated"`
	Unchanged int      `json:"unchanged"`
	Overrides int      `json:"overrides"`
	Errored   int      `json:"errored"`
	Observed  []string `json:"-"`
}

type RunSummary struct {
	Job        string           `json:"job"`
	Cutoff     string           `json:"cutoff"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Ingest     IngestResult     `json:"ingest"`
	Reconcile  *ReconcileResult `json:"reconcile,omitempty"`
	Activated  int64            `json:"activated"`
	Errors     *ErrorLog        `json:"errors"`
}
