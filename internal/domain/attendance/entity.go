package attendance

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
)

type StatusCode string

const (
	StatusPresent StatusCode = "present"
	StatusAbsent  StatusCode = "absent"
	StatusOff     StatusCode = "off"
	StatusLeave   StatusCode = "leave"
	StatusSick    StatusCode = "sick"
	StatusPermit  StatusCode = "permit"
	StatusHoliday StatusCode = "holiday"
)

var StatusValues = []string{
	string(StatusPresent),
	string(StatusAbsent),
	string(StatusOff),
	string(StatusLeave),
	string(StatusSick),
	string(StatusPermit),
	string(StatusHoliday),
}

// NormalizeStatus canonicalizes an imported status code. Unknown codes are kept lower-cased so
// the legacy vocabulary survives; empty defaults to present.
func NormalizeStatus(code string) StatusCode {
	c := strings.ToLower(strings.TrimSpace(code))
	if c == "" {
		return StatusPresent
	}
	return StatusCode(c)
}

type Provenance string

const (
	ProvenanceRawLog Provenance = "raw_log"
	ProvenanceLegacy Provenance = "legacy_aggregate"
	ProvenanceManual Provenance = "manual"
)

// Record is the canonical daily attendance, one per (EmployeeID, Date).
type Record struct {
	ID           string
	EmployeeID   string
	EmployeeKey  string
	Date         time.Time
	ShiftCode    string
	PeriodID     *string
	StandardIn   *punch.ClockTime
	StandardOut  *punch.ClockTime
	ActualIn     *punch.ClockTime
	ActualOut    *punch.ClockTime
	LateMinutes  int
	EarlyMinutes int
	Status       StatusCode
	Provenance   Provenance
	OverrideRule *string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// DTO
	EmployeeName *string
}

// SameDerived reports whether two records carry identical reconciled content.
func (r Record) SameDerived(o Record) bool {
	return r.EmployeeID == o.EmployeeID &&
		r.EmployeeKey == o.EmployeeKey &&
		r.Date.Equal(o.Date) &&
		r.ShiftCode == o.ShiftCode &&
		equalStr(r.PeriodID, o.PeriodID) &&
		equalClock(r.StandardIn, o.StandardIn) &&
		equalClock(r.StandardOut, o.StandardOut) &&
		equalClock(r.ActualIn, o.ActualIn) &&
		equalClock(r.ActualOut, o.ActualOut) &&
		r.LateMinutes == o.LateMinutes &&
		r.EarlyMinutes == o.EarlyMinutes &&
		r.Status == o.Status &&
		r.Provenance == o.Provenance &&
		equalStr(r.OverrideRule, o.OverrideRule)
}

func equalClock(a, b *punch.ClockTime) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalStr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
