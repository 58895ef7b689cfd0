package reconciliation

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/reconciliation"
)

type ResolveInput struct {
	Date          time.Time
	ShiftCode     string
	NominalStatus string
	StandardIn    *punch.ClockTime
	StandardOut   *punch.ClockTime
	ActualIn      *punch.ClockTime
	ActualOut     *punch.ClockTime
	HasRawPunches bool
}

type Resolution struct {
	ActualIn     *punch.ClockTime
	ActualOut    *punch.ClockTime
	LateMinutes  int
	EarlyMinutes int
	Status       attendance.StatusCode
	OverrideRule *string
}

// Resolve derives late/early minutes and the canonical status. It is a pure function of its inputs.
func Resolve(in ResolveInput, policy reconciliation.Policy) Resolution {
	hasActual := in.ActualIn != nil || in.ActualOut != nil

	if rule := policy.MatchOverride(in.Date, in.ShiftCode, hasActual, in.HasRawPunches); rule != nil {
		name := rule.Name
		return Resolution{
			Status:       attendance.NormalizeStatus(rule.Status),
			OverrideRule: &name,
		}
	}

	late, early := LateEarly(in.StandardIn, in.StandardOut, in.ActualIn, in.ActualOut)
	return Resolution{
		ActualIn:     in.ActualIn,
		ActualOut:    in.ActualOut,
		LateMinutes:  late,
		EarlyMinutes: early,
		Status:       attendance.NormalizeStatus(in.NominalStatus),
	}
}

// LateEarly computes the clamped deltas. A missing side yields 0 for that side.
func LateEarly(standardIn, standardOut, actualIn, actualOut *punch.ClockTime) (late, early int) {
	if actualIn != nil && standardIn != nil {
		late = max(0, actualIn.Minutes()-standardIn.Minutes())
	}
	if actualOut != nil && standardOut != nil {
		early = max(0, standardOut.Minutes()-actualOut.Minutes())
	}
	return late, early
}
