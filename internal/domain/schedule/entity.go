package schedule

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
)

// ShiftType is a schedule code referenced by attendance rows, e.g. "N" for the generic workday.
type ShiftType struct {
	Code         string
	Name         string
	ClockIn      *punch.ClockTime
	ClockOut     *punch.ClockTime
	IsWorkingDay bool
}

// Standard is the scheduled in/out for a shift code on a date.
type Standard struct {
	ShiftCode string
	Date      time.Time
	ClockIn   *punch.ClockTime
	ClockOut  *punch.ClockTime
}

type PayPeriod struct {
	ID        string
	StartDate time.Time
	EndDate   time.Time
}

// Contains reports whether date falls inside the period, inclusive on both ends.
func (p PayPeriod) Contains(date time.Time) bool {
	return !date.Before(p.StartDate) && !date.After(p.EndDate)
}

// Site is a registered work location with a geofence.
type Site struct {
	ID           string
	Name         string
	Latitude     float64
	Longitude    float64
	RadiusMeters int
}
