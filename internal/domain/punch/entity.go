package punch

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// ParseDirection accepts the terminal flags (I/O, 0/1) as well as IN/OUT.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "IN", "I", "0", "CHECK_IN":
		return DirectionIn, true
	case "OUT", "O", "1", "CHECK_OUT":
		return DirectionOut, true
	}
	return "", false
}

type Source string

const (
	SourceTerminal Source = "terminal"
	SourceMobile   Source = "mobile"
)

// Action is the next thing the gateway expects an employee to do today.
type Action string

const (
	ActionCheckIn  Action = "CHECK_IN"
	ActionCheckOut Action = "CHECK_OUT"
)

func (a Action) Direction() Direction {
	if a == ActionCheckOut {
		return DirectionOut
	}
	return DirectionIn
}

type State string

const (
	StateNoLogToday State = "NO_LOG_TODAY"
	StateLoggedIn   State = "LOGGED_IN"
	StateLoggedOut  State = "LOGGED_OUT"
)

// NextAction derives the daily state and expected action from the most recent event of the day.
func NextAction(latest *Event) (State, Action) {
	if latest == nil {
		return StateNoLogToday, ActionCheckIn
	}
	if latest.Direction == DirectionIn {
		return StateLoggedIn, ActionCheckOut
	}
	return StateLoggedOut, ActionCheckIn
}

// ClockTime is a time of day at minute resolution, stored as minutes since midnight.
type ClockTime int

// ParseClockTime accepts "HH.mm", "HH:mm" and "HH:mm:ss"; seconds are dropped.
func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	sep := "."
	if strings.Contains(s, ":") {
		sep = ":"
	}
	parts := strings.Split(s, sep)
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in clock time %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid minute in clock time %q", s)
	}
	return ClockTime(h*60 + m), nil
}

// ParseClockTimePtr returns nil for nil or blank input.
func ParseClockTimePtr(s *string) (*ClockTime, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	c, err := ParseClockTime(*s)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func ClockTimeOf(t time.Time) ClockTime {
	return ClockTime(t.Hour()*60 + t.Minute())
}

func (c ClockTime) Minutes() int {
	return int(c)
}

// String renders the terminal format "HH.mm".
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d.%02d", int(c)/60, int(c)%60)
}

// Clock renders "HH:mm" for API responses.
func (c ClockTime) Clock() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c ClockTime) Ptr() *ClockTime {
	return &c
}

// DayOf truncates t to its calendar date in t's own location, returned as UTC midnight.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Event is one physical tap. Events are append-only; a repeated tap with the same natural key is the same event.
type Event struct {
	ID               string
	EmployeeID       string
	EmployeeKey      string
	Date             time.Time
	Time             ClockTime
	Direction        Direction
	Source           Source
	Latitude         *float64
	Longitude        *float64
	DistanceMeters   *float64
	ReportedDistance *float64
	PhotoURL         *string
	CreatedAt        time.Time
}

// Key is the natural uniqueness key shared by the batch ingestor and the gateway.
type Key struct {
	EmployeeKey string
	Date        string
	Time        string
	Direction   Direction
}

func NewKey(employeeKey string, date time.Time, t ClockTime, d Direction) Key {
	return Key{
		EmployeeKey: strings.TrimSpace(employeeKey),
		Date:        DayOf(date).Format("2006-01-02"),
		Time:        t.String(),
		Direction:   Direction(strings.ToUpper(strings.TrimSpace(string(d)))),
	}
}

func (e Event) Key() Key {
	return NewKey(e.EmployeeKey, e.Date, e.Time, e.Direction)
}
