package notification

import (
	"context"
	"time"
)

type EventType string

const (
	EventTypeCheckIn  EventType = "attendance.check_in"
	EventTypeCheckOut EventType = "attendance.check_out"
)

// CheckInEvent is published after a check-in or check-out is persisted.
type CheckInEvent struct {
	Type           EventType `json:"type"`
	PunchID        string    `json:"punch_id"`
	EmployeeID     string    `json:"employee_id"`
	EmployeeKey    string    `json:"employee_key"`
	Date           string    `json:"date"`
	Time           string    `json:"time"`
	Direction      string    `json:"direction"`
	DistanceMeters *float64  `json:"distance_meters,omitempty"`
	InsideFence    *bool     `json:"inside_fence,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Publisher hands events to the notification collaborator. Delivery guarantees belong to
// the implementation; callers treat errors as log-only.
type Publisher interface {
	Publish(ctx context.Context, event CheckInEvent) error
	Close()
}
