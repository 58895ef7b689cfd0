package punch

import (
	"context"
	"time"
)

// Repository is the punch event store written by both the batch ingestor and the check-in gateway.
// Every write is keyed by Event.Key().
type Repository interface {
	// Save inserts the event if its natural key is new, otherwise returns the stored event unchanged.
	// created reports whether a new row was inserted.
	Save(ctx context.Context, event Event) (saved Event, created bool, err error)

	// Create inserts strictly; an existing natural key yields ErrDuplicatePunch.
	Create(ctx context.Context, event Event) (Event, error)

	// LatestForDay returns nil when the employee has no event on date.
	LatestForDay(ctx context.Context, employeeKey string, date time.Time) (*Event, error)

	ListForDay(ctx context.Context, employeeKey string, date time.Time) ([]Event, error)

	// ListSince returns events with date >= cutoff ordered by employee key, date, time.
	ListSince(ctx context.Context, cutoff time.Time) ([]Event, error)
}
