package attendance

import (
	"context"
	"time"
)

type UpsertOutcome string

const (
	UpsertInserted  UpsertOutcome = "inserted"
	UpsertUpdated   UpsertOutcome = "updated"
	UpsertUnchanged UpsertOutcome = "unchanged"
)

// Repository stores canonical records keyed by (EmployeeID, Date).
type Repository interface {
	// Upsert inserts the record or overwrites every derived field of the existing one.
	// A record whose content is unchanged is left untouched.
	Upsert(ctx context.Context, record Record) (Record, UpsertOutcome, error)

	// GetByEmployeeAndDate returns nil when no record exists.
	GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*Record, error)

	GetByID(ctx context.Context, id string) (Record, error)

	// Update persists a hand-edited record by ID.
	Update(ctx context.Context, record Record) error

	List(ctx context.Context, filter AttendanceFilter) ([]Record, int64, error)
}
