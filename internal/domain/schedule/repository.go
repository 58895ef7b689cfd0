package schedule

import (
	"context"
	"time"
)

// ReferenceRepository reads schedule reference data owned by another system.
type ReferenceRepository interface {
	GetShiftType(ctx context.Context, code string) (ShiftType, error)
	GetPayPeriod(ctx context.Context, id string) (PayPeriod, error)

	// StandardFor returns nil when the shift has no standard times on that date.
	StandardFor(ctx context.Context, shiftCode string, date time.Time) (*Standard, error)
}

type SiteRepository interface {
	GetByID(ctx context.Context, id string) (Site, error)
}
