package reconciliation

import (
	"context"
	"time"
)

// SourceRepository reads the external time-clock system. Implementations return the raw driver
// error; callers wrap it in ConnectivityError.
type SourceRepository interface {
	RawPunchesSince(ctx context.Context, cutoff time.Time) ([]RawPunchRow, error)
	LegacySummariesSince(ctx context.Context, cutoff time.Time) ([]LegacySummaryRow, error)
}
