package reconciliation

import (
	"context"
	"time"
)

// Runner is the batch trigger surface shared by cron, HTTP and the CLI.
// Both entrypoints are safe to re-trigger.
type Runner interface {
	SyncRecent(ctx context.Context, days int) (RunSummary, error)
	FullReconcile(ctx context.Context, cutoff time.Time) (RunSummary, error)
}
