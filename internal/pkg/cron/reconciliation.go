package cron

import (
	"context"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/reconciliation"
)

type ReconciliationJobs struct {
	runner       reconciliation.Runner
	syncDays     int
	lookbackDays int
	syncInterval time.Duration
	fullInterval time.Duration
	location     *time.Location
	now          func() time.Time
}

func NewReconciliationJobs(
	runner reconciliation.Runner,
	syncDays, lookbackDays int,
	syncInterval, fullInterval time.Duration,
	location *time.Location,
) *ReconciliationJobs {
	return &ReconciliationJobs{
		runner:       runner,
		syncDays:     syncDays,
		lookbackDays: lookbackDays,
		syncInterval: syncInterval,
		fullInterval: fullInterval,
		location:     location,
		now:          time.Now,
	}
}

func (j *ReconciliationJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob(Job{
		Name:       reconciliation.JobSyncRawLogs,
		Interval:   j.syncInterval,
		RunOnStart: true,
		Fn:         j.SyncRawLogs,
	})
	scheduler.AddJob(Job{
		Name:     reconciliation.JobFullReconciliation,
		Interval: j.fullInterval,
		Fn:       j.FullReconciliation,
	})
}

// SyncRawLogs mirrors recent terminal punches. Errors are logged by the scheduler.
func (j *ReconciliationJobs) SyncRawLogs(ctx context.Context) error {
	_, err := j.runner.SyncRecent(ctx, j.syncDays)
	return err
}

// FullReconciliation rebuilds canonical records over the lookback window.
func (j *ReconciliationJobs) FullReconciliation(ctx context.Context) error {
	now := j.now().In(j.location)
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -j.lookbackDays)
	_, err := j.runner.FullReconcile(ctx, cutoff)
	return err
}
