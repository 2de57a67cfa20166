// Package jobs holds the concrete scheduled jobs.
package jobs

import (
	"context"
	"errors"

	"github.com/wonny/temaweb/internal/refresh"
	"github.com/wonny/temaweb/pkg/logger"
)

// SnapshotIngestionJob triggers the daily snapshot refresh after the market
// close.
// ⭐ SSOT: 스냅샷 수집 스케줄은 이 Job에서만
type SnapshotIngestionJob struct {
	orchestrator *refresh.Orchestrator
	logger       *logger.Logger
}

// NewSnapshotIngestionJob creates the daily ingestion job.
func NewSnapshotIngestionJob(o *refresh.Orchestrator, log *logger.Logger) *SnapshotIngestionJob {
	return &SnapshotIngestionJob{
		orchestrator: o,
		logger:       log,
	}
}

// Name returns the job name
func (j *SnapshotIngestionJob) Name() string {
	return "snapshot_ingestion"
}

// Schedule returns the cron schedule: weekdays 16:10 KST, 장 마감 후
// 데이터가 안정된 뒤.
func (j *SnapshotIngestionJob) Schedule() string {
	return "0 10 16 * * 1-5"
}

// Run triggers the refresh. A run already in flight is a skip, not a
// failure; retrying would just collide again.
func (j *SnapshotIngestionJob) Run(ctx context.Context) error {
	id, err := j.orchestrator.Trigger(ctx)
	if err != nil {
		if errors.Is(err, refresh.ErrAlreadyRunning) {
			j.logger.Info("Refresh already in progress, skipping scheduled run")
			return nil
		}
		return err
	}
	j.logger.WithField("refresh_id", id).Info("Scheduled refresh triggered")
	return nil
}
