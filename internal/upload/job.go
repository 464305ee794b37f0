package upload

import (
	"context"
	"time"

	"github.com/osse101/mobilesync/internal/logger"
)

// SweepJob expires stale sessions on a schedule
type SweepJob struct {
	manager *Manager
}

// NewSweepJob creates a new sweep job
func NewSweepJob(manager *Manager) *SweepJob {
	return &SweepJob{manager: manager}
}

// Process executes the sweep
func (j *SweepJob) Process(ctx context.Context) error {
	log := logger.FromContext(ctx)

	start := time.Now()
	count, err := j.manager.SweepExpired(ctx)
	if err != nil {
		log.Error(LogMsgSweepFailed, "error", err, "duration", time.Since(start))
		return err
	}

	log.Info(LogMsgSweepComplete, "expired", count, "duration", time.Since(start))
	return nil
}
