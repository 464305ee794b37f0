package idempotency

import (
	"context"
	"time"

	"github.com/osse101/mobilesync/internal/logger"
)

// CleanupJob purges expired idempotency records
type CleanupJob struct {
	service Service
}

// NewCleanupJob creates a new cleanup job
func NewCleanupJob(service Service) *CleanupJob {
	return &CleanupJob{service: service}
}

// Process executes the cleanup job
func (j *CleanupJob) Process(ctx context.Context) error {
	log := logger.FromContext(ctx)
	log.Info(LogMsgCleanupJobStarting)

	start := time.Now()
	count, err := j.service.CleanupExpired(ctx)
	duration := time.Since(start)

	if err != nil {
		log.Error(LogMsgCleanupJobFailed, "error", err, "duration", duration)
		return err
	}

	log.Info(LogMsgCleanupJobCompleted, "deletedCount", count, "duration", duration)
	return nil
}
