package eventlog

import (
	"context"
	"time"

	"github.com/osse101/mobilesync/internal/logger"
)

// CleanupJob deletes sync events past the retention window.
// A non-positive retention keeps events forever.
type CleanupJob struct {
	service       Service
	retentionDays int
}

// NewCleanupJob creates a new cleanup job
func NewCleanupJob(service Service, retentionDays int) *CleanupJob {
	return &CleanupJob{
		service:       service,
		retentionDays: retentionDays,
	}
}

// Name labels the job in worker metrics
func (j *CleanupJob) Name() string { return CleanupJobName }

// Process deletes expired events and logs how many went
func (j *CleanupJob) Process(ctx context.Context) error {
	log := logger.FromContext(ctx)
	if j.retentionDays <= 0 {
		log.Debug(LogMsgCleanupJobDisabled)
		return nil
	}

	start := time.Now()
	count, err := j.service.CleanupOldEvents(ctx, j.retentionDays)
	duration := time.Since(start)
	if err != nil {
		log.Error(LogMsgCleanupJobFailed, LogFieldRetentionDays, j.retentionDays, LogFieldError, err, LogFieldDuration, duration)
		return err
	}

	log.Info(LogMsgCleanupJobCompleted,
		LogFieldRetentionDays, j.retentionDays,
		LogFieldDeletedCount, count,
		LogFieldDuration, duration)
	return nil
}
