package analytics

import (
	"context"
	"time"

	"github.com/osse101/mobilesync/internal/logger"
)

// FlushJob writes completed analytics buckets
type FlushJob struct {
	aggregator *Aggregator
	now        func() time.Time
}

// NewFlushJob creates a new flush job
func NewFlushJob(aggregator *Aggregator) *FlushJob {
	return &FlushJob{aggregator: aggregator, now: time.Now}
}

// Process executes the flush job
func (j *FlushJob) Process(ctx context.Context) error {
	log := logger.FromContext(ctx)
	log.Info(LogMsgFlushJobStarting)

	start := time.Now()
	count, err := j.aggregator.Flush(ctx, j.now())
	duration := time.Since(start)

	if err != nil {
		log.Error(LogMsgFlushJobFailed, "error", err, "duration", duration)
		return err
	}

	log.Info(LogMsgFlushJobCompleted, "writtenCount", count, "pending", j.aggregator.Pending(), "duration", duration)
	return nil
}
