package gateway

import (
	"context"

	"github.com/osse101/mobilesync/internal/logger"
)

// OfflineSweepJob removes expired offline messages
type OfflineSweepJob struct {
	hub *Hub
}

// NewOfflineSweepJob creates a new sweep job
func NewOfflineSweepJob(hub *Hub) *OfflineSweepJob {
	return &OfflineSweepJob{hub: hub}
}

// Process executes the sweep job
func (j *OfflineSweepJob) Process(ctx context.Context) error {
	n := j.hub.SweepOffline(ctx)
	logger.FromContext(ctx).Debug(LogMsgOfflineSwept, "count", n, "pending", j.hub.offline.Len())
	return nil
}
