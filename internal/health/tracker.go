package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/osse101/mobilesync/internal/domain"
	"github.com/osse101/mobilesync/internal/logger"
	"github.com/osse101/mobilesync/internal/metrics"
)

// Outcome summarises one processed batch for a device
type Outcome struct {
	DeviceID    string
	UserID      string
	TenantID    string
	Duration    time.Duration
	HadConflict bool
	Failed      bool
	Metadata    domain.DeviceMetadata
}

// Config tunes the smoothing and latency target
type Config struct {
	Alpha     float64
	P95Target time.Duration
}

// Tracker maintains rolling per-device statistics
type Tracker struct {
	repo Repository
	cfg  Config
	now  func() time.Time
}

// NewTracker creates a Tracker, filling zero config values with defaults
func NewTracker(repo Repository, cfg Config) *Tracker {
	if cfg.Alpha <= 0 || cfg.Alpha > 1 {
		cfg.Alpha = DefaultAlpha
	}
	if cfg.P95Target <= 0 {
		cfg.P95Target = DefaultP95Target
	}
	return &Tracker{
		repo: repo,
		cfg:  cfg,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// RecordOutcome folds a batch outcome into the device's statistics.
// It never fails the caller; store errors are logged and dropped.
func (t *Tracker) RecordOutcome(ctx context.Context, o Outcome) {
	log := logger.FromContext(ctx)
	if o.DeviceID == "" {
		log.Warn(LogMsgRecordFailed, "error", ErrMsgDeviceIDRequired)
		return
	}

	h, err := t.repo.Update(ctx, o.DeviceID, o.UserID, func(h *domain.DeviceHealth) error {
		t.apply(h, o)
		return nil
	})
	if err != nil {
		log.Warn(LogMsgRecordFailed, "device_id", o.DeviceID, "user_id", o.UserID, "error", err)
		return
	}

	metrics.DeviceHealthScore.Observe(h.HealthScore)
	log.Debug(LogMsgRecorded,
		"device_id", o.DeviceID,
		"health_score", h.HealthScore,
		"avg_sync_duration_ms", h.AvgSyncDurationMs)
}

func (t *Tracker) apply(h *domain.DeviceHealth, o Outcome) {
	first := h.TotalSyncs == 0
	h.DeviceID = o.DeviceID
	h.UserID = o.UserID
	if o.TenantID != "" {
		h.TenantID = o.TenantID
	}

	h.TotalSyncs++
	if o.Failed {
		h.FailedSyncsCount++
	}
	if o.HadConflict {
		h.ConflictsEncountered++
	}

	sample := float64(o.Duration) / float64(time.Millisecond)
	h.AvgSyncDurationMs = EWMA(h.AvgSyncDurationMs, sample, t.cfg.Alpha, first)
	h.HealthScore = Score(h.FailureRatePct(), h.ConflictRatePct(), LatencyPenalty(h.AvgSyncDurationMs, t.cfg.P95Target))
	h.LastSyncAt = t.now()

	if o.Metadata.NetworkType != "" {
		h.NetworkType = o.Metadata.NetworkType
	}
	if o.Metadata.AppVersion != "" {
		h.AppVersion = o.Metadata.AppVersion
	}
	if o.Metadata.OSVersion != "" {
		h.OSVersion = o.Metadata.OSVersion
	}
}

// Get returns the statistics for one device
func (t *Tracker) Get(ctx context.Context, deviceID, userID string) (*domain.DeviceHealth, error) {
	h, err := t.repo.Get(ctx, deviceID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf(ErrMsgGetHealthFailed, err)
	}
	return h, nil
}

// List returns statistics for every device of a user
func (t *Tracker) List(ctx context.Context, userID string) ([]domain.DeviceHealth, error) {
	list, err := t.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf(ErrMsgListHealthFailed, err)
	}
	return list, nil
}

// SuggestedBackoff returns the retry delay for a device, or BaseBackoff when unknown
func (t *Tracker) SuggestedBackoff(ctx context.Context, deviceID, userID string) time.Duration {
	h, err := t.repo.Get(ctx, deviceID, userID)
	if err != nil || h == nil {
		return BaseBackoff
	}
	return Backoff(h.HealthScore)
}
