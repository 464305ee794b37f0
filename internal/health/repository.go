package health

import (
	"context"

	"github.com/osse101/mobilesync/internal/domain"
)

// Repository persists SyncDeviceHealth rows keyed by (device_id, user_id).
type Repository interface {
	// Get returns domain.ErrNotFound when the device has never synced
	Get(ctx context.Context, deviceID, userID string) (*domain.DeviceHealth, error)
	// Update runs fn against the current row (or a fresh one) and stores the
	// result atomically with respect to other updates of the same row.
	Update(ctx context.Context, deviceID, userID string, fn func(*domain.DeviceHealth) error) (*domain.DeviceHealth, error)
	ListByUser(ctx context.Context, userID string) ([]domain.DeviceHealth, error)
}
