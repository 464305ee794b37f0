package idempotency

import (
	"context"
	"encoding/json"
	"time"

	"github.com/osse101/mobilesync/internal/domain"
)

// Store persists idempotency records.
type Store interface {
	// Reserve atomically inserts a reserved placeholder for key unless an
	// unexpired record already exists. Expired records are replaced in the
	// same operation. When reserved is false, rec is the existing record.
	Reserve(ctx context.Context, key, fingerprint string, now time.Time, reservationTTL time.Duration) (rec *domain.IdempotencyRecord, reserved bool, err error)

	// Commit stores the outcome snapshot and extends the record to expiresAt.
	Commit(ctx context.Context, key string, snapshot json.RawMessage, expiresAt time.Time) error

	// Release deletes a reserved placeholder. Committed records are left alone.
	Release(ctx context.Context, key string) error

	// DeleteExpired removes every record whose expires_at is before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
