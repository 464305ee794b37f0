package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/osse101/mobilesync/internal/domain"
	"github.com/osse101/mobilesync/internal/logger"
)

// Status is the result of CheckOrReserve
type Status int

const (
	// StatusReserved means the caller owns the key and must Commit or Release it.
	StatusReserved Status = iota
	// StatusReplay means an outcome is already stored and must be returned verbatim.
	StatusReplay
)

// Result is returned by CheckOrReserve
type Result struct {
	Status   Status
	Snapshot json.RawMessage
}

// Config holds the record lifetimes
type Config struct {
	TTL            time.Duration
	ReservationTTL time.Duration
}

// Service guarantees at-most-once effect for a request fingerprint.
type Service interface {
	CheckOrReserve(ctx context.Context, key, fingerprint string) (Result, error)
	Commit(ctx context.Context, key string, snapshot json.RawMessage) error
	Release(ctx context.Context, key string) error
	CleanupExpired(ctx context.Context) (int64, error)
}

type service struct {
	store  Store
	config Config
	now    func() time.Time
}

// NewService creates an idempotency service over store
func NewService(store Store, config Config) Service {
	if config.TTL <= 0 {
		config.TTL = domain.DefaultIdempotencyTTL
	}
	if config.ReservationTTL <= 0 {
		config.ReservationTTL = domain.DefaultReservationTTL
	}
	return &service{store: store, config: config, now: time.Now}
}

// CheckOrReserve reserves key for the caller or returns the stored outcome.
// A stored record with a different fingerprint is an idempotency conflict,
// and an unexpired placeholder means another request is still running.
func (s *service) CheckOrReserve(ctx context.Context, key, fingerprint string) (Result, error) {
	log := logger.FromContext(ctx)

	rec, reserved, err := s.store.Reserve(ctx, key, fingerprint, s.now(), s.config.ReservationTTL)
	if err != nil {
		return Result{}, fmt.Errorf(ErrMsgReserveFailed, domain.ErrStoreUnavailable, err)
	}
	if reserved {
		log.Debug(LogMsgReserved, "key", key)
		return Result{Status: StatusReserved}, nil
	}

	if rec.Fingerprint != fingerprint {
		log.Warn(LogMsgFingerprintReused, "key", key)
		return Result{}, fmt.Errorf("%w: key %s", domain.ErrIdempotencyConflict, key)
	}

	if rec.State != domain.IdempotencyCommitted {
		log.Info(LogMsgInProgress, "key", key, "expires_at", rec.ExpiresAt)
		return Result{}, fmt.Errorf("%w: key %s", domain.ErrRequestInProgress, key)
	}

	log.Info(LogMsgReplay, "key", key)
	return Result{Status: StatusReplay, Snapshot: rec.ResponseSnapshot}, nil
}

// Commit fills the reservation with the outcome and extends it to the full TTL
func (s *service) Commit(ctx context.Context, key string, snapshot json.RawMessage) error {
	if err := s.store.Commit(ctx, key, snapshot, s.now().Add(s.config.TTL)); err != nil {
		return fmt.Errorf(ErrMsgCommitFailed, domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Release makes key immediately retryable after an aborted request
func (s *service) Release(ctx context.Context, key string) error {
	if err := s.store.Release(ctx, key); err != nil {
		return fmt.Errorf(ErrMsgReleaseFailed, domain.ErrStoreUnavailable, err)
	}
	logger.FromContext(ctx).Debug(LogMsgReleased, "key", key)
	return nil
}

// CleanupExpired purges committed records past their TTL and stale placeholders
func (s *service) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf(ErrMsgCleanupFailed, domain.ErrStoreUnavailable, err)
	}
	return n, nil
}

// ScopedKey namespaces a caller-supplied key by tenant and device so two
// devices generating the same key never collide.
func ScopedKey(tenantID, deviceID, key string) string {
	return tenantID + ":" + deviceID + ":" + key
}

// Fingerprint returns the hex SHA-256 of the canonical JSON of v.
// encoding/json sorts map keys, so equal payloads hash equally.
func Fingerprint(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
