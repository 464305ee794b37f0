package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/osse101/mobilesync/internal/domain"
)

// IdempotencyStore is a PostgreSQL idempotency.Store
type IdempotencyStore struct {
	db *pgxpool.Pool
}

// NewIdempotencyStore creates a new PostgreSQL idempotency store
func NewIdempotencyStore(db *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

// Reserve claims key unless a live record holds it. An expired record is
// overwritten in the same statement so two callers can never both win.
func (s *IdempotencyStore) Reserve(ctx context.Context, key, fingerprint string, now time.Time, reservationTTL time.Duration) (*domain.IdempotencyRecord, bool, error) {
	const claim = `
		INSERT INTO idempotency_records (key, fingerprint, state, response_snapshot, created_at, expires_at)
		VALUES ($1, $2, 'reserved', NULL, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET fingerprint = EXCLUDED.fingerprint,
		    state = 'reserved',
		    response_snapshot = NULL,
		    created_at = EXCLUDED.created_at,
		    expires_at = EXCLUDED.expires_at
		WHERE idempotency_records.expires_at <= $3
		RETURNING key
	`
	const existing = `
		SELECT key, fingerprint, state, response_snapshot, created_at, expires_at
		FROM idempotency_records
		WHERE key = $1
	`

	// A concurrent DeleteExpired can remove the row between the two
	// statements, so the claim is retried once.
	for attempt := 0; attempt < 2; attempt++ {
		var claimed string
		err := s.db.QueryRow(ctx, claim, key, fingerprint, now, now.Add(reservationTTL)).Scan(&claimed)
		if err == nil {
			return nil, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, false, fmt.Errorf(ErrMsgReserveIdempotency, err)
		}

		var rec domain.IdempotencyRecord
		var snapshot []byte
		err = s.db.QueryRow(ctx, existing, key).Scan(
			&rec.Key, &rec.Fingerprint, &rec.State, &snapshot, &rec.CreatedAt, &rec.ExpiresAt,
		)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf(ErrMsgReserveIdempotency, err)
		}
		if len(snapshot) > 0 {
			rec.ResponseSnapshot = json.RawMessage(snapshot)
		}
		return &rec, false, nil
	}
	return nil, false, fmt.Errorf(ErrMsgReserveIdempotency, domain.ErrStoreUnavailable)
}

func (s *IdempotencyStore) Commit(ctx context.Context, key string, snapshot json.RawMessage, expiresAt time.Time) error {
	query := `
		UPDATE idempotency_records
		SET state = 'committed', response_snapshot = $2, expires_at = $3
		WHERE key = $1
	`
	tag, err := s.db.Exec(ctx, query, key, []byte(snapshot), expiresAt)
	if err != nil {
		return fmt.Errorf(ErrMsgCommitIdempotency, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Release drops a reservation. Committed records are left alone.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	query := `DELETE FROM idempotency_records WHERE key = $1 AND state = 'reserved'`
	if _, err := s.db.Exec(ctx, query, key); err != nil {
		return fmt.Errorf(ErrMsgReleaseIdempotency, err)
	}
	return nil
}

func (s *IdempotencyStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM idempotency_records WHERE expires_at <= $1`
	tag, err := s.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf(ErrMsgDeleteIdempotency, err)
	}
	return tag.RowsAffected(), nil
}
