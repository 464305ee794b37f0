package domain

import (
	"encoding/json"
	"time"
)

// IdempotencyState distinguishes placeholders from committed outcomes.
type IdempotencyState string

const (
	IdempotencyReserved  IdempotencyState = "reserved"
	IdempotencyCommitted IdempotencyState = "committed"
)

// IdempotencyRecord maps a request fingerprint to a stored outcome.
type IdempotencyRecord struct {
	Key              string           `json:"key" db:"key"`
	Fingerprint      string           `json:"fingerprint" db:"fingerprint"`
	State            IdempotencyState `json:"state" db:"state"`
	ResponseSnapshot json.RawMessage  `json:"response_snapshot,omitempty" db:"response_snapshot"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	ExpiresAt        time.Time        `json:"expires_at" db:"expires_at"`
}

// Expired reports whether the record is past its TTL at now.
func (r IdempotencyRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
