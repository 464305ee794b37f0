package conflict

import (
	"context"
	"time"

	"github.com/osse101/mobilesync/internal/domain"
)

// EntityStore owns entity versions. It is the only component that writes them.
type EntityStore interface {
	// Get returns (nil, nil) when the entity does not exist
	Get(ctx context.Context, ref domain.EntityRef) (*domain.Entity, error)

	// CompareAndSwap writes fields only if the stored version still equals
	// expectedVersion (0 means the entity must not exist yet) and returns the
	// new version, always expectedVersion+1. A moved version yields
	// domain.ErrVersionMismatch.
	CompareAndSwap(ctx context.Context, ref domain.EntityRef, expectedVersion int64, fields map[string]any, lastModified time.Time) (int64, error)
}

// Filter narrows a ConflictLog listing
type Filter struct {
	TenantID string
	DeviceID string
	Status   domain.ConflictStatus
	Limit    int
}

// Log is the append-only ConflictResolutionLog
type Log interface {
	Append(ctx context.Context, rec domain.ConflictRecord) error
	// Get returns domain.ErrConflictNotFound for unknown ids
	Get(ctx context.Context, id string) (*domain.ConflictRecord, error)
	// MarkResolved transitions a pending row to resolved.
	// Rows that are not pending yield domain.ErrConflictAlreadyResolved.
	MarkResolved(ctx context.Context, id string, resolution domain.Resolution, winner domain.Side, resolvedAt time.Time) error
	// Settle moves an applying row to its final status.
	// Rows that are not applying yield domain.ErrConflictAlreadyResolved.
	Settle(ctx context.Context, id string, status domain.ConflictStatus) error
	List(ctx context.Context, filter Filter) ([]domain.ConflictRecord, error)
}

// PolicySource resolves the effective policy for an entity domain
type PolicySource interface {
	GetPolicy(ctx context.Context, tenantID, domainName string) domain.ConflictPolicy
}

// Notifier tells operators about conflicts when a policy asks for it
type Notifier interface {
	NotifyConflict(ctx context.Context, rec domain.ConflictRecord) error
}
