package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/osse101/mobilesync/internal/conflict"
	"github.com/osse101/mobilesync/internal/domain"
)

// ConflictLog is an in-memory conflict.Log
type ConflictLog struct {
	mu      sync.RWMutex
	records map[string]domain.ConflictRecord
}

// NewConflictLog creates an empty log
func NewConflictLog() *ConflictLog {
	return &ConflictLog{records: make(map[string]domain.ConflictRecord)}
}

func (l *ConflictLog) Append(_ context.Context, rec domain.ConflictRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[rec.ID] = rec
	return nil
}

func (l *ConflictLog) Get(_ context.Context, id string) (*domain.ConflictRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[id]
	if !ok {
		return nil, domain.ErrConflictNotFound
	}
	return &rec, nil
}

func (l *ConflictLog) MarkResolved(_ context.Context, id string, resolution domain.Resolution, winner domain.Side, resolvedAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[id]
	if !ok {
		return domain.ErrConflictNotFound
	}
	if rec.Status != domain.ConflictStatusPending {
		return domain.ErrConflictAlreadyResolved
	}
	rec.Status = domain.ConflictStatusResolved
	rec.Resolution = resolution
	rec.WinningSide = winner
	rec.ResolvedAt = &resolvedAt
	l.records[id] = rec
	return nil
}

func (l *ConflictLog) Settle(_ context.Context, id string, status domain.ConflictStatus) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[id]
	if !ok {
		return domain.ErrConflictNotFound
	}
	if rec.Status != domain.ConflictStatusApplying {
		return domain.ErrConflictAlreadyResolved
	}
	rec.Status = status
	l.records[id] = rec
	return nil
}

// List returns matching rows newest first
func (l *ConflictLog) List(_ context.Context, filter conflict.Filter) ([]domain.ConflictRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []domain.ConflictRecord
	for _, rec := range l.records {
		if filter.TenantID != "" && rec.TenantID != filter.TenantID {
			continue
		}
		if filter.DeviceID != "" && rec.DeviceID != filter.DeviceID {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
