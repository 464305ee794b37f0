package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/osse101/mobilesync/internal/domain"
)

type snapshotKey struct {
	tenantID string
	bucket   int64
}

// AnalyticsStore is an in-memory analytics.Store
type AnalyticsStore struct {
	mu    sync.RWMutex
	snaps map[snapshotKey]domain.AnalyticsSnapshot
}

// NewAnalyticsStore creates an empty store
func NewAnalyticsStore() *AnalyticsStore {
	return &AnalyticsStore{snaps: make(map[snapshotKey]domain.AnalyticsSnapshot)}
}

func (s *AnalyticsStore) WriteSnapshot(_ context.Context, snap domain.AnalyticsSnapshot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := snapshotKey{tenantID: snap.TenantID, bucket: snap.BucketStart.Unix()}
	if _, ok := s.snaps[k]; ok {
		return false, nil
	}
	s.snaps[k] = snap
	return true, nil
}

func (s *AnalyticsStore) ListSnapshots(_ context.Context, tenantID string, since time.Time) ([]domain.AnalyticsSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.AnalyticsSnapshot{}
	for k, snap := range s.snaps {
		if k.tenantID == tenantID && !snap.BucketStart.Before(since) {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BucketStart.Before(out[j].BucketStart) })
	return out, nil
}
