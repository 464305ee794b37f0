package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/osse101/mobilesync/internal/domain"
)

// HealthRepository is an in-memory health.Repository
type HealthRepository struct {
	mu   sync.Mutex
	rows map[string]domain.DeviceHealth
}

// NewHealthRepository creates an empty repository
func NewHealthRepository() *HealthRepository {
	return &HealthRepository{rows: make(map[string]domain.DeviceHealth)}
}

func healthKey(deviceID, userID string) string {
	return deviceID + "/" + userID
}

func (r *HealthRepository) Get(_ context.Context, deviceID, userID string) (*domain.DeviceHealth, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.rows[healthKey(deviceID, userID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &h, nil
}

func (r *HealthRepository) Update(_ context.Context, deviceID, userID string, fn func(*domain.DeviceHealth) error) (*domain.DeviceHealth, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.rows[healthKey(deviceID, userID)]
	if !ok {
		h = domain.DeviceHealth{DeviceID: deviceID, UserID: userID}
	}
	if err := fn(&h); err != nil {
		return nil, err
	}
	r.rows[healthKey(deviceID, userID)] = h
	return &h, nil
}

func (r *HealthRepository) ListByUser(_ context.Context, userID string) ([]domain.DeviceHealth, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.DeviceHealth
	for _, h := range r.rows {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}
