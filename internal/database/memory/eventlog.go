package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/osse101/mobilesync/internal/eventlog"
)

// EventLog is an in-memory eventlog.Repository
type EventLog struct {
	mu     sync.Mutex
	nextID int64
	events []eventlog.Event
	now    func() time.Time
}

// NewEventLog creates an empty event log
func NewEventLog() *EventLog {
	return &EventLog{now: time.Now}
}

func (l *EventLog) LogEvent(_ context.Context, evt eventlog.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	evt.ID = l.nextID
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = l.now()
	}
	l.events = append(l.events, evt)
	return nil
}

func (l *EventLog) GetEvents(_ context.Context, f eventlog.EventFilter) ([]eventlog.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]eventlog.Event, 0)
	for _, e := range l.events {
		if !matches(e, f) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (l *EventLog) CleanupOldEvents(_ context.Context, retentionDays int) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().AddDate(0, 0, -retentionDays)
	kept := l.events[:0]
	var removed int64
	for _, e := range l.events {
		if e.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	l.events = kept
	return removed, nil
}

func matches(e eventlog.Event, f eventlog.EventFilter) bool {
	if f.TenantID != nil && (e.TenantID == nil || *e.TenantID != *f.TenantID) {
		return false
	}
	if f.DeviceID != nil && (e.DeviceID == nil || *e.DeviceID != *f.DeviceID) {
		return false
	}
	if f.EventType != nil && e.EventType != *f.EventType {
		return false
	}
	if f.Since != nil && e.CreatedAt.Before(*f.Since) {
		return false
	}
	if f.Until != nil && !e.CreatedAt.Before(*f.Until) {
		return false
	}
	return true
}
