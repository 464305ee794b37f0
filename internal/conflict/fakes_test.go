package conflict

import (
	"context"
	"sync"
	"time"

	"github.com/osse101/mobilesync/internal/domain"
	"github.com/osse101/mobilesync/internal/event"
)

type fakeEntities struct {
	mu       sync.Mutex
	entities map[string]domain.Entity
	writes   int
	getErr   error
	casErr   error
	// bumpOnce simulates a concurrent writer moving the version once
	bumpOnce bool
}

func newFakeEntities() *fakeEntities {
	return &fakeEntities{entities: make(map[string]domain.Entity)}
}

func (f *fakeEntities) put(ref domain.EntityRef, version int64, modified time.Time, fields map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entities[ref.Key()] = domain.Entity{Ref: ref, Version: version, LastModified: modified, Fields: fields}
}

func (f *fakeEntities) version(ref domain.EntityRef) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entities[ref.Key()].Version
}

func (f *fakeEntities) Get(_ context.Context, ref domain.EntityRef) (*domain.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	e, ok := f.entities[ref.Key()]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (f *fakeEntities) CompareAndSwap(_ context.Context, ref domain.EntityRef, expected int64, fields map[string]any, modified time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.casErr != nil {
		return 0, f.casErr
	}
	cur := f.entities[ref.Key()]
	if f.bumpOnce {
		f.bumpOnce = false
		cur.Ref = ref
		cur.Version++
		f.entities[ref.Key()] = cur
	}
	if cur.Version != expected {
		return 0, domain.ErrVersionMismatch
	}
	f.writes++
	f.entities[ref.Key()] = domain.Entity{Ref: ref, Version: expected + 1, LastModified: modified, Fields: fields}
	return expected + 1, nil
}

type fakeLog struct {
	mu        sync.Mutex
	records   []domain.ConflictRecord
	appendErr error
	settleErr error
}

func (l *fakeLog) Append(_ context.Context, rec domain.ConflictRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.appendErr != nil {
		return l.appendErr
	}
	l.records = append(l.records, rec)
	return nil
}

func (l *fakeLog) Get(_ context.Context, id string) (*domain.ConflictRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.records {
		if l.records[i].ID == id {
			rec := l.records[i]
			return &rec, nil
		}
	}
	return nil, domain.ErrConflictNotFound
}

func (l *fakeLog) MarkResolved(_ context.Context, id string, res domain.Resolution, winner domain.Side, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.records {
		if l.records[i].ID != id {
			continue
		}
		if l.records[i].Status != domain.ConflictStatusPending {
			return domain.ErrConflictAlreadyResolved
		}
		l.records[i].Status = domain.ConflictStatusResolved
		l.records[i].Resolution = res
		l.records[i].WinningSide = winner
		l.records[i].ResolvedAt = &at
		return nil
	}
	return domain.ErrConflictNotFound
}

func (l *fakeLog) Settle(_ context.Context, id string, status domain.ConflictStatus) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.settleErr != nil {
		return l.settleErr
	}
	for i := range l.records {
		if l.records[i].ID != id {
			continue
		}
		if l.records[i].Status != domain.ConflictStatusApplying {
			return domain.ErrConflictAlreadyResolved
		}
		l.records[i].Status = status
		return nil
	}
	return domain.ErrConflictNotFound
}

func (l *fakeLog) List(_ context.Context, filter Filter) ([]domain.ConflictRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.ConflictRecord
	for _, r := range l.records {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (l *fakeLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

type staticPolicies struct {
	policy domain.ConflictPolicy
}

func (s staticPolicies) GetPolicy(_ context.Context, tenantID, domainName string) domain.ConflictPolicy {
	p := s.policy
	p.TenantID, p.Domain = tenantID, domainName
	return p
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *recordingPublisher) PublishWithRetry(_ context.Context, evt event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.Type, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}
