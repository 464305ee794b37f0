package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/osse101/mobilesync/internal/domain"
	"github.com/osse101/mobilesync/internal/event"
	"github.com/osse101/mobilesync/internal/logger"
)

type bucketKey struct {
	tenantID string
	start    time.Time
}

type bucket struct {
	batches     int64
	items       int64
	synced      int64
	failed      int64
	conflicts   int64
	durationsMs []float64
}

// Aggregator rolls batch outcomes into hourly per-tenant buckets.
// Completed buckets are written once by Flush; there is no live query path.
type Aggregator struct {
	store     Store
	publisher event.Publisher

	mu      sync.Mutex
	buckets map[bucketKey]*bucket
	written map[bucketKey]struct{}
}

// NewAggregator creates an Aggregator. publisher may be nil.
func NewAggregator(store Store, publisher event.Publisher) *Aggregator {
	return &Aggregator{
		store:     store,
		publisher: publisher,
		buckets:   make(map[bucketKey]*bucket),
		written:   make(map[bucketKey]struct{}),
	}
}

// Register subscribes the aggregator to batch outcomes
func (a *Aggregator) Register(bus event.Bus) {
	bus.Subscribe(event.BatchProcessed, a.HandleBatchProcessed)
}

// HandleBatchProcessed folds one sync.batch_processed event into its bucket
func (a *Aggregator) HandleBatchProcessed(ctx context.Context, evt event.Event) error {
	payload, err := event.DecodePayload[event.BatchProcessedPayloadV1](evt.Payload)
	if err != nil {
		logger.FromContext(ctx).Warn(LogMsgDecodeFailed, "error", err)
		return fmt.Errorf(ErrMsgDecodePayload, err)
	}
	a.Record(ctx, payload)
	return nil
}

// Record adds a batch to the bucket containing its ProcessedAt
func (a *Aggregator) Record(ctx context.Context, p event.BatchProcessedPayloadV1) {
	if p.TenantID == "" {
		return
	}
	key := bucketKey{tenantID: p.TenantID, start: BucketStart(p.ProcessedAt)}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, done := a.written[key]; done {
		logger.FromContext(ctx).Debug(LogMsgLateBatchDiscarded, "tenant_id", p.TenantID, "bucket", key.start)
		return
	}
	b, ok := a.buckets[key]
	if !ok {
		b = &bucket{}
		a.buckets[key] = b
	}
	b.batches++
	b.items += int64(p.Items)
	b.synced += int64(p.SyncedItems)
	b.failed += int64(p.FailedItems)
	b.conflicts += int64(p.Conflicts)
	b.durationsMs = append(b.durationsMs, float64(p.DurationMs))
}

// Flush writes every bucket that ended at or before now. Buckets whose
// write fails are kept for the next flush.
func (a *Aggregator) Flush(ctx context.Context, now time.Time) (int, error) {
	log := logger.FromContext(ctx)

	a.mu.Lock()
	due := make(map[bucketKey]*bucket)
	for k, b := range a.buckets {
		if !k.start.Add(BucketSize).After(now) {
			due[k] = b
			delete(a.buckets, k)
		}
	}
	a.mu.Unlock()

	keys := make([]bucketKey, 0, len(due))
	for k := range due {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].start.Equal(keys[j].start) {
			return keys[i].tenantID < keys[j].tenantID
		}
		return keys[i].start.Before(keys[j].start)
	})

	var errs []error
	written := 0
	for _, k := range keys {
		snap := due[k].snapshot(k, now)
		created, err := a.store.WriteSnapshot(ctx, snap)
		if err != nil {
			log.Error(LogMsgSnapshotFailed, "tenant_id", k.tenantID, "bucket", k.start, "error", err)
			a.restore(k, due[k])
			errs = append(errs, fmt.Errorf(ErrMsgWriteSnapshot, k.tenantID, k.start.Format(time.RFC3339), err))
			continue
		}

		a.mu.Lock()
		a.written[k] = struct{}{}
		a.mu.Unlock()

		if !created {
			log.Warn(LogMsgSnapshotExists, "tenant_id", k.tenantID, "bucket", k.start)
			continue
		}
		written++
		log.Info(LogMsgSnapshotWritten, "tenant_id", k.tenantID, "bucket", k.start, "batches", snap.Batches)
		if a.publisher != nil {
			a.publisher.PublishWithRetry(ctx, event.NewSnapshotWrittenEvent(snap))
		}
	}
	a.forgetBefore(now.Add(-2 * BucketSize))
	return written, errors.Join(errs...)
}

// restore merges a bucket that failed to write back into the live set
func (a *Aggregator) restore(k bucketKey, b *bucket) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cur, ok := a.buckets[k]
	if !ok {
		a.buckets[k] = b
		return
	}
	cur.batches += b.batches
	cur.items += b.items
	cur.synced += b.synced
	cur.failed += b.failed
	cur.conflicts += b.conflicts
	cur.durationsMs = append(cur.durationsMs, b.durationsMs...)
}

// forgetBefore bounds the written set; far-late batches are dropped by the store instead
func (a *Aggregator) forgetBefore(cutoff time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for k := range a.written {
		if k.start.Before(cutoff) {
			delete(a.written, k)
		}
	}
}

// Pending returns the number of buckets not yet flushed
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buckets)
}

// Snapshots returns stored snapshots for a tenant since the given time
func (a *Aggregator) Snapshots(ctx context.Context, tenantID string, since time.Time) ([]domain.AnalyticsSnapshot, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingField, ErrMsgTenantMissing)
	}
	snaps, err := a.store.ListSnapshots(ctx, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf(ErrMsgListSnapshots, tenantID, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err))
	}
	return snaps, nil
}

func (b *bucket) snapshot(k bucketKey, now time.Time) domain.AnalyticsSnapshot {
	sorted := append([]float64(nil), b.durationsMs...)
	sort.Float64s(sorted)

	snap := domain.AnalyticsSnapshot{
		TenantID:      k.tenantID,
		BucketStart:   k.start,
		Batches:       b.batches,
		Items:         b.items,
		SyncedItems:   b.synced,
		FailedItems:   b.failed,
		Conflicts:     b.conflicts,
		AvgDurationMs: round2(mean(sorted)),
		P50DurationMs: Percentile(sorted, P50),
		P95DurationMs: Percentile(sorted, P95),
		P99DurationMs: Percentile(sorted, P99),
		CreatedAt:     now,
	}
	if b.items > 0 {
		snap.SuccessRatePct = round2(float64(b.synced) / float64(b.items) * 100)
		snap.ConflictRatePct = round2(float64(b.conflicts) / float64(b.items) * 100)
	}
	return snap
}

// BucketStart truncates t to its UTC hour
func BucketStart(t time.Time) time.Time {
	return t.UTC().Truncate(BucketSize)
}

// Percentile returns the nearest-rank percentile of an ascending slice
func Percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(float64(p) / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
