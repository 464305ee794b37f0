package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/osse101/mobilesync/internal/conflict"
	"github.com/osse101/mobilesync/internal/domain"
	"github.com/osse101/mobilesync/internal/event"
	"github.com/osse101/mobilesync/internal/health"
	"github.com/osse101/mobilesync/internal/idempotency"
	"github.com/osse101/mobilesync/internal/logger"
	"github.com/osse101/mobilesync/internal/metrics"
)

// Validator checks the shape of one item and normalises its domain
type Validator interface {
	ValidateItem(ctx context.Context, item *domain.SyncItem) error
}

// Resolver reconciles one item against server state
type Resolver interface {
	Resolve(ctx context.Context, req conflict.Request) (conflict.Outcome, error)
}

// HealthRecorder receives one outcome per processed batch
type HealthRecorder interface {
	RecordOutcome(ctx context.Context, o health.Outcome)
}

// Config bounds batch processing
type Config struct {
	ItemTimeout   time.Duration
	BatchTimeout  time.Duration
	MaxBatchItems int
	Concurrency   int
}

// Result is a batch outcome plus the exact bytes stored for replay
type Result struct {
	Outcome  *domain.BatchOutcome
	Snapshot json.RawMessage
	Replayed bool
}

// Engine orchestrates batch processing
type Engine struct {
	idem      idempotency.Service
	validator Validator
	resolver  Resolver
	health    HealthRecorder
	publisher event.Publisher
	cfg       Config
	now       func() time.Time

	commitRetryDelay time.Duration
}

// New creates an Engine. health and publisher may be nil.
func New(idem idempotency.Service, validator Validator, resolver Resolver, healthRecorder HealthRecorder, publisher event.Publisher, cfg Config) *Engine {
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = domain.DefaultItemTimeout
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = domain.DefaultBatchTimeout
	}
	if cfg.MaxBatchItems <= 0 {
		cfg.MaxBatchItems = domain.DefaultMaxBatchItems
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Engine{
		idem:      idem,
		validator: validator,
		resolver:  resolver,
		health:    healthRecorder,
		publisher: publisher,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },

		commitRetryDelay: CommitRetryDelay,
	}
}

// itemResult is the per-item state collected while a batch runs
type itemResult struct {
	item    domain.SyncItem
	outcome conflict.Outcome
	err     error
}

// ProcessBatch runs one batch to completion. Cancelling ctx does not stop a
// reserved batch; its outcome is stored for replay. An error return means
// nothing was applied and the same request may be retried safely, except
// domain.ErrOutcomeUnrecorded, which reports applied items whose outcome
// could not be stored.
func (e *Engine) ProcessBatch(ctx context.Context, req domain.BatchRequest) (*Result, error) {
	if err := e.checkRequest(req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.BatchTimeout)
	defer cancel()
	log := logger.FromContext(ctx).With("device_id", req.DeviceID, "idempotency_key", req.IdempotencyKey)
	start := time.Now()

	fingerprint, err := idempotency.Fingerprint(req.Items)
	if err != nil {
		return nil, fmt.Errorf(ErrMsgFingerprint, err)
	}
	key := idempotency.ScopedKey(req.TenantID, req.DeviceID, req.IdempotencyKey)

	res, err := e.idem.CheckOrReserve(ctx, key, fingerprint)
	if err != nil {
		metrics.SyncBatchesTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}
	if res.Status == idempotency.StatusReplay {
		var outcome domain.BatchOutcome
		if err := json.Unmarshal(res.Snapshot, &outcome); err != nil {
			log.Error(LogMsgSnapshotDecodeFail, "error", err)
			return nil, fmt.Errorf(ErrMsgDecodeSnapshot, err)
		}
		log.Info(LogMsgBatchReplayed)
		metrics.IdempotencyReplays.Inc()
		metrics.SyncBatchesTotal.WithLabelValues(metrics.ResultReplay).Inc()
		return &Result{Outcome: &outcome, Snapshot: res.Snapshot, Replayed: true}, nil
	}

	results := e.runItems(ctx, req)

	// The batch deadline may have passed; recording what happened must not depend on it
	finishCtx, finishCancel := context.WithTimeout(context.WithoutCancel(ctx), FinishTimeout)
	defer finishCancel()

	if allDeferred(results) {
		e.release(finishCtx, key)
		log.Warn(LogMsgBatchAborted, "items", len(req.Items))
		metrics.SyncBatchesTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf(ErrMsgAllItemsDeferred, domain.ErrStoreUnavailable)
	}

	outcome := e.buildOutcome(req, results)
	outcome.ProcessedAt = e.now()
	outcome.DurationMs = time.Since(start).Milliseconds()

	snapshot, err := json.Marshal(outcome)
	if err != nil {
		e.release(finishCtx, key)
		return nil, fmt.Errorf(ErrMsgEncodeOutcome, err)
	}
	if err := e.commit(finishCtx, key, snapshot); err != nil {
		log.Error(LogMsgCommitFailed, "error", err, "synced", outcome.SyncedItems, "conflicts", len(outcome.Conflicts))
		metrics.SyncBatchesTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf(ErrMsgCommitFailed, domain.ErrOutcomeUnrecorded, err)
	}

	e.afterBatch(finishCtx, req, outcome, results, time.Since(start))
	log.Info(LogMsgBatchProcessed,
		"items", len(req.Items),
		"synced", outcome.SyncedItems,
		"failed", outcome.FailedItems,
		"conflicts", len(outcome.Conflicts),
		"duration_ms", outcome.DurationMs)
	return &Result{Outcome: outcome, Snapshot: snapshot}, nil
}

func (e *Engine) checkRequest(req domain.BatchRequest) error {
	switch {
	case req.TenantID == "":
		return fmt.Errorf(ErrMsgFieldRequired, domain.ErrMissingField, "tenant_id")
	case req.DeviceID == "":
		return fmt.Errorf(ErrMsgFieldRequired, domain.ErrMissingField, "device_id")
	case req.IdempotencyKey == "":
		return fmt.Errorf(ErrMsgFieldRequired, domain.ErrMissingField, "idempotency_key")
	case len(req.Items) == 0:
		return fmt.Errorf(ErrMsgEmptyBatch, domain.ErrInvalidPayload)
	case len(req.Items) > e.cfg.MaxBatchItems:
		return fmt.Errorf(ErrMsgTooManyItems, domain.ErrPayloadTooLarge, len(req.Items), e.cfg.MaxBatchItems)
	}
	return nil
}

// runItems validates every item, then resolves valid items grouped by
// entity. Groups run concurrently; items inside a group run in
// submission order.
func (e *Engine) runItems(ctx context.Context, req domain.BatchRequest) []itemResult {
	results := make([]itemResult, len(req.Items))
	items := make([]domain.SyncItem, len(req.Items))
	copy(items, req.Items)

	var groups [][]int
	index := make(map[string]int)
	for i := range items {
		results[i].item = items[i]
		if err := e.validator.ValidateItem(ctx, &items[i]); err != nil {
			results[i].err = err
			continue
		}
		results[i].item = items[i]
		k := items[i].Domain + "\x00" + items[i].MobileID
		g, ok := index[k]
		if !ok {
			g = len(groups)
			index[k] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}

	var eg errgroup.Group
	eg.SetLimit(e.cfg.Concurrency)
	for _, group := range groups {
		eg.Go(func() error {
			for _, i := range group {
				results[i] = e.resolveItem(ctx, req, items[i])
			}
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

func (e *Engine) resolveItem(ctx context.Context, req domain.BatchRequest, item domain.SyncItem) itemResult {
	if err := ctx.Err(); err != nil {
		return itemResult{item: item, err: fmt.Errorf(ErrMsgItemTimeout, domain.ErrTimeout, e.cfg.BatchTimeout)}
	}
	itemCtx, cancel := context.WithTimeout(ctx, e.cfg.ItemTimeout)
	defer cancel()

	out, err := e.resolver.Resolve(itemCtx, conflict.Request{
		Ref:             domain.EntityRef{TenantID: req.TenantID, Domain: item.Domain, MobileID: item.MobileID},
		DeviceID:        req.DeviceID,
		ClientVersion:   item.Version,
		Fields:          item.Fields,
		ClientTimestamp: item.ClientTimestamp,
	})
	if err != nil && errors.Is(itemCtx.Err(), context.DeadlineExceeded) {
		logger.FromContext(ctx).Warn(LogMsgItemTimedOut, "mobile_id", item.MobileID, "domain", item.Domain)
		return itemResult{item: item, err: fmt.Errorf(ErrMsgItemTimeout, domain.ErrTimeout, e.cfg.ItemTimeout)}
	}
	if err != nil {
		logger.FromContext(ctx).Warn(LogMsgItemFailed, "mobile_id", item.MobileID, "domain", item.Domain, "error", err)
	}
	return itemResult{item: item, outcome: out, err: err}
}

// allDeferred reports whether every item stopped on a transient error,
// in which case nothing was applied and the batch can be retried whole.
func allDeferred(results []itemResult) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if r.err == nil || !domain.IsRetryable(r.err) || domain.CodeOf(r.err) == domain.CodeTimeout {
			return false
		}
	}
	return true
}

func (e *Engine) buildOutcome(req domain.BatchRequest, results []itemResult) *domain.BatchOutcome {
	outcome := &domain.BatchOutcome{
		IdempotencyKey: req.IdempotencyKey,
		Conflicts:      []domain.ConflictInfo{},
		Errors:         []domain.ItemError{},
		Results:        make([]domain.ItemResult, len(results)),
	}

	for i, r := range results {
		item := r.item
		res := domain.ItemResult{Index: i, Domain: item.Domain, MobileID: item.MobileID}

		switch {
		case r.err != nil:
			outcome.FailedItems++
			res.Status = domain.ItemStatusFailed
			res.Code = domain.CodeOf(r.err)
			res.Message = r.err.Error()
			outcome.Errors = append(outcome.Errors, domain.ItemError{
				Index: i, MobileID: item.MobileID, Code: res.Code, Message: res.Message, Retryable: domain.IsRetryable(r.err),
			})

		case r.outcome.Kind == conflict.KindRejected:
			outcome.FailedItems++
			res.Status = domain.ItemStatusFailed
			res.Code = domain.CodeOf(r.outcome.Reason)
			res.Message = r.outcome.Reason.Error()
			outcome.Errors = append(outcome.Errors, domain.ItemError{
				Index: i, MobileID: item.MobileID, Code: res.Code, Message: res.Message,
			})

		case r.outcome.Kind == conflict.KindConflict:
			info := r.outcome.Info()
			outcome.Conflicts = append(outcome.Conflicts, info)
			if r.outcome.ClientWon() {
				outcome.SyncedItems++
			}
			res.Status = domain.ItemStatusConflict
			res.Code = domain.CodeConflictDetected
			res.Version = r.outcome.NewVersion
			res.ConflictID = info.ConflictID

		default:
			outcome.SyncedItems++
			res.Status = domain.ItemStatusSynced
			res.Version = r.outcome.NewVersion
		}
		outcome.Results[i] = res
	}

	return outcome
}

func (e *Engine) afterBatch(ctx context.Context, req domain.BatchRequest, outcome *domain.BatchOutcome, results []itemResult, elapsed time.Duration) {
	metrics.SyncBatchesTotal.WithLabelValues(metrics.ResultOK).Inc()
	metrics.SyncBatchDuration.Observe(elapsed.Seconds())

	var updates []event.EntityVersionV1
	for i, r := range results {
		status := outcome.Results[i].Status
		metrics.SyncItemsTotal.WithLabelValues(string(status)).Inc()
		if r.err != nil {
			continue
		}
		if r.outcome.Kind == conflict.KindConflict {
			metrics.ConflictsTotal.WithLabelValues(string(r.outcome.Strategy), string(r.outcome.WinningSide)).Inc()
		}
		if r.outcome.ClientWon() {
			updates = append(updates, event.EntityVersionV1{
				Domain:   outcome.Results[i].Domain,
				MobileID: outcome.Results[i].MobileID,
				Version:  r.outcome.NewVersion,
			})
		}
	}

	if e.health != nil {
		e.health.RecordOutcome(ctx, health.Outcome{
			DeviceID:    req.DeviceID,
			UserID:      req.UserID,
			TenantID:    req.TenantID,
			Duration:    elapsed,
			HadConflict: len(outcome.Conflicts) > 0,
			Failed:      outcome.FailedItems > 0,
			Metadata:    req.Metadata,
		})
	}

	if e.publisher != nil {
		e.publisher.PublishWithRetry(ctx, event.NewBatchProcessedEvent(event.BatchProcessedPayloadV1{
			TenantID:       req.TenantID,
			UserID:         req.UserID,
			DeviceID:       req.DeviceID,
			IdempotencyKey: req.IdempotencyKey,
			Items:          len(req.Items),
			SyncedItems:    outcome.SyncedItems,
			FailedItems:    outcome.FailedItems,
			Conflicts:      len(outcome.Conflicts),
			DurationMs:     outcome.DurationMs,
			ProcessedAt:    outcome.ProcessedAt,
			Updates:        updates,
		}))
	}
}

// commit stores the snapshot, retrying transient failures until ctx ends
func (e *Engine) commit(ctx context.Context, key string, snapshot json.RawMessage) error {
	delay := e.commitRetryDelay
	var err error
	for attempt := 1; attempt <= CommitAttempts; attempt++ {
		if err = e.idem.Commit(ctx, key, snapshot); err == nil {
			return nil
		}
		if attempt == CommitAttempts {
			break
		}
		logger.FromContext(ctx).Warn(LogMsgCommitRetry, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

func (e *Engine) release(ctx context.Context, key string) {
	if err := e.idem.Release(ctx, key); err != nil {
		logger.FromContext(ctx).Warn(LogMsgReleaseFailed, "error", err)
	}
}
