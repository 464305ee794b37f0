package conflict

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/osse101/mobilesync/internal/concurrency"
	"github.com/osse101/mobilesync/internal/domain"
	"github.com/osse101/mobilesync/internal/event"
	"github.com/osse101/mobilesync/internal/logger"
)

// Kind classifies a resolution outcome
type Kind string

const (
	KindAccepted Kind = "accepted"
	KindConflict Kind = "conflict"
	KindRejected Kind = "rejected"
)

// Request is one client mutation to reconcile against server state
type Request struct {
	Ref             domain.EntityRef
	DeviceID        string
	ClientVersion   int64
	Fields          map[string]any
	ClientTimestamp time.Time
}

// Outcome is the result of Resolve.
// For conflicts, Payload is the authoritative state after resolution.
type Outcome struct {
	Kind        Kind
	NewVersion  int64
	Strategy    domain.Strategy
	WinningSide domain.Side
	Payload     map[string]any
	Record      *domain.ConflictRecord
	Pending     bool
	Reason      error
}

// ClientWon reports whether the client's payload was applied
func (o Outcome) ClientWon() bool {
	return o.Kind == KindAccepted || (o.Kind == KindConflict && o.WinningSide == domain.SideClient)
}

// Info returns the wire form of a conflict outcome
func (o Outcome) Info() domain.ConflictInfo {
	if o.Record == nil {
		return domain.ConflictInfo{}
	}
	info := domain.ConflictInfo{
		ConflictID:    o.Record.ID,
		Domain:        o.Record.Domain,
		MobileID:      o.Record.MobileID,
		ServerVersion: o.Record.ServerVersion,
		ClientVersion: o.Record.ClientVersion,
		Strategy:      o.Strategy,
		WinningSide:   o.WinningSide,
		Resolved:      !o.Pending,
		NewVersion:    o.NewVersion,
	}
	if o.WinningSide != domain.SideClient {
		info.ServerData = o.Payload
	}
	if o.Pending {
		info.ResolutionOptions = domain.ResolutionOptions
	}
	return info
}

// Resolution is the result of settling a pending conflict
type Resolution struct {
	ConflictID  string            `json:"conflict_id"`
	Resolution  domain.Resolution `json:"resolution"`
	WinningSide domain.Side       `json:"winning_side"`
	Version     int64             `json:"version"`
	Fields      map[string]any    `json:"fields,omitempty"`
}

// Resolver decides and applies conflict outcomes
type Resolver struct {
	entities  EntityStore
	log       Log
	policies  PolicySource
	notifier  Notifier
	publisher event.Publisher
	locks     *concurrency.LockManager
	now       func() time.Time
	newID     func() string
}

// NewResolver creates a Resolver. notifier and publisher may be nil.
func NewResolver(entities EntityStore, log Log, policies PolicySource, notifier Notifier, publisher event.Publisher, locks *concurrency.LockManager) *Resolver {
	if locks == nil {
		locks = concurrency.NewLockManager()
	}
	return &Resolver{
		entities:  entities,
		log:       log,
		policies:  policies,
		notifier:  notifier,
		publisher: publisher,
		locks:     locks,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Resolve reconciles one client mutation. The version check is the sole
// arbiter between concurrent writers; a version moved by another writer
// between read and write restarts the decision.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Outcome, error) {
	log := logger.FromContext(ctx)
	for attempt := 1; attempt <= MaxCASAttempts; attempt++ {
		out, err := r.resolveOnce(ctx, req)
		if errors.Is(err, domain.ErrVersionMismatch) {
			log.Debug(LogMsgCASRetry, "entity", req.Ref.Key(), "attempt", attempt)
			continue
		}
		return out, err
	}
	return Outcome{}, fmt.Errorf(ErrMsgCASExhausted, req.Ref.Key(), MaxCASAttempts, domain.ErrVersionMismatch)
}

func (r *Resolver) resolveOnce(ctx context.Context, req Request) (Outcome, error) {
	ent, err := r.entities.Get(ctx, req.Ref)
	if err != nil {
		return Outcome{}, fmt.Errorf(ErrMsgLoadEntity, req.Ref.Key(), storeError(err), err)
	}

	var serverVersion int64
	if ent != nil {
		serverVersion = ent.Version
	}

	switch {
	case req.ClientVersion > serverVersion:
		logger.FromContext(ctx).Warn(LogMsgVersionAhead,
			"entity", req.Ref.Key(),
			"client_version", req.ClientVersion,
			"server_version", serverVersion)
		return Outcome{Kind: KindRejected, Reason: domain.ErrVersionAhead}, nil

	case req.ClientVersion == serverVersion:
		v, err := r.write(ctx, req.Ref, serverVersion, req.Fields)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: KindAccepted, NewVersion: v, Payload: req.Fields}, nil
	}

	return r.resolveConflict(ctx, req, ent)
}

func (r *Resolver) resolveConflict(ctx context.Context, req Request, ent *domain.Entity) (Outcome, error) {
	policy := r.policies.GetPolicy(ctx, req.Ref.TenantID, req.Ref.Domain)
	strategy := policy.EffectiveStrategy()
	side := Decide(strategy, req.ClientTimestamp, req.Fields, ent)

	rec := domain.ConflictRecord{
		ID:              r.newID(),
		TenantID:        req.Ref.TenantID,
		DeviceID:        req.DeviceID,
		Domain:          req.Ref.Domain,
		MobileID:        req.Ref.MobileID,
		ServerVersion:   ent.Version,
		ClientVersion:   req.ClientVersion,
		Strategy:        strategy,
		WinningSide:     side,
		Status:          domain.ConflictStatusAutoResolved,
		ClientTimestamp: req.ClientTimestamp,
		CreatedAt:       r.now(),
	}
	out := Outcome{Kind: KindConflict, Strategy: strategy, WinningSide: side}

	if side == domain.SideClient {
		return r.applyClientWin(ctx, req, ent, rec, policy, out)
	}

	switch side {
	case domain.SideServer:
		out.NewVersion = ent.Version
		out.Payload = ent.Fields
	default:
		// The client payload is kept so a later client_wins decision can apply it
		rec.Status = domain.ConflictStatusPending
		rec.ClientData = req.Fields
		rec.ServerData = ent.Fields
		out.Pending = true
		out.NewVersion = ent.Version
		out.Payload = ent.Fields
	}

	if err := r.appendLog(ctx, rec); err != nil {
		return Outcome{}, err
	}
	out.Record = &rec

	r.afterConflict(ctx, rec, policy, out.NewVersion)
	return out, nil
}

// applyClientWin logs the decision before writing so a landed write always
// has a log row. Once the write lands the outcome stands, even if the row
// cannot be settled.
func (r *Resolver) applyClientWin(ctx context.Context, req Request, ent *domain.Entity, rec domain.ConflictRecord, policy domain.ConflictPolicy, out Outcome) (Outcome, error) {
	rec.Status = domain.ConflictStatusApplying
	if err := r.appendLog(ctx, rec); err != nil {
		return Outcome{}, err
	}

	v, err := r.write(ctx, req.Ref, ent.Version, req.Fields)
	if err != nil {
		r.settle(ctx, rec.ID, domain.ConflictStatusAbandoned)
		return Outcome{}, err
	}

	rec.Status = domain.ConflictStatusAutoResolved
	r.settle(ctx, rec.ID, rec.Status)
	out.NewVersion = v
	out.Payload = req.Fields
	out.Record = &rec

	r.afterConflict(ctx, rec, policy, out.NewVersion)
	return out, nil
}

func (r *Resolver) appendLog(ctx context.Context, rec domain.ConflictRecord) error {
	if err := r.log.Append(ctx, rec); err != nil {
		logger.FromContext(ctx).Error(LogMsgConflictLogFailed, "entity", rec.Ref().Key(), "error", err)
		return fmt.Errorf(ErrMsgAppendLog, storeError(err), err)
	}
	return nil
}

// settle runs past the item deadline so a timed-out write can still be marked
func (r *Resolver) settle(ctx context.Context, id string, status domain.ConflictStatus) {
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SettleTimeout)
	defer cancel()
	if err := r.log.Settle(settleCtx, id, status); err != nil {
		logger.FromContext(ctx).Warn(LogMsgSettleFailed, "conflict_id", id, "status", status, "error", err)
	}
}

func (r *Resolver) afterConflict(ctx context.Context, rec domain.ConflictRecord, policy domain.ConflictPolicy, newVersion int64) {
	log := logger.FromContext(ctx)
	if rec.Status == domain.ConflictStatusPending {
		log.Info(LogMsgConflictPending, "conflict_id", rec.ID, "entity", rec.Ref().Key())
	} else {
		log.Info(LogMsgConflictDetected,
			"conflict_id", rec.ID,
			"entity", rec.Ref().Key(),
			"strategy", rec.Strategy,
			"winning_side", rec.WinningSide)
	}

	if policy.NotifyOnConflict && r.notifier != nil {
		if err := r.notifier.NotifyConflict(ctx, rec); err != nil {
			log.Warn(LogMsgNotifyFailed, "conflict_id", rec.ID, "error", err)
		}
	}
	if r.publisher != nil {
		r.publisher.PublishWithRetry(ctx, event.NewConflictEvent(event.ConflictDetected, rec, newVersion))
	}
}

// ResolvePending applies a human or device decision to a pending conflict
func (r *Resolver) ResolvePending(ctx context.Context, conflictID string, resolution domain.Resolution, clientData map[string]any) (*Resolution, error) {
	unlock := r.locks.Lock("conflict:" + conflictID)
	defer unlock()

	rec, err := r.log.Get(ctx, conflictID)
	if err != nil {
		if errors.Is(err, domain.ErrConflictNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf(ErrMsgAppendLog, storeError(err), err)
	}
	if rec.Status != domain.ConflictStatusPending {
		return nil, fmt.Errorf("%w: %s is %s", domain.ErrConflictAlreadyResolved, conflictID, rec.Status)
	}

	var side domain.Side
	switch resolution {
	case domain.ResolutionServerWins:
		side = domain.SideServer
	case domain.ResolutionClientWins:
		side = domain.SideClient
		if clientData == nil {
			clientData = rec.ClientData
		}
	case domain.ResolutionMerge:
		side = domain.SideClient
		if clientData == nil {
			return nil, fmt.Errorf(ErrMsgMergeNeedData, domain.ErrInvalidResolution)
		}
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidResolution, resolution)
	}

	result := &Resolution{ConflictID: conflictID, Resolution: resolution, WinningSide: side}
	ref := rec.Ref()

	applied := false
	for attempt := 1; attempt <= MaxCASAttempts && !applied; attempt++ {
		ent, err := r.entities.Get(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf(ErrMsgLoadEntity, ref.Key(), storeError(err), err)
		}
		var current int64
		var serverFields map[string]any
		if ent != nil {
			current = ent.Version
			serverFields = ent.Fields
		}

		if side == domain.SideServer {
			result.Version = current
			result.Fields = serverFields
			applied = true
			break
		}

		fields := clientData
		if resolution == domain.ResolutionMerge {
			fields = Merge(serverFields, clientData)
		}
		v, err := r.write(ctx, ref, current, fields)
		if errors.Is(err, domain.ErrVersionMismatch) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result.Version = v
		result.Fields = fields
		applied = true
	}
	if !applied {
		return nil, fmt.Errorf(ErrMsgCASExhausted, ref.Key(), MaxCASAttempts, domain.ErrVersionMismatch)
	}

	resolvedAt := r.now()
	if err := r.log.MarkResolved(ctx, conflictID, resolution, side, resolvedAt); err != nil {
		if errors.Is(err, domain.ErrConflictAlreadyResolved) {
			return nil, err
		}
		return nil, fmt.Errorf(ErrMsgAppendLog, storeError(err), err)
	}

	rec.Status = domain.ConflictStatusResolved
	rec.Resolution = resolution
	rec.WinningSide = side
	rec.ResolvedAt = &resolvedAt

	logger.FromContext(ctx).Info(LogMsgConflictResolved,
		"conflict_id", conflictID,
		"resolution", resolution,
		"version", result.Version)
	if r.publisher != nil {
		r.publisher.PublishWithRetry(ctx, event.NewConflictEvent(event.ConflictResolved, *rec, result.Version))
	}
	return result, nil
}

// Get returns a conflict log row
func (r *Resolver) Get(ctx context.Context, conflictID string) (*domain.ConflictRecord, error) {
	return r.log.Get(ctx, conflictID)
}

// List returns conflict log rows matching filter
func (r *Resolver) List(ctx context.Context, filter Filter) ([]domain.ConflictRecord, error) {
	recs, err := r.log.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return recs, nil
}

func (r *Resolver) write(ctx context.Context, ref domain.EntityRef, expected int64, fields map[string]any) (int64, error) {
	v, err := r.entities.CompareAndSwap(ctx, ref, expected, fields, r.now())
	if err == nil || errors.Is(err, domain.ErrVersionMismatch) {
		return v, err
	}
	return 0, fmt.Errorf(ErrMsgWriteEntity, ref.Key(), storeError(err), err)
}

// storeError classifies a store failure as a timeout or an unavailable store
func storeError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrTimeout) {
		return domain.ErrTimeout
	}
	return domain.ErrStoreUnavailable
}
