package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/osse101/mobilesync/internal/conflict"
	"github.com/osse101/mobilesync/internal/domain"
	"github.com/osse101/mobilesync/internal/engine"
	"github.com/osse101/mobilesync/internal/event"
	"github.com/osse101/mobilesync/internal/logger"
)

// SyncProcessor runs a batch through the sync pipeline
type SyncProcessor interface {
	ProcessBatch(ctx context.Context, req domain.BatchRequest) (*engine.Result, error)
}

// ConflictResolver settles pending conflicts
type ConflictResolver interface {
	ResolvePending(ctx context.Context, conflictID string, resolution domain.Resolution, clientData map[string]any) (*conflict.Resolution, error)
}

// Config tunes connection handling
type Config struct {
	HeartbeatInterval    time.Duration
	HeartbeatMaxMisses   int
	OutboundQueueSize    int
	DispatchQueueSize    int
	MaxConcurrentBatches int
	OfflineQueueTTL      time.Duration
	OfflinePerDevice     int
	MaxMessageBytes      int64
	ResolveTimeout       time.Duration
	// CheckOrigin is passed to the upgrader; nil accepts any origin
	CheckOrigin func(r *http.Request) bool
	// Backoff suggests the device's next retry delay after each batch. The
	// latest value rides on heartbeat_ack; nil sends no hint.
	Backoff func(ctx context.Context, deviceID, userID string) time.Duration
}

func (c Config) withDefaults() Config {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.HeartbeatMaxMisses <= 0 {
		c.HeartbeatMaxMisses = DefaultHeartbeatMaxMisses
	}
	if c.OutboundQueueSize <= 0 {
		c.OutboundQueueSize = DefaultOutboundQueueSize
	}
	if c.DispatchQueueSize <= 0 {
		c.DispatchQueueSize = DefaultDispatchQueueSize
	}
	if c.MaxConcurrentBatches <= 0 {
		c.MaxConcurrentBatches = DefaultMaxConcurrentBatches
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = DefaultMaxMessageBytes
	}
	if c.ResolveTimeout <= 0 {
		c.ResolveTimeout = domain.DefaultItemTimeout
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = func(*http.Request) bool { return true }
	}
	return c
}

// Gateway serves device websocket connections
type Gateway struct {
	hub      *Hub
	engine   SyncProcessor
	resolver ConflictResolver
	auth     Authenticator
	upgrader websocket.Upgrader
	cfg      Config
	now      func() time.Time
}

// New creates a Gateway
func New(processor SyncProcessor, resolver ConflictResolver, auth Authenticator, cfg Config) *Gateway {
	cfg = cfg.withDefaults()
	return &Gateway{
		hub:      NewHub(NewOfflineQueue(cfg.OfflineQueueTTL, cfg.OfflinePerDevice)),
		engine:   processor,
		resolver: resolver,
		auth:     auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  ReadBufferSize,
			WriteBufferSize: WriteBufferSize,
			CheckOrigin:     cfg.CheckOrigin,
		},
		cfg: cfg,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Hub returns the connection registry
func (g *Gateway) Hub() *Hub { return g.hub }

// ServeHTTP authenticates and upgrades a device connection, then blocks until it closes
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	identity, err := g.auth.Authenticate(r)
	if err != nil {
		log.Warn(LogMsgAuthFailed, "error", err, "remote_addr", r.RemoteAddr)
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn(LogMsgUpgradeFailed, "error", err)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	c := newConn(ctx, g, ws, identity)
	c.state.Store(int32(StateAuthenticated))
	c.log.Info(LogMsgConnected, "tenant_id", identity.TenantID, "user_id", identity.UserID)

	g.hub.Register(c)
	c.serve(ctx)
	g.hub.Unregister(c)
	c.log.Info(LogMsgDisconnected, "reason", c.closeReason)
}

// Shutdown closes every connection
func (g *Gateway) Shutdown() {
	g.hub.CloseAll(CloseReasonShutdown)
}

// Register subscribes the gateway to events that produce device pushes
func (g *Gateway) Register(bus event.Bus) {
	bus.Subscribe(event.BatchProcessed, g.HandleBatchProcessed)
	bus.Subscribe(event.ConflictResolved, g.HandleConflictResolved)
}

// HandleBatchProcessed pushes versions written by one device to the user's other devices
func (g *Gateway) HandleBatchProcessed(ctx context.Context, evt event.Event) error {
	p, err := event.DecodePayload[event.BatchProcessedPayloadV1](evt.Payload)
	if err != nil {
		logger.FromContext(ctx).Warn(LogMsgDecodeFailed, "type", evt.Type, "error", err)
		return nil
	}
	if len(p.Updates) == 0 || p.UserID == "" {
		return nil
	}
	m, err := g.message(TypeServerPush, "", ServerPushPayload{Updates: p.Updates}, PriorityNormal)
	if err != nil {
		return err
	}
	g.hub.DeliverToUser(p.UserID, p.DeviceID, m)
	return nil
}

// HandleConflictResolved tells the originating device a pending conflict was settled
func (g *Gateway) HandleConflictResolved(ctx context.Context, evt event.Event) error {
	p, err := event.DecodePayload[event.ConflictPayloadV1](evt.Payload)
	if err != nil {
		logger.FromContext(ctx).Warn(LogMsgDecodeFailed, "type", evt.Type, "error", err)
		return nil
	}
	if p.DeviceID == "" {
		return nil
	}
	m, err := g.message(TypeConflictResolved, "", ConflictResolvedPayload{
		ConflictID:  p.ConflictID,
		Domain:      p.Domain,
		MobileID:    p.MobileID,
		Resolution:  p.Resolution,
		WinningSide: p.WinningSide,
		Version:     p.NewVersion,
	}, PriorityCritical)
	if err != nil {
		return err
	}
	g.hub.Deliver(p.DeviceID, m)
	return nil
}

// Push sends a server_push to one device
func (g *Gateway) Push(deviceID string, updates []event.EntityVersionV1, priority Priority) error {
	m, err := g.message(TypeServerPush, "", ServerPushPayload{Updates: updates}, priority)
	if err != nil {
		return err
	}
	g.hub.Deliver(deviceID, m)
	return nil
}

func (g *Gateway) handleHeartbeat(c *Conn, env Envelope) {
	var p HeartbeatPayload
	if len(env.Payload) > 0 {
		_ = json.Unmarshal(env.Payload, &p)
	}
	g.reply(c, TypeHeartbeatAck, env.ID, HeartbeatAckPayload{
		ServerTime:   g.now(),
		ClientTime:   p.ClientTime,
		RetryAfterMs: time.Duration(c.backoff.Load()).Milliseconds(),
	}, PriorityHigh)
}

func (g *Gateway) handleSync(ctx context.Context, c *Conn, env Envelope) {
	p, err := DecodePayload[SyncPayload](env)
	if err != nil {
		g.replyError(c, env.ID, err)
		return
	}
	if p.DeviceID != "" && p.DeviceID != c.identity.DeviceID {
		g.replyError(c, env.ID, fmt.Errorf(ErrMsgDeviceMismatch, domain.ErrInvalidPayload, p.DeviceID))
		return
	}

	res, err := g.engine.ProcessBatch(ctx, domain.BatchRequest{
		TenantID:       c.identity.TenantID,
		UserID:         c.identity.UserID,
		DeviceID:       c.identity.DeviceID,
		IdempotencyKey: p.IdempotencyKey,
		Items:          p.Items,
		Metadata:       p.Metadata,
	})
	if err != nil {
		c.log.Warn(LogMsgBatchFailed, "idempotency_key", p.IdempotencyKey, "error", err)
		g.replyError(c, env.ID, err)
		return
	}

	if g.cfg.Backoff != nil {
		c.backoff.Store(int64(g.cfg.Backoff(ctx, c.identity.DeviceID, c.identity.UserID)))
	}
	g.reply(c, TypeSyncResponse, env.ID, res.Snapshot, PriorityHigh)
	for _, info := range res.Outcome.Conflicts {
		prio := PriorityNormal
		if !info.Resolved {
			prio = PriorityHigh
		}
		g.reply(c, TypeConflict, "", info, prio)
	}
}

func (g *Gateway) handleResolve(ctx context.Context, c *Conn, env Envelope) {
	p, err := DecodePayload[ResolveConflictPayload](env)
	if err != nil {
		g.replyError(c, env.ID, err)
		return
	}
	if p.ConflictID == "" {
		g.replyError(c, env.ID, fmt.Errorf("%w: conflict_id", domain.ErrMissingField))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.cfg.ResolveTimeout)
	defer cancel()
	res, err := g.resolver.ResolvePending(ctx, p.ConflictID, p.Resolution, p.ClientData)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		}
		c.log.Warn(LogMsgResolveFailed, "conflict_id", p.ConflictID, "error", err)
		g.replyError(c, env.ID, err)
		return
	}
	g.reply(c, TypeConflictResolved, env.ID, ConflictResolvedPayload{
		ConflictID:  res.ConflictID,
		Resolution:  res.Resolution,
		WinningSide: res.WinningSide,
		Version:     res.Version,
		Fields:      res.Fields,
	}, PriorityHigh)
}

func (g *Gateway) reply(c *Conn, msgType, id string, payload any, prio Priority) {
	m, err := g.message(msgType, id, payload, prio)
	if err != nil {
		c.log.Error(LogMsgEncodeFailed, "type", msgType, "error", err)
		return
	}
	c.send(m)
}

func (g *Gateway) replyError(c *Conn, id string, err error) {
	g.reply(c, TypeError, id, errorPayload(err), PriorityHigh)
}

func (g *Gateway) message(msgType, id string, payload any, prio Priority) (Message, error) {
	data, err := Encode(msgType, id, payload, g.now())
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Priority: prio, Data: data}, nil
}
