package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/osse101/mobilesync/internal/domain"
	"github.com/osse101/mobilesync/internal/logger"
	"github.com/osse101/mobilesync/internal/metrics"
)

// State is the lifecycle state of a device connection
type State int32

const (
	StateConnecting State = iota
	StateAuthenticated
	StateActive
	StateIdle
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateActive:
		return "active"
	case StateIdle:
		return "idle"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Conn is one device's websocket. A reader, a writer, a heartbeat monitor
// and a small pool of batch workers run per connection.
type Conn struct {
	id       string
	identity Identity
	ws       *websocket.Conn
	gw       *Gateway
	out      *Outbound
	dispatch chan Envelope
	log      *slog.Logger

	state        atomic.Int32
	lastActivity atomic.Int64
	misses       atomic.Int32
	backoff      atomic.Int64

	closeOnce   sync.Once
	closeCode   int
	closeReason string
	done        chan struct{}
}

func newConn(ctx context.Context, gw *Gateway, ws *websocket.Conn, identity Identity) *Conn {
	id := uuid.NewString()
	c := &Conn{
		id:       id,
		identity: identity,
		ws:       ws,
		gw:       gw,
		out:      NewOutbound(gw.cfg.OutboundQueueSize),
		dispatch: make(chan Envelope, gw.cfg.DispatchQueueSize),
		log:      logger.FromContext(logger.WithDeviceID(ctx, identity.DeviceID, id)),
		done:     make(chan struct{}),
	}
	c.state.Store(int32(StateConnecting))
	c.lastActivity.Store(gw.now().UnixNano())
	return c
}

// ID returns the connection id
func (c *Conn) ID() string { return c.id }

// Identity returns the authenticated owner
func (c *Conn) Identity() Identity { return c.identity }

// State returns the current lifecycle state
func (c *Conn) State() State { return State(c.state.Load()) }

// Done is closed once the connection starts closing
func (c *Conn) Done() <-chan struct{} { return c.done }

// serve runs the connection until it closes
func (c *Conn) serve(ctx context.Context) {
	ctx = logger.WithDeviceID(ctx, c.identity.DeviceID, c.id)
	c.state.Store(int32(StateActive))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.writeLoop()
	}()
	go func() {
		defer wg.Done()
		c.monitor()
	}()

	var workers sync.WaitGroup
	for i := 0; i < c.gw.cfg.MaxConcurrentBatches; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			c.work(ctx)
		}()
	}

	c.readLoop()

	c.Close(websocket.CloseNormalClosure, CloseReasonClientDisconnect)
	close(c.dispatch)
	workers.Wait()
	wg.Wait()

	for _, m := range c.out.Drain() {
		c.gw.hub.redeliver(c, m)
	}
	c.state.Store(int32(StateClosed))
}

// Close starts closing. Queued frames are flushed before the close frame.
func (c *Conn) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		c.state.Store(int32(StateClosing))
		close(c.done)
		c.out.Close()
	})
}

func (c *Conn) readLoop() {
	limit := c.gw.cfg.HeartbeatInterval * time.Duration(c.gw.cfg.HeartbeatMaxMisses+1)
	c.ws.SetReadLimit(c.gw.cfg.MaxMessageBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(limit))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(limit))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.log.Warn(LogMsgReadError, "error", err)
				}
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(limit))
		c.markActivity()

		env, err := Decode(data)
		if err != nil {
			c.protocolError("", err)
			return
		}
		metrics.GatewayMessagesTotal.WithLabelValues(metrics.DirectionIn, env.Type).Inc()

		switch env.Type {
		case TypeHeartbeat:
			c.gw.handleHeartbeat(c, env)
		case TypeSync, TypeResolveConflict:
			select {
			case c.dispatch <- env:
			default:
				c.log.Warn(LogMsgDispatchFull, "type", env.Type, "id", env.ID)
				c.gw.replyError(c, env.ID, domain.ErrQueueFull)
			}
		default:
			c.protocolError(env.ID, fmt.Errorf(ErrMsgUnknownType, domain.ErrInvalidPayload, env.Type))
			return
		}
	}
}

// protocolError reports err to the device and closes the connection
func (c *Conn) protocolError(id string, err error) {
	c.log.Warn(LogMsgProtocolViolation, "error", err)
	if m, encErr := c.gw.message(TypeError, id, errorPayload(err), PriorityCritical); encErr == nil {
		c.send(m)
	}
	c.Close(websocket.CloseProtocolError, CloseReasonProtocol)
}

func (c *Conn) work(ctx context.Context) {
	for env := range c.dispatch {
		switch env.Type {
		case TypeSync:
			c.gw.handleSync(ctx, c, env)
		case TypeResolveConflict:
			c.gw.handleResolve(ctx, c, env)
		}
	}
}

func (c *Conn) writeLoop() {
	ping := time.NewTicker(c.gw.cfg.HeartbeatInterval)
	defer ping.Stop()
	defer c.ws.Close()

	for {
		select {
		case <-c.out.Ready():
			closed := c.out.Closed()
			if err := c.flush(); err != nil {
				c.log.Warn(LogMsgWriteError, "error", err)
				c.Close(websocket.CloseAbnormalClosure, CloseReasonClientDisconnect)
				return
			}
			if closed {
				msg := websocket.FormatCloseMessage(c.closeCode, c.closeReason)
				_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(WriteTimeout))
				return
			}
		case <-ping.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(WriteTimeout)); err != nil {
				c.Close(websocket.CloseAbnormalClosure, CloseReasonClientDisconnect)
				return
			}
		}
	}
}

func (c *Conn) flush() error {
	for {
		m, ok := c.out.Pop()
		if !ok {
			return nil
		}
		_ = c.ws.SetWriteDeadline(time.Now().Add(WriteTimeout))
		if err := c.ws.WriteMessage(websocket.TextMessage, m.Data); err != nil {
			c.gw.hub.redeliver(c, m)
			return err
		}
		metrics.GatewayMessagesTotal.WithLabelValues(metrics.DirectionOut, m.Type).Inc()
	}
}

// monitor moves the connection to idle after one silent interval and
// closes it after HeartbeatMaxMisses consecutive silent intervals
func (c *Conn) monitor() {
	interval := c.gw.cfg.HeartbeatInterval
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-t.C:
			last := time.Unix(0, c.lastActivity.Load())
			if c.gw.now().Sub(last) < interval {
				continue
			}
			misses := c.misses.Add(1)
			if c.state.CompareAndSwap(int32(StateActive), int32(StateIdle)) {
				c.log.Debug(LogMsgIdle)
			}
			c.log.Debug(LogMsgHeartbeatMissed, "misses", misses)
			if int(misses) >= c.gw.cfg.HeartbeatMaxMisses {
				c.log.Info(LogMsgHeartbeatMissed, "misses", misses, "closing", true)
				c.Close(websocket.CloseGoingAway, CloseReasonHeartbeat)
				return
			}
		}
	}
}

func (c *Conn) markActivity() {
	c.lastActivity.Store(c.gw.now().UnixNano())
	c.misses.Store(0)
	c.state.CompareAndSwap(int32(StateIdle), int32(StateActive))
}

// send enqueues m, spilling undeliverable High and Critical frames to the offline queue
func (c *Conn) send(m Message) {
	dropped, err := c.out.Push(m)
	switch {
	case err != nil:
		c.gw.hub.redeliver(c, m)
	case dropped != nil:
		metrics.OutboundDropped.WithLabelValues(dropped.Priority.String()).Inc()
		c.log.Debug(LogMsgMessageDropped, "type", dropped.Type, "priority", dropped.Priority.String())
	}
}
