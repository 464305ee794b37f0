package gateway

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/osse101/mobilesync/internal/logger"
	"github.com/osse101/mobilesync/internal/metrics"
)

// Hub tracks the live connection of every device. A device has at most
// one connection; registering a new one closes the previous.
type Hub struct {
	mu      sync.RWMutex
	conns   map[string]*Conn
	users   map[string]map[string]struct{}
	offline *OfflineQueue
	now     func() time.Time
}

// NewHub creates an empty hub
func NewHub(offline *OfflineQueue) *Hub {
	return &Hub{
		conns:   make(map[string]*Conn),
		users:   make(map[string]map[string]struct{}),
		offline: offline,
		now:     time.Now,
	}
}

// Register makes c the device's connection and hands it any held messages
func (h *Hub) Register(c *Conn) {
	dev := c.identity.DeviceID

	h.mu.Lock()
	old := h.conns[dev]
	h.conns[dev] = c
	devices, ok := h.users[c.identity.UserID]
	if !ok {
		devices = make(map[string]struct{})
		h.users[c.identity.UserID] = devices
	}
	devices[dev] = struct{}{}
	h.mu.Unlock()

	if old != nil {
		old.log.Info(LogMsgReplaced, "new_connection_id", c.id)
		old.Close(websocket.ClosePolicyViolation, CloseReasonReplaced)
	}
	metrics.GatewayConnections.Set(float64(h.Count()))

	if held := h.offline.Take(dev, h.now()); len(held) > 0 {
		for _, m := range held {
			c.send(m)
		}
		c.log.Info(LogMsgOfflineFlushed, "count", len(held))
	}
}

// Unregister removes c if it is still the device's connection
func (h *Hub) Unregister(c *Conn) {
	dev := c.identity.DeviceID

	h.mu.Lock()
	if h.conns[dev] == c {
		delete(h.conns, dev)
		if devices, ok := h.users[c.identity.UserID]; ok {
			delete(devices, dev)
			if len(devices) == 0 {
				delete(h.users, c.identity.UserID)
			}
		}
	}
	h.mu.Unlock()
	metrics.GatewayConnections.Set(float64(h.Count()))
}

// Get returns the device's live connection
func (h *Hub) Get(deviceID string) (*Conn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[deviceID]
	return c, ok
}

// Count returns the number of live connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Devices returns the connected devices of a user, sorted
func (h *Hub) Devices(userID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.users[userID]))
	for d := range h.users[userID] {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Deliver sends m to the device, holding High and Critical frames offline
// when the device is not connected
func (h *Hub) Deliver(deviceID string, m Message) {
	if c, ok := h.Get(deviceID); ok {
		c.send(m)
		return
	}
	h.hold(deviceID, m)
}

// DeliverToUser sends m to every connected device of userID except one
func (h *Hub) DeliverToUser(userID, exceptDevice string, m Message) int {
	n := 0
	for _, d := range h.Devices(userID) {
		if d == exceptDevice {
			continue
		}
		h.Deliver(d, m)
		n++
	}
	return n
}

// redeliver routes a frame that from could not take: to the device's
// newer connection if there is one, else to the offline queue
func (h *Hub) redeliver(from *Conn, m Message) {
	if c, ok := h.Get(from.identity.DeviceID); ok && c != from {
		c.send(m)
		return
	}
	h.hold(from.identity.DeviceID, m)
}

func (h *Hub) hold(deviceID string, m Message) {
	if m.Priority.Droppable() {
		metrics.OutboundDropped.WithLabelValues(m.Priority.String()).Inc()
		return
	}
	if !h.offline.Put(deviceID, m, h.now()) {
		metrics.OutboundDropped.WithLabelValues(m.Priority.String()).Inc()
	}
	logger.Debug(LogMsgQueuedOffline, "device_id", deviceID, "type", m.Type)
}

// CloseAll closes every live connection
func (h *Hub) CloseAll(reason string) {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		c.Close(websocket.CloseGoingAway, reason)
	}
}

// SweepOffline drops expired offline messages
func (h *Hub) SweepOffline(ctx context.Context) int {
	n := h.offline.Sweep(h.now())
	if n > 0 {
		logger.FromContext(ctx).Info(LogMsgOfflineSwept, "count", n)
	}
	return n
}
