package gateway

import (
	"errors"
	"sync"
	"time"

	"github.com/osse101/mobilesync/internal/domain"
	"github.com/osse101/mobilesync/internal/metrics"
)

// Priority orders outbound messages. Low and Normal may be dropped under
// pressure; High and Critical are held in the offline queue instead.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	}
	return "unknown"
}

// Droppable reports whether the message may be discarded under pressure
func (p Priority) Droppable() bool {
	return p < PriorityHigh
}

// Message is an encoded frame waiting to be written
type Message struct {
	Type     string
	Priority Priority
	Data     []byte
}

var errQueueClosed = errors.New(ErrMsgQueueClosed)

// Outbound is a bounded per-connection priority queue.
// Pop returns the highest priority first, FIFO within a priority.
type Outbound struct {
	mu       sync.Mutex
	items    [PriorityCritical + 1][]Message
	size     int
	capacity int
	closed   bool
	ready    chan struct{}
}

// NewOutbound creates a queue holding at most capacity messages
func NewOutbound(capacity int) *Outbound {
	if capacity <= 0 {
		capacity = DefaultOutboundQueueSize
	}
	return &Outbound{capacity: capacity, ready: make(chan struct{}, 1)}
}

// Push enqueues m. When full, the oldest droppable message of the lowest
// priority not above m's is evicted and returned. A droppable m with
// nothing to evict is itself returned as dropped. A High or Critical m
// that cannot be queued yields domain.ErrQueueFull.
func (q *Outbound) Push(m Message) (dropped *Message, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, errQueueClosed
	}

	if q.size >= q.capacity {
		victim := -1
		for p := PriorityLow; p <= PriorityNormal; p++ {
			if len(q.items[p]) > 0 {
				victim = int(p)
				break
			}
		}
		switch {
		case victim >= 0 && (Priority(victim) <= m.Priority || !m.Priority.Droppable()):
			old := q.items[victim][0]
			q.items[victim] = q.items[victim][1:]
			q.size--
			dropped = &old
		case m.Priority.Droppable():
			return &m, nil
		default:
			return nil, domain.ErrQueueFull
		}
	}

	q.items[m.Priority] = append(q.items[m.Priority], m)
	q.size++
	q.signal()
	return dropped, nil
}

// Pop removes the next message without blocking
func (q *Outbound) Pop() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for p := PriorityCritical; p >= PriorityLow; p-- {
		if len(q.items[p]) > 0 {
			m := q.items[p][0]
			q.items[p] = q.items[p][1:]
			q.size--
			return m, true
		}
	}
	return Message{}, false
}

// Ready is signalled after a push or close
func (q *Outbound) Ready() <-chan struct{} {
	return q.ready
}

// Close stops accepting messages. Queued messages can still be popped.
func (q *Outbound) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		q.signal()
	}
}

// Closed reports whether Close was called
func (q *Outbound) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of queued messages
func (q *Outbound) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Drain removes and returns queued messages that must not be lost
func (q *Outbound) Drain() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []Message
	for p := PriorityCritical; p >= PriorityHigh; p-- {
		out = append(out, q.items[p]...)
		q.items[p] = nil
	}
	q.size = 0
	for p := PriorityLow; p <= PriorityNormal; p++ {
		q.items[p] = nil
	}
	return out
}

func (q *Outbound) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

type offlineEntry struct {
	msg       Message
	expiresAt time.Time
}

// OfflineQueue holds High and Critical messages for devices that are not
// connected, or whose outbound queue is full, until they expire
type OfflineQueue struct {
	mu        sync.Mutex
	ttl       time.Duration
	perDevice int
	entries   map[string][]offlineEntry
	size      int
}

// NewOfflineQueue creates an OfflineQueue
func NewOfflineQueue(ttl time.Duration, perDevice int) *OfflineQueue {
	if ttl <= 0 {
		ttl = DefaultOfflineQueueTTL
	}
	if perDevice <= 0 {
		perDevice = DefaultOfflinePerDevice
	}
	return &OfflineQueue{ttl: ttl, perDevice: perDevice, entries: make(map[string][]offlineEntry)}
}

// Put holds m for deviceID. When the device is at its limit the oldest
// entry is discarded and reported as false.
func (o *OfflineQueue) Put(deviceID string, m Message, now time.Time) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	kept := true
	list := o.entries[deviceID]
	if len(list) >= o.perDevice {
		list = list[1:]
		o.size--
		kept = false
	}
	o.entries[deviceID] = append(list, offlineEntry{msg: m, expiresAt: now.Add(o.ttl)})
	o.size++
	metrics.OfflineQueueSize.Set(float64(o.size))
	return kept
}

// Take removes and returns unexpired messages for deviceID in arrival order
func (o *OfflineQueue) Take(deviceID string, now time.Time) []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	list := o.entries[deviceID]
	delete(o.entries, deviceID)
	o.size -= len(list)
	metrics.OfflineQueueSize.Set(float64(o.size))

	out := make([]Message, 0, len(list))
	for _, e := range list {
		if now.Before(e.expiresAt) {
			out = append(out, e.msg)
		}
	}
	return out
}

// Sweep drops expired messages and returns how many were removed
func (o *OfflineQueue) Sweep(now time.Time) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	removed := 0
	for id, list := range o.entries {
		kept := list[:0]
		for _, e := range list {
			if now.Before(e.expiresAt) {
				kept = append(kept, e)
			} else {
				removed++
			}
		}
		if len(kept) == 0 {
			delete(o.entries, id)
		} else {
			o.entries[id] = kept
		}
	}
	o.size -= removed
	metrics.OfflineQueueSize.Set(float64(o.size))
	return removed
}

// Len returns the number of held messages
func (o *OfflineQueue) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.size
}
