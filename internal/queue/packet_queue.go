// Package queue implements the bounded outbound packet queue described in
// spec.md §4.3. The send task's dequeue must never block — a historical bug
// in the teacher's line of descent used a blocking channel receive on the
// audio queue and deadlocked video-only clients, which this queue's
// try-dequeue is built specifically to avoid.
package queue

import (
	"log/slog"
	"sync"

	"github.com/zfogg/asciichat-server/internal/wire"
)

// Policy controls what happens to Enqueue when the queue is full.
type Policy int

const (
	// DropOldest discards the head of the queue to make room for the new
	// packet. Used for the video path: a stale frame is worthless once a
	// newer one exists.
	DropOldest Policy = iota
	// DropNew discards the incoming packet and keeps the queue unchanged.
	// Used for the audio path, where dropping an in-flight chunk is
	// preferable to discarding already-buffered playback order.
	DropNew
)

// Default capacities per spec.md §4.3.
const (
	DefaultVideoCapacity = 10
	DefaultAudioCapacity = 30
)

// PacketQueue is a bounded FIFO of outbound wire packets with a configurable
// overflow policy. All operations are non-blocking.
type PacketQueue struct {
	mu       sync.Mutex
	items    []*wire.Packet
	capacity int
	policy   Policy
	dropped  uint64
	log      *slog.Logger
}

// New creates a packet queue with the given capacity and overflow policy.
// log may be nil, in which case overflow drops are not logged.
func New(capacity int, policy Policy, log *slog.Logger) *PacketQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &PacketQueue{
		items:    make([]*wire.Packet, 0, capacity),
		capacity: capacity,
		policy:   policy,
		log:      log,
	}
}

// Enqueue appends p to the queue. It never blocks: on overflow it applies
// the queue's configured policy. It returns false only when p itself was
// discarded (DropNew); under DropOldest the prior head is discarded, p is
// queued, and Enqueue returns true.
func (q *PacketQueue) Enqueue(p *wire.Packet) (accepted bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) < q.capacity {
		q.items = append(q.items, p)
		return true
	}

	q.dropped++
	switch q.policy {
	case DropNew:
		if q.log != nil {
			q.log.Debug("packet queue full, dropping new packet", "type", p.Type, "capacity", q.capacity)
		}
		return false
	default: // DropOldest
		if q.log != nil {
			q.log.Debug("packet queue full, dropping oldest packet", "type", q.items[0].Type, "capacity", q.capacity)
		}
		copy(q.items, q.items[1:])
		q.items[len(q.items)-1] = p
		return true
	}
}

// TryDequeue removes and returns the oldest packet. ok is false when the
// queue is empty; this call never blocks, regardless of policy or load.
func (q *PacketQueue) TryDequeue() (p *wire.Packet, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	p = q.items[0]
	copy(q.items, q.items[1:])
	q.items = q.items[:len(q.items)-1]
	return p, true
}

// Len reports the number of packets currently queued.
func (q *PacketQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped reports the cumulative number of packets discarded due to overflow.
func (q *PacketQueue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
