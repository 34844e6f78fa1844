// Package registry implements the fixed-size client table from spec.md
// §3/§4.8: a reader-writer-locked set of slots that render workers
// traverse continuously while connects/disconnects are rare.
package registry

import (
	"fmt"
	"sync"

	"github.com/zfogg/asciichat-server/internal/client"
)

// ErrFull is returned by Add when every slot is occupied.
var ErrFull = fmt.Errorf("registry: full")

// Registry is a fixed-size table of client slots guarded by a
// reader-writer lock (spec.md §3 ClientRegistry). Every render worker and
// compositor must take at least a read lock before traversing the table,
// and must never upgrade to a write lock while holding the read lock —
// this type's API makes that upgrade structurally impossible.
type Registry struct {
	mu      sync.RWMutex
	slots   []*client.Client
	maxSize int
}

// New creates an empty registry with maxSize slots (spec.md §6
// max_clients, default 9).
func New(maxSize int) *Registry {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Registry{slots: make([]*client.Client, maxSize), maxSize: maxSize}
}

// MaxSize returns the configured slot count.
func (r *Registry) MaxSize() int { return r.maxSize }

// Add places c in the first empty slot under the write lock. Returns
// ErrFull if every slot is occupied — the caller (listener) rejects the
// handshake with an explicit reason in that case (spec.md §4.8).
func (r *Registry) Add(c *client.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, slot := range r.slots {
		if slot == nil {
			r.slots[i] = c
			return nil
		}
	}
	return ErrFull
}

// Remove clears c's slot under the write lock. It does not join or tear
// down c's tasks — that happens outside any registry lock, per spec.md
// §4.8's prescribed removal order.
func (r *Registry) Remove(c *client.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, slot := range r.slots {
		if slot == c {
			r.slots[i] = nil
			return
		}
	}
}

// Snapshot returns a copy of the currently occupied slots, taken under a
// read lock and released before the caller does any compositing or I/O
// (spec.md §4.6 step 5: never hold cross-client locks across CPU-heavy
// work). Satisfies client.Registry.
func (r *Registry) Snapshot() []*client.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*client.Client, 0, len(r.slots))
	for _, slot := range r.slots {
		if slot != nil {
			out = append(out, slot)
		}
	}
	return out
}

// Count returns the number of currently occupied slots.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, slot := range r.slots {
		if slot != nil {
			n++
		}
	}
	return n
}
