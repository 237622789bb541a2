// Package notify implements the notifier (component G): it delivers
// access-rights-changed (COAR) callbacks after the policy model has
// finished mutating, on the same goroutine that performed the triggering
// operation.
package notify

import (
	"sync"

	"github.com/epics-controls/accesssecurity/internal/model"
)

// Event is a pending COAR notification.
type Event struct {
	Client    *model.Client
	OldAccess model.Access
	NewAccess model.Access
	OldTrap   model.TrapMask
	NewTrap   model.TrapMask
}

// Dispatcher accumulates events produced while the policy lock is held,
// then delivers them once the caller has released the lock. Running
// callbacks after release — rather than holding a reentrant lock across
// them — is what makes "re-entrant calls into any policy operation other
// than remove_client must be safe" true for free: a callback that calls
// back into the facade simply takes the (now unheld) lock like any other
// caller.
//
// Enqueue is called while the policy lock is held; Flush is called by the
// facade's own mutators after they have released it, and by the input
// registry's async delivery goroutine, so the pending queue needs its own mutex
// independent of the policy lock: two unlocked Flush calls (one from a
// synchronous client mutation, one from a concurrent input delivery) must
// not race on the same slice.
type Dispatcher struct {
	mu      sync.Mutex
	pending []Event
}

// New creates an empty dispatcher. One Dispatcher is owned per Policy.
func New() *Dispatcher {
	return &Dispatcher{}
}

// Enqueue records a change for later delivery. Call this while the policy
// lock is still held, immediately after updating the client's stored
// access/trap state.
func (d *Dispatcher) Enqueue(c *model.Client, oldAccess, newAccess model.Access, oldTrap, newTrap model.TrapMask) {
	d.mu.Lock()
	d.pending = append(d.pending, Event{
		Client:    c,
		OldAccess: oldAccess,
		NewAccess: newAccess,
		OldTrap:   oldTrap,
		NewTrap:   newTrap,
	})
	d.mu.Unlock()
}

// Flush drains the pending queue under d.mu, then invokes every drained
// client callback (skipping clients with no callback registered, or that
// were removed before delivery) with the mutex released, and returns how
// many callbacks were actually delivered. Call this after releasing the
// policy lock; it is itself safe to call concurrently from more than one
// goroutine (e.g. a synchronous client mutation racing an asynchronous
// input delivery), since the drain-and-clear step is the only part that
// touches shared state.
func (d *Dispatcher) Flush() int {
	d.mu.Lock()
	events := d.pending
	d.pending = nil
	d.mu.Unlock()

	delivered := 0
	for _, e := range events {
		if e.Client == nil {
			continue
		}
		cb, removed := e.Client.SnapshotCallback()
		if cb == nil || removed {
			continue
		}
		cb(e.Client, e.OldAccess, e.NewAccess)
		delivered++
	}
	return delivered
}

// Pending reports how many events are queued, for tests.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
