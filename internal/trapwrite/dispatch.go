package trapwrite

import (
	"time"

	"github.com/google/uuid"

	"github.com/epics-controls/accesssecurity/internal/model"
)

// Dispatcher owns the before/after write hooks for one Policy.
type Dispatcher struct {
	store     Store
	observers []Observer
}

// NewDispatcher creates a dispatcher backed by store. A nil store is
// replaced with a MemoryStore of default capacity (1000 events).
func NewDispatcher(store Store) *Dispatcher {
	if store == nil {
		store = NewMemoryStore(0)
	}
	return &Dispatcher{store: store}
}

// Subscribe registers fn to be called for every opened and closed event.
func (d *Dispatcher) Subscribe(fn Observer) {
	d.observers = append(d.observers, fn)
}

// Before implements trap_write_before: if the subsystem is inactive or
// the client's trap mask has no AS_TRAP_WRITE bit set, it returns nil and
// does no work at all.
func (d *Dispatcher) Before(active bool, client *model.Client, resource any, typeTag string, elementCount int) *Event {
	if !active || client == nil || client.TrapMask&model.TrapWriteBit == 0 {
		return nil
	}
	e := &Event{
		ID:           uuid.New().String(),
		Identity:     client.Identity,
		Resource:     resource,
		TypeTag:      typeTag,
		ElementCount: elementCount,
		Before:       time.Now(),
	}
	d.notify(e)
	return e
}

// After implements trap_write_after: publishes completion and persists
// the finished record. A nil token (the common case: Before did not trap
// this write) is a no-op.
func (d *Dispatcher) After(token *Event) {
	if token == nil {
		return
	}
	token.After = time.Now()
	token.Completed = true
	d.notify(token)
	_ = d.store.Append(token)
}

func (d *Dispatcher) notify(e *Event) {
	for _, obs := range d.observers {
		obs(e)
	}
}

// Recent returns the last n persisted events from the backing store.
func (d *Dispatcher) Recent(n int) []*Event {
	return d.store.Recent(n)
}

// Close releases the backing store's resources.
func (d *Dispatcher) Close() error {
	return d.store.Close()
}
