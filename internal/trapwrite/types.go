// Package trapwrite implements the trap-write dispatch (component H):
// before/after audit hooks for writes whose winning rule set TRAPWRITE,
// and the event records those hooks publish.
package trapwrite

import (
	"time"

	"github.com/epics-controls/accesssecurity/internal/model"
)

// Event is one write's audit record. Before is populated by
// Dispatcher.Before; After and Completed are filled in by Dispatcher.After.
type Event struct {
	ID           string
	Identity     model.Identity
	Resource     any
	TypeTag      string
	ElementCount int
	Before       time.Time
	After        time.Time
	Completed    bool
}

// Observer is notified once when an event opens (Completed == false) and
// once when it closes (Completed == true).
type Observer func(e *Event)

// Store persists completed events for later inspection.
type Store interface {
	Append(e *Event) error
	Recent(n int) []*Event
	Close() error
}
