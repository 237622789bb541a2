package trapwrite

import (
	"testing"

	"github.com/epics-controls/accesssecurity/internal/model"
)

func TestMemoryStoreRingBuffer(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(2)
	e1 := &Event{ID: "1"}
	e2 := &Event{ID: "2"}
	e3 := &Event{ID: "3"}

	_ = s.Append(e1)
	_ = s.Append(e2)
	_ = s.Append(e3) // evicts e1

	recent := s.Recent(0)
	if len(recent) != 2 {
		t.Fatalf("Recent(0) returned %d events, want 2", len(recent))
	}
	if recent[0].ID != "3" || recent[1].ID != "2" {
		t.Errorf("Recent order = [%s, %s], want [3, 2] (newest first)", recent[0].ID, recent[1].ID)
	}
}

func TestMemoryStoreRecentLimitsCount(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(10)
	for i := 0; i < 5; i++ {
		_ = s.Append(&Event{ID: string(rune('a' + i))})
	}
	if got := s.Recent(2); len(got) != 2 {
		t.Errorf("Recent(2) returned %d events, want 2", len(got))
	}
	if got := s.Recent(100); len(got) != 5 {
		t.Errorf("Recent(100) returned %d events, want 5 (all that exist)", len(got))
	}
}

func TestMemoryStoreDefaultCapacity(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(0)
	if s.capacity != 1000 {
		t.Errorf("capacity = %d, want default 1000", s.capacity)
	}
}

func TestDispatcherBeforeInactiveIsNil(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(NewMemoryStore(10))
	c := &model.Client{TrapMask: model.TrapWriteBit}
	if tok := d.Before(false, c, nil, "type", 1); tok != nil {
		t.Error("Before() with active=false should return nil")
	}
}

func TestDispatcherBeforeNoTrapBitIsNil(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(NewMemoryStore(10))
	c := &model.Client{TrapMask: 0}
	if tok := d.Before(true, c, nil, "type", 1); tok != nil {
		t.Error("Before() for a client with no TRAPWRITE bit should return nil")
	}
}

func TestDispatcherBeforeAfterPersistsEvent(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(10)
	d := NewDispatcher(store)
	c := &model.Client{TrapMask: model.TrapWriteBit, Identity: model.Identity{User: "alice"}}

	tok := d.Before(true, c, "pv:test", "DOUBLE", 1)
	if tok == nil {
		t.Fatal("Before() should return a non-nil token for a trap-marked, active client")
	}
	if tok.Completed {
		t.Error("token should not be marked completed before After()")
	}

	d.After(tok)
	if !tok.Completed {
		t.Error("token should be marked completed after After()")
	}

	recent := d.Recent(1)
	if len(recent) != 1 || recent[0].ID != tok.ID {
		t.Errorf("Recent(1) = %+v, want the persisted token", recent)
	}
}

func TestDispatcherAfterNilTokenIsNoop(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(NewMemoryStore(10))
	d.After(nil) // must not panic
}

func TestDispatcherNotifiesObservers(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(NewMemoryStore(10))
	var opened, closed int
	d.Subscribe(func(e *Event) {
		if e.Completed {
			closed++
		} else {
			opened++
		}
	})

	c := &model.Client{TrapMask: model.TrapWriteBit}
	tok := d.Before(true, c, nil, "type", 1)
	d.After(tok)

	if opened != 1 {
		t.Errorf("open notifications = %d, want 1", opened)
	}
	if closed != 1 {
		t.Errorf("close notifications = %d, want 1", closed)
	}
}

func TestDispatcherNilStoreDefaultsToMemory(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(nil)
	c := &model.Client{TrapMask: model.TrapWriteBit}
	tok := d.Before(true, c, nil, "type", 1)
	d.After(tok)

	if len(d.Recent(1)) != 1 {
		t.Error("a nil store should default to a working MemoryStore")
	}
}
