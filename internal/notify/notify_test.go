package notify

import (
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/epics-controls/accesssecurity/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestEnqueueThenFlushDelivers(t *testing.T) {
	t.Parallel()

	d := New()
	var delivered []string
	c := &model.Client{Callback: func(c *model.Client, oldAccess, newAccess model.Access) {
		delivered = append(delivered, "called")
	}}

	d.Enqueue(c, model.AccessNone, model.AccessRead, 0, 0)
	if d.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", d.Pending())
	}

	n := d.Flush()
	if n != 1 {
		t.Errorf("Flush() returned %d, want 1", n)
	}
	if len(delivered) != 1 {
		t.Errorf("callback was invoked %d times, want 1", len(delivered))
	}
	if d.Pending() != 0 {
		t.Errorf("Pending() after Flush() = %d, want 0", d.Pending())
	}
}

func TestFlushSkipsClientsWithNoCallback(t *testing.T) {
	t.Parallel()

	d := New()
	c := &model.Client{}
	d.Enqueue(c, model.AccessNone, model.AccessRead, 0, 0)

	if n := d.Flush(); n != 0 {
		t.Errorf("Flush() = %d, want 0 for a client with no callback", n)
	}
}

func TestFlushSkipsRemovedClients(t *testing.T) {
	t.Parallel()

	d := New()
	called := false
	c := &model.Client{
		Callback: func(c *model.Client, oldAccess, newAccess model.Access) { called = true },
		Removed:  true,
	}
	d.Enqueue(c, model.AccessNone, model.AccessRead, 0, 0)

	if n := d.Flush(); n != 0 {
		t.Errorf("Flush() = %d, want 0 for a removed client", n)
	}
	if called {
		t.Error("callback should not fire for a client removed before delivery")
	}
}

func TestFlushPassesOldAndNewAccess(t *testing.T) {
	t.Parallel()

	d := New()
	var gotOld, gotNew model.Access
	c := &model.Client{Callback: func(c *model.Client, oldAccess, newAccess model.Access) {
		gotOld, gotNew = oldAccess, newAccess
	}}
	d.Enqueue(c, model.AccessRead, model.AccessWrite, 0, 0)
	d.Flush()

	if gotOld != model.AccessRead || gotNew != model.AccessWrite {
		t.Errorf("callback args = (%v, %v), want (%v, %v)", gotOld, gotNew, model.AccessRead, model.AccessWrite)
	}
}

func TestFlushCanReenterEnqueue(t *testing.T) {
	t.Parallel()

	d := New()
	reentered := false
	c2 := &model.Client{Callback: func(c *model.Client, oldAccess, newAccess model.Access) {
		reentered = true
	}}
	c1 := &model.Client{Callback: func(c *model.Client, oldAccess, newAccess model.Access) {
		d.Enqueue(c2, model.AccessNone, model.AccessRead, 0, 0)
	}}

	d.Enqueue(c1, model.AccessNone, model.AccessRead, 0, 0)
	d.Flush()

	// The re-entrant Enqueue landed after the first Flush drained the
	// slice it was iterating, so it is not delivered until a second Flush.
	if reentered {
		t.Error("reentrant Enqueue should not be delivered within the same Flush() call")
	}
	if d.Pending() != 1 {
		t.Fatalf("Pending() after reentrant Enqueue = %d, want 1", d.Pending())
	}

	d.Flush()
	if !reentered {
		t.Error("reentrant Enqueue should be delivered by the next Flush()")
	}
}

// TestConcurrentEnqueueAndFlush exercises the shape described in §5: one
// goroutine enqueuing and flushing synchronously (a facade mutator) while
// another delivers asynchronous input changes that also enqueue and
// flush. Run with -race to confirm the pending queue is not corrupted.
func TestConcurrentEnqueueAndFlush(t *testing.T) {
	t.Parallel()

	d := New()
	var delivered int64Counter
	const n = 200

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			c := &model.Client{Callback: func(*model.Client, model.Access, model.Access) {
				delivered.add(1)
			}}
			d.Enqueue(c, model.AccessNone, model.AccessRead, 0, 0)
			d.Flush()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			c := &model.Client{Callback: func(*model.Client, model.Access, model.Access) {
				delivered.add(1)
			}}
			d.Enqueue(c, model.AccessRead, model.AccessWrite, 0, 0)
			d.Flush()
		}
	}()
	wg.Wait()

	// One final flush to catch anything left pending by the last Enqueue
	// on either goroutine racing past the other's Flush.
	d.Flush()
	if got := delivered.get(); got != 2*n {
		t.Errorf("delivered = %d, want %d", got, 2*n)
	}
}

type int64Counter struct {
	mu sync.Mutex
	n  int
}

func (c *int64Counter) add(d int) {
	c.mu.Lock()
	c.n += d
	c.mu.Unlock()
}

func (c *int64Counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestFlushEmptyIsNoop(t *testing.T) {
	t.Parallel()

	d := New()
	if n := d.Flush(); n != 0 {
		t.Errorf("Flush() on an empty dispatcher = %d, want 0", n)
	}
}
