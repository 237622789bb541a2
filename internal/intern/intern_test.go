package intern

import (
	"sync"
	"testing"
)

func TestInternReturnsSameBackingValue(t *testing.T) {
	t.Parallel()

	tbl := New()
	a := tbl.Intern("ops")
	b := tbl.Intern("ops")

	if a != b {
		t.Errorf("Intern returned different values for the same string: %q vs %q", a, b)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}
}

func TestInternDistinctStrings(t *testing.T) {
	t.Parallel()

	tbl := New()
	tbl.Intern("ops")
	tbl.Intern("admin")
	tbl.Intern("ops")

	if tbl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tbl.Len())
	}
}

func TestInternAll(t *testing.T) {
	t.Parallel()

	tbl := New()
	first := tbl.InternAll([]string{"a", "b", "a"})
	second := tbl.InternAll([]string{"b", "c"})

	if first[0] != first[2] {
		t.Error("InternAll should intern repeated elements within one call to the same value")
	}
	if tbl.Len() != 3 {
		t.Errorf("Len() = %d, want 3 (a, b, c)", tbl.Len())
	}
	_ = second
}

func TestInternConcurrentSafe(t *testing.T) {
	t.Parallel()

	tbl := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tbl.Intern("shared")
		}()
	}
	wg.Wait()

	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after concurrent interning of the same string", tbl.Len())
	}
}
