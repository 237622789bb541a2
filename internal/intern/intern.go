// Package intern provides case-sensitive string interning for the names
// used throughout a policy: group names, user names, host literals, method
// and authority tokens. Interning gives every caller the same backing
// string for a given value, so the policy model never holds more than one
// copy of any name it has seen.
package intern

import "sync"

// Table owns a set of interned strings. The zero value is not usable; use
// New.
type Table struct {
	mu      sync.Mutex
	strings map[string]string
}

// New creates an empty interning table.
func New() *Table {
	return &Table{strings: make(map[string]string)}
}

// Intern returns the canonical copy of s, storing s the first time it is
// seen. Comparison is case-sensitive; callers that need case-insensitive
// matching (host literals in name mode) normalize before interning or
// compare with strings.EqualFold at the call site.
func (t *Table) Intern(s string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.strings[s]; ok {
		return existing
	}
	t.strings[s] = s
	return s
}

// InternAll interns every element of names in place and returns the same
// slice, so a rule's group references share backing storage with the
// group's own name and with every other rule that references it.
func (t *Table) InternAll(names []string) []string {
	for i, n := range names {
		names[i] = t.Intern(n)
	}
	return names
}

// Len reports how many distinct strings have been interned.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.strings)
}
