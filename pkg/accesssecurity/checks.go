package accesssecurity

import "github.com/epics-controls/accesssecurity/internal/trapwrite"

// CheckGet reports whether c currently has at least read access. When the
// facade is inactive (its policy was loaded with Active: false) every
// check passes, matching the classic library's
// fail-open behavior for processes that never call Initialize.
func (p *Policy) CheckGet(c *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.active || c.Access >= AccessRead
}

// CheckPut reports whether c currently has write access.
func (p *Policy) CheckPut(c *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.active || c.Access >= AccessWrite
}

// CheckRPC reports whether c currently has RPC access.
func (p *Policy) CheckRPC(c *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.active || c.Access >= AccessRPC
}

// TrapWriteBefore records the "before" half of an audited write and
// returns a token to pass to TrapWriteAfter, or nil if the client's
// current rule did not request TRAPWRITE (or the facade is inactive).
func (p *Policy) TrapWriteBefore(c *Client, resource any, typeTag string, elementCount int) *trapwrite.Event {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()
	return p.trap.Before(active, c, resource, typeTag, elementCount)
}

// TrapWriteAfter records the "after" half of an audited write started by
// TrapWriteBefore. A nil token is a no-op.
func (p *Policy) TrapWriteAfter(token *trapwrite.Event) {
	p.trap.After(token)
	if token != nil && p.metrics != nil {
		p.metrics.TrapWritesTotal.Inc()
	}
}
