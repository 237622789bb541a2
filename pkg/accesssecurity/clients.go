package accesssecurity

import "github.com/epics-controls/accesssecurity/internal/model"

// AddClient attaches a new client to m using the legacy two-field identity
// (user, host) plus the client's access security level. Method and
// authority are left empty, so rules that gate on either never match for
// this client; use AddClientX to supply them. Mirrors the original
// library's asAddClient(asl, user, host) signature.
func (p *Policy) AddClient(m *Member, level int, user, host string) (*Client, error) {
	return p.addClient(m, model.Identity{User: user, Host: host, AccessLevel: level})
}

// AddClientX attaches a new client to m with the full identity, including
// the authentication method and authority fields and TLS state introduced
// alongside TLS-aware rules. Mirrors asAddClientX(asl, user, method,
// authority, host, isTLS).
func (p *Policy) AddClientX(m *Member, level int, user, host, method, authority string, isTLS TLSState) (*Client, error) {
	return p.addClient(m, model.Identity{
		User: user, Host: host, Method: method, Authority: authority,
		IsTLS: isTLS, AccessLevel: level,
	})
}

func (p *Policy) addClient(m *Member, identity model.Identity) (*Client, error) {
	p.mu.Lock()

	if !p.members[m] {
		p.mu.Unlock()
		return nil, model.ErrBadMember
	}

	c := &model.Client{Member: m, Identity: identity}
	m.Clients = append(m.Clients, c)
	p.liveClientCount++
	if p.metrics != nil {
		p.metrics.ClientsGauge.Set(float64(p.liveClientCount))
	}

	asg := m.ASG
	bitset, cacheable := p.eval.RecomputeRules(asg)
	p.eval.EvaluateClient(asg, c, p.hostMode, p.policy.HAGs, p.policy.UAGs, bitset, cacheable, p.disp)

	p.mu.Unlock()
	p.flushNotifications()
	return c, nil
}

// ChangeClient updates c's access level, user, and host (mirrors
// asChangeClient(asl, user, host)) and re-evaluates its access. Method,
// authority, and TLS state are left as they were; use ChangeClientX to
// update those too. The client keeps its Member and callback.
func (p *Policy) ChangeClient(c *Client, level int, user, host string) error {
	identity := c.Identity
	identity.AccessLevel = level
	identity.User = user
	identity.Host = host
	return p.changeClient(c, identity)
}

// ChangeClientX updates c's full identity, including method, authority, and
// TLS state (mirrors asChangeClientX(asl, user, method, authority, host,
// isTLS)), and re-evaluates its access.
func (p *Policy) ChangeClientX(c *Client, level int, user, host, method, authority string, isTLS TLSState) error {
	return p.changeClient(c, model.Identity{
		User: user, Host: host, Method: method, Authority: authority,
		IsTLS: isTLS, AccessLevel: level,
	})
}

func (p *Policy) changeClient(c *Client, identity model.Identity) error {
	p.mu.Lock()

	if c.Removed {
		p.mu.Unlock()
		return model.ErrBadClient
	}

	c.Identity = identity

	asg := c.Member.ASG
	bitset, cacheable := p.eval.RecomputeRules(asg)
	p.eval.EvaluateClient(asg, c, p.hostMode, p.policy.HAGs, p.policy.UAGs, bitset, cacheable, p.disp)

	p.mu.Unlock()
	p.flushNotifications()
	return nil
}

// RemoveClient detaches c from its member. Like every other mutator it
// may be called from inside a COAR callback, since callbacks run after
// the policy lock is released; a removed client receives no further
// queued callbacks.
func (p *Policy) RemoveClient(c *Client) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c.Removed {
		return model.ErrBadClient
	}

	c.MarkRemoved()
	m := c.Member
	for i, cc := range m.Clients {
		if cc == c {
			m.Clients = append(m.Clients[:i], m.Clients[i+1:]...)
			break
		}
	}
	p.liveClientCount--
	if p.metrics != nil {
		p.metrics.ClientsGauge.Set(float64(p.liveClientCount))
	}
	return nil
}

// RegisterClientCallback replaces c's change-of-access-rights callback.
// The callback is not invoked as a side effect of registering it.
func (p *Policy) RegisterClientCallback(c *Client, fn Callback) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c.SetCallback(fn)
}
