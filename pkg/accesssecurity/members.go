package accesssecurity

import "github.com/epics-controls/accesssecurity/internal/model"

// AddMember stores asgName (the caller must keep the backing string
// alive) and links the new member into that ASG, or DEFAULT if asgName is
// not a known ASG. Initial access is NONE until a client is attached and
// evaluated.
func (p *Policy) AddMember(asgName string, payload any) *Member {
	p.mu.Lock()
	defer p.mu.Unlock()

	asg, ok := p.policy.ASGs[asgName]
	if !ok {
		asg = p.policy.ASGs["DEFAULT"]
	}
	m := &model.Member{ASGName: asgName, ASG: asg, Payload: payload}
	asg.Members = append(asg.Members, m)
	p.members[m] = true
	return m
}

// ChangeGroup detaches m from its current ASG and reattaches it to
// newASGName (or DEFAULT if unknown), then re-evaluates every one of its
// clients against the new ASG.
func (p *Policy) ChangeGroup(m *Member, newASGName string) error {
	p.mu.Lock()

	if !p.members[m] {
		p.mu.Unlock()
		return model.ErrBadMember
	}

	detachMember(m)

	asg, ok := p.policy.ASGs[newASGName]
	if !ok {
		asg = p.policy.ASGs["DEFAULT"]
	}
	m.ASGName = newASGName
	m.ASG = asg
	asg.Members = append(asg.Members, m)

	bitset, cacheable := p.eval.RecomputeRules(asg)
	for _, c := range m.Clients {
		p.eval.EvaluateClient(asg, c, p.hostMode, p.policy.HAGs, p.policy.UAGs, bitset, cacheable, p.disp)
	}

	p.mu.Unlock()
	p.flushNotifications()

	return nil
}

// RemoveMember unlinks and frees m. It fails with ErrClientsExist if m
// still has attached clients.
func (p *Policy) RemoveMember(m *Member) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.members[m] {
		return model.ErrBadMember
	}
	if len(m.Clients) > 0 {
		return model.ErrClientsExist
	}

	detachMember(m)
	delete(p.members, m)
	return nil
}

func detachMember(m *model.Member) {
	if m.ASG == nil {
		return
	}
	members := m.ASG.Members
	for i, mm := range members {
		if mm == m {
			m.ASG.Members = append(members[:i], members[i+1:]...)
			break
		}
	}
	m.ASG = nil
}
