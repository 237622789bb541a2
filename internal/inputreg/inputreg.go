// Package inputreg implements the input registry (component C): it maps a
// symbolic calc input name to a subscription against an external variable
// source, and re-dispatches value changes to the ASGs that reference them.
package inputreg

import (
	"sync"

	"github.com/epics-controls/accesssecurity/internal/model"
)

// Source is the external variable source interface required from the
// host: it delivers (value, valid) pairs asynchronously for names the
// registry has subscribed to. The core never implements this itself.
type Source interface {
	// Subscribe registers interest in name, returning an opaque handle.
	// deliver is called by the source (on any goroutine) whenever the
	// signal's value or validity changes.
	Subscribe(name string, deliver func(value float64, valid bool)) (handle any, err error)
	// Unsubscribe releases a previously obtained handle.
	Unsubscribe(handle any)
}

// RecomputeFunc is invoked once per delivered change, after the registry
// has updated the owning ASG's input vector and dirty bitmap, under the
// caller-supplied lock (the policy lock in normal use).
type RecomputeFunc func(asg *model.ASG)

// Registry owns one subscription per (ASG, input index) pair.
type Registry struct {
	mu        sync.Mutex
	source    Source
	locker    sync.Locker // the policy lock; taken before touching any rule
	recompute RecomputeFunc
	afterUnlock func()
}

// New creates a registry bound to an external variable source. locker is
// taken before every delivered update is applied, matching the contract
// that the registry takes the policy lock before touching any rule.
// afterUnlock, if non-nil, runs once locker has been released — the
// caller's chance to deliver any COAR callbacks queued by recompute
// without holding the policy lock across them.
func New(source Source, locker sync.Locker, recompute RecomputeFunc, afterUnlock func()) *Registry {
	return &Registry{source: source, locker: locker, recompute: recompute, afterUnlock: afterUnlock}
}

// Bind subscribes every input binding of asg that does not already have a
// live handle. Call this once per ASG after it is linked into the policy.
func (r *Registry) Bind(asg *model.ASG) error {
	for _, inp := range asg.Inputs {
		if inp.Handle != nil {
			continue
		}
		binding := inp
		handle, err := r.source.Subscribe(binding.Source, func(value float64, valid bool) {
			r.deliver(asg, binding, value, valid)
		})
		if err != nil {
			return err
		}
		binding.Handle = handle
	}
	return nil
}

// Unbind releases every live subscription held by asg's input bindings.
// Call this before discarding an ASG (policy reload or shutdown).
func (r *Registry) Unbind(asg *model.ASG) {
	for _, inp := range asg.Inputs {
		if inp.Handle == nil {
			continue
		}
		r.source.Unsubscribe(inp.Handle)
		inp.Handle = nil
	}
}

// deliver applies one value/valid update to the ASG's input vector under
// the policy lock, triggers a recompute, then — once the lock is released
// — runs afterUnlock so any queued COAR callbacks are delivered without
// the policy lock held.
func (r *Registry) deliver(asg *model.ASG, binding *model.InputBinding, value float64, valid bool) {
	r.locker.Lock()

	bit := uint16(1) << uint(binding.Index)
	asg.InputValues[binding.Index] = value
	if valid {
		asg.InputBad &^= bit
	} else {
		asg.InputBad |= bit
	}
	asg.InputChg |= bit

	if r.recompute != nil {
		r.recompute(asg)
	}

	r.locker.Unlock()

	if r.afterUnlock != nil {
		r.afterUnlock()
	}
}
