// Package evaluator implements the rule evaluator (component F): ASG
// recomputation and per-client effective access computation.
package evaluator

import (
	"log/slog"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/epics-controls/accesssecurity/internal/model"
	"github.com/epics-controls/accesssecurity/internal/notify"
)

// Evaluator recomputes ASGs and client access, memoizing identical
// (ruleset outcome, client identity) pairs so that an ASG with many
// clients does not re-walk its rule list for every one of them when only
// the input vector changed and the winning rule is the same for most.
type Evaluator struct {
	cache  *resultCache
	logger *slog.Logger
}

// New creates an Evaluator with a bounded decision cache.
func New(cacheSize int, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{cache: newResultCache(cacheSize), logger: logger}
}

// ClearCache discards all memoized decisions. Call this after a policy
// reload, since ASG names may be reused with entirely different rules.
func (e *Evaluator) ClearCache() {
	e.cache.Clear()
}

// cachedDecision is what the LRU stores.
type cachedDecision struct {
	access model.Access
	trap   model.TrapMask
}

// recomputeRules evaluates every rule's calc predicate against the ASG's
// current input vector, honoring the inpBad-forces-false rule, and stores
// the outcome in asg.RuleResults. Runtime evaluation never fails: a calc
// error is logged and treated as FALSE, same as a bad input.
func (e *Evaluator) recomputeRules(asg *model.ASG) {
	if cap(asg.RuleResults) < len(asg.Rules) {
		asg.RuleResults = make([]bool, len(asg.Rules))
	} else {
		asg.RuleResults = asg.RuleResults[:len(asg.Rules)]
	}
	for i, rule := range asg.Rules {
		if rule.Program == nil {
			asg.RuleResults[i] = true
			continue
		}
		ok, err := rule.Program.Evaluate(asg.InputValues, asg.InputBad)
		if err != nil {
			e.logger.Warn("calc predicate evaluation failed, treating as false",
				"asg", asg.Name, "rule_index", i, "error", err)
			ok = false
		}
		asg.RuleResults[i] = ok
	}
}

// ruleResultBitset packs up to 64 rule outcomes into a uint64 cache-key
// component. ASGs with more than 64 rules simply do not participate in
// the across-client cache (every lookup misses, correctness unaffected).
func ruleResultBitset(asg *model.ASG) (uint64, bool) {
	if len(asg.RuleResults) > 64 {
		return 0, false
	}
	var bits uint64
	for i, ok := range asg.RuleResults {
		if ok {
			bits |= 1 << uint(i)
		}
	}
	return bits, true
}

// RecomputeRules runs only the F.1 step (rule predicate evaluation) and
// returns the resulting cache-key bitset, for callers that need to
// re-evaluate a subset of an ASG's clients (e.g. one member that just
// changed group) rather than every client via Recompute.
func (e *Evaluator) RecomputeRules(asg *model.ASG) (bitset uint64, cacheable bool) {
	e.recomputeRules(asg)
	return ruleResultBitset(asg)
}

// Recompute runs the full F.1/F.2 sequence for one ASG: recompute every
// rule's predicate, then recompute every client of every member attached
// to the ASG, enqueuing a COAR event on disp for each client whose access
// or trap mask changed.
func (e *Evaluator) Recompute(asg *model.ASG, hostMode model.HostMode, hags map[string]*model.HAG, uags map[string]*model.UAG, disp *notify.Dispatcher) {
	e.recomputeRules(asg)
	bitset, cacheable := ruleResultBitset(asg)

	for _, m := range asg.Members {
		for _, c := range m.Clients {
			e.EvaluateClient(asg, c, hostMode, hags, uags, bitset, cacheable, disp)
		}
	}

	asg.InputChg = 0
}

// EvaluateClient computes one client's effective access against the ASG's
// already-recomputed rule results (call recomputeRules, or Recompute, for
// the ASG first), updates the client's stored state, and enqueues a COAR
// event on disp if it changed.
func (e *Evaluator) EvaluateClient(asg *model.ASG, c *model.Client, hostMode model.HostMode, hags map[string]*model.HAG, uags map[string]*model.UAG, bitset uint64, cacheable bool, disp *notify.Dispatcher) {
	var key uint64
	if cacheable {
		key = cacheKey(asg.Name, bitset, c.Identity)
		if d, ok := e.cache.Get(key); ok {
			e.apply(c, d.access, d.trap, disp)
			return
		}
	}

	access, trap := computeAccess(asg, c, hostMode, hags, uags)

	if cacheable {
		e.cache.Put(key, cachedDecision{access: access, trap: trap})
	}
	e.apply(c, access, trap, disp)
}

func (e *Evaluator) apply(c *model.Client, access model.Access, trap model.TrapMask, disp *notify.Dispatcher) {
	if access == c.Access && trap == c.TrapMask {
		return
	}
	oldAccess, oldTrap := c.Access, c.TrapMask
	c.Access = access
	c.TrapMask = trap
	if disp != nil {
		disp.Enqueue(c, oldAccess, access, oldTrap, trap)
	}
}

// computeAccess implements the §4.F step-2 filter chain.
func computeAccess(asg *model.ASG, c *model.Client, hostMode model.HostMode, hags map[string]*model.HAG, uags map[string]*model.UAG) (model.Access, model.TrapMask) {
	effective := model.AccessNone
	var trapMask model.TrapMask

	for i, rule := range asg.Rules {
		if rule.Access <= effective {
			continue
		}
		if c.Identity.AccessLevel < rule.Level {
			continue
		}
		if len(rule.UAGs) > 0 && !matchUAG(rule.UAGs, c.Identity.User, uags) {
			continue
		}
		if len(rule.HAGs) > 0 && !matchHAG(rule.HAGs, c.Identity.Host, hostMode, hags) {
			continue
		}
		if len(rule.Methods) > 0 && !contains(rule.Methods, c.Identity.Method) {
			continue
		}
		if len(rule.Authorities) > 0 && !contains(rule.Authorities, c.Identity.Authority) {
			continue
		}
		if rule.TLSRequired != model.TLSUnset && rule.TLSRequired != c.Identity.IsTLS {
			continue
		}
		if i < len(asg.RuleResults) && !asg.RuleResults[i] {
			continue
		}

		effective = rule.Access
		if rule.TrapWrite {
			trapMask |= model.TrapWriteBit
		}
	}

	return effective, trapMask
}

func matchUAG(names []string, user string, uags map[string]*model.UAG) bool {
	for _, n := range names {
		if g, ok := uags[n]; ok && g.HasUser(user) {
			return true
		}
	}
	return false
}

func matchHAG(names []string, host string, mode model.HostMode, hags map[string]*model.HAG) bool {
	for _, n := range names {
		g, ok := hags[n]
		if !ok {
			continue
		}
		switch mode {
		case model.HostModeIP:
			for _, ip := range g.ResolvedIPs {
				if ip == host {
					return true
				}
			}
		default:
			for _, h := range g.Hosts {
				if strings.EqualFold(h, host) {
					return true
				}
			}
		}
	}
	return false
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func cacheKey(asgName string, bitset uint64, id model.Identity) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(asgName)
	_, _ = h.Write([]byte{0})
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(bitset >> (8 * i))
	}
	_, _ = h.Write(buf[:])
	_, _ = h.WriteString(id.User)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(id.Host)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(id.Method)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(id.Authority)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte{byte(id.IsTLS)})
	var lvl [8]byte
	v := uint64(id.AccessLevel)
	for i := 0; i < 8; i++ {
		lvl[i] = byte(v >> (8 * i))
	}
	_, _ = h.Write(lvl[:])
	return h.Sum64()
}
