// Package accesssecurity is the public facade for the access control
// core: it mirrors the classic asLib surface (Initialize, AddMember,
// ChangeGroup, RemoveMember, AddClient, ChangeClient, RemoveClient,
// RegisterClientCallback, CheckGet/Put/RPC, TrapWriteBefore/After, Dump)
// as idiomatic Go methods on *Policy.
//
// A single *Policy serializes every mutation under one lock (the
// "policy lock" of §5); unlike the source this wraps, there is no process
// global — tests and callers may hold as many independent *Policy values
// as they like.
package accesssecurity

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/epics-controls/accesssecurity/internal/calc"
	"github.com/epics-controls/accesssecurity/internal/config"
	"github.com/epics-controls/accesssecurity/internal/dump"
	"github.com/epics-controls/accesssecurity/internal/evaluator"
	"github.com/epics-controls/accesssecurity/internal/inputreg"
	"github.com/epics-controls/accesssecurity/internal/metrics"
	"github.com/epics-controls/accesssecurity/internal/model"
	"github.com/epics-controls/accesssecurity/internal/notify"
	"github.com/epics-controls/accesssecurity/internal/parser"
	"github.com/epics-controls/accesssecurity/internal/trapwrite"
)

// Re-exported model types: callers work with these directly rather than
// through a second wrapping layer. Member and Client are opaque handles
// in the sense the specification describes — callers store the pointer,
// never reach into its fields except via the methods below.
type (
	Member   = model.Member
	Client   = model.Client
	Identity = model.Identity
	Access   = model.Access
	TLSState = model.TLSState
	Callback = model.Callback
)

const (
	AccessNone  = model.AccessNone
	AccessRead  = model.AccessRead
	AccessWrite = model.AccessWrite
	AccessRPC   = model.AccessRPC
)

const (
	TLSUnset = model.TLSUnset
	TLSFalse = model.TLSFalse
	TLSTrue  = model.TLSTrue
)

// Policy is one isolated access-control core instance.
type Policy struct {
	mu sync.Mutex

	active   bool
	hostMode model.HostMode

	policy *model.Policy
	calc   *calc.Engine
	eval   *evaluator.Evaluator
	disp   *notify.Dispatcher
	trap   *trapwrite.Dispatcher
	inputs *inputreg.Registry

	metrics *metrics.Metrics
	logger  *slog.Logger

	members         map[*model.Member]bool
	liveClientCount int
}

// Option configures New.
type Option func(*Policy)

// WithInputSource binds an external variable source for calc-predicate
// inputs. Without one, ASGs with INPx bindings simply never receive
// updates (their calc predicates only ever see the zero default).
func WithInputSource(source inputreg.Source) Option {
	return func(p *Policy) {
		p.inputs = inputreg.New(source, &p.mu,
			func(asg *model.ASG) {
				p.eval.Recompute(asg, p.hostMode, p.policy.HAGs, p.policy.UAGs, p.disp)
				if p.metrics != nil {
					p.metrics.RecomputesTotal.WithLabelValues(asg.Name).Inc()
				}
			},
			p.flushNotifications,
		)
	}
}

// WithMetrics records parse, recompute, COAR, trap-write and client-count
// metrics into m, which the caller has already registered.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Policy) { p.metrics = m }
}

// WithLogger sets the structured logger; the default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Policy) { p.logger = logger }
}

// New loads a policy from cfg and returns a ready-to-use facade.
func New(cfg config.Config, opts ...Option) (*Policy, error) {
	p := &Policy{
		logger:  slog.Default(),
		members: make(map[*model.Member]bool),
	}
	for _, o := range opts {
		o(p)
	}

	engine, err := calc.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("accesssecurity: %w: %v", model.ErrInitFailed, err)
	}
	p.calc = engine
	p.eval = evaluator.New(nonZero(cfg.CacheSize, 1000), p.logger)
	p.disp = notify.New()

	store, err := buildStore(cfg.TrapWrite)
	if err != nil {
		return nil, err
	}
	p.trap = trapwrite.NewDispatcher(store)

	if err := p.loadLocked(cfg); err != nil {
		return nil, err
	}
	return p, nil
}

func buildStore(cfg config.TrapWriteConfig) (trapwrite.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return trapwrite.NewMemoryStore(cfg.MemoryCapacity), nil
	case "sqlite":
		return trapwrite.OpenSQLiteStore(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("accesssecurity: %w: unknown trap-write backend %q", model.ErrBadConfig, cfg.Backend)
	}
}

func nonZero(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// loadLocked parses cfg.PolicyFile and installs it as the active policy.
// Must be called with p.mu held (or during New, before p is published).
func (p *Policy) loadLocked(cfg config.Config) error {
	var pol *model.Policy
	var err error

	switch cfg.PolicyFormat {
	case "", "classic":
		text, rerr := readFile(cfg.PolicyFile)
		if rerr != nil {
			p.recordParseOutcome("bad_config")
			return fmt.Errorf("accesssecurity: %w: %v", model.ErrBadConfig, rerr)
		}
		pol, err = parser.ParseClassic(parser.Options{File: cfg.PolicyFile, Text: text, Dict: cfg.Macros, Calc: p.calc})
	case "structured":
		raw, rerr := readFileBytes(cfg.PolicyFile)
		if rerr != nil {
			p.recordParseOutcome("bad_config")
			return fmt.Errorf("accesssecurity: %w: %v", model.ErrBadConfig, rerr)
		}
		pol, err = parser.ParseStructured(cfg.PolicyFile, raw, p.calc)
	default:
		p.recordParseOutcome("bad_config")
		return fmt.Errorf("accesssecurity: %w: unknown policy format %q", model.ErrBadConfig, cfg.PolicyFormat)
	}
	if err != nil {
		outcome := "bad_config"
		if errors.Is(err, model.ErrBadCalc) {
			outcome = "bad_calc"
		}
		p.recordParseOutcome(outcome)
		return err
	}
	p.recordParseOutcome("ok")

	if cfg.CheckClientIP {
		parser.ResolveHostsIP(pol)
		p.hostMode = model.HostModeIP
	} else {
		p.hostMode = model.HostModeName
	}

	p.active = cfg.Active
	p.policy = pol
	p.eval.ClearCache()

	if p.inputs != nil {
		for _, asg := range pol.ASGs {
			if err := p.inputs.Bind(asg); err != nil {
				p.logger.Warn("failed to bind input subscriptions", "asg", asg.Name, "error", err)
			}
		}
	}

	return nil
}

// Initialize replaces the active policy wholesale. It fails with
// ErrClientsExist if any client is currently attached to the prior
// policy; existing members (which by definition have no clients at that
// point) are re-linked to the new policy's ASG of the same name, or to
// DEFAULT if that name no longer exists.
func (p *Policy) Initialize(cfg config.Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.liveClientCount > 0 {
		return model.ErrClientsExist
	}

	if err := p.loadLocked(cfg); err != nil {
		return err
	}

	for m := range p.members {
		asg, ok := p.policy.ASGs[m.ASGName]
		if !ok {
			asg = p.policy.ASGs["DEFAULT"]
		}
		m.ASG = asg
		asg.Members = append(asg.Members, m)
	}

	return nil
}

func (p *Policy) recordParseOutcome(outcome string) {
	if p.metrics != nil {
		p.metrics.ParsesTotal.WithLabelValues(outcome).Inc()
	}
}

// flushNotifications delivers every COAR event queued since the last
// flush. Call this only after releasing p.mu: callbacks must run unlocked
// so one of them can safely call back into the facade.
func (p *Policy) flushNotifications() {
	n := p.disp.Flush()
	if p.metrics != nil && n > 0 {
		p.metrics.COARTotal.Add(float64(n))
	}
}

// Dump renders the active policy in canonical form.
func (p *Policy) Dump() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return dump.Policy(p.policy)
}
