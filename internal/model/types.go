// Package model contains the typed in-memory representation of an access
// security policy: user and host access groups, access security groups,
// rules, input bindings, members, and clients.
package model

import "sync"

// Access is an effective access level. Values are ordered so that a higher
// numeric value always grants everything a lower one does.
type Access int

const (
	AccessNone Access = iota
	AccessRead
	AccessWrite
	AccessRPC
)

// String returns the classic-form keyword for an access level.
func (a Access) String() string {
	switch a {
	case AccessNone:
		return "NONE"
	case AccessRead:
		return "READ"
	case AccessWrite:
		return "WRITE"
	case AccessRPC:
		return "RPC"
	default:
		return "NONE"
	}
}

// ParseAccess maps a classic-form keyword to an Access level.
func ParseAccess(s string) (Access, bool) {
	switch s {
	case "NONE":
		return AccessNone, true
	case "READ":
		return AccessRead, true
	case "WRITE":
		return AccessWrite, true
	case "RPC":
		return AccessRPC, true
	default:
		return AccessNone, false
	}
}

// Mask bit positions for the 3-bit RPC|PUT|GET access mask.
const (
	MaskGet = 1 << 0
	MaskPut = 1 << 1
	MaskRPC = 1 << 2
)

// Mask returns the 3-bit RPC|PUT|GET mask implied by an access level: every
// level at or below the granted one has its bit set.
func (a Access) Mask() int {
	m := 0
	if a >= AccessRead {
		m |= MaskGet
	}
	if a >= AccessWrite {
		m |= MaskPut
	}
	if a >= AccessRPC {
		m |= MaskRPC
	}
	return m
}

// TLSState is the tri-state value of a client's transport security, and of
// a rule's TLS requirement.
type TLSState int

const (
	TLSUnset TLSState = iota
	TLSFalse
	TLSTrue
)

// HostMode selects how HAG host literals are matched against a client host.
type HostMode int

const (
	// HostModeName compares the client host string to each HAG literal
	// case-insensitively, whole string.
	HostModeName HostMode = iota
	// HostModeIP compares the client host, which must be a literal IPv4
	// dotted quad, against IPs resolved from each HAG literal at load time.
	HostModeIP
)

// MaxInputs is the number of single-letter calc variables (A..L) the
// calculator recognizes.
const MaxInputs = 12

// InputLetter converts an input index (0..MaxInputs-1) to its symbolic
// letter, 'A'..'L'.
func InputLetter(index int) byte {
	return 'A' + byte(index)
}

// InputIndex converts a symbolic letter ('A'..'L') back to an input index,
// or -1 if out of range.
func InputIndex(letter byte) int {
	idx := int(letter - 'A')
	if idx < 0 || idx >= MaxInputs {
		return -1
	}
	return idx
}

// UAG is a User Access Group: a named, ordered set of user names.
type UAG struct {
	Name  string
	Users []string
}

// HasUser reports whether name appears in the group.
func (g *UAG) HasUser(name string) bool {
	for _, u := range g.Users {
		if u == name {
			return true
		}
	}
	return false
}

// HAG is a Host Access Group: a named, ordered set of host literals, plus
// (in IP mode) the IPv4 addresses each literal resolved to at load time.
type HAG struct {
	Name        string
	Hosts       []string
	ResolvedIPs []string // populated by the parser/loader in IP mode
}

// InputBinding binds a symbolic calc input (A..L) to an external signal
// name. The Handle field is populated by the input registry once it has
// subscribed on behalf of the owning ASG; it is opaque to the model.
type InputBinding struct {
	Index  int
	Symbol byte
	Source string
	Handle any
}

// Rule is a single conditional grant within an ASG.
type Rule struct {
	Access      Access
	Level       int
	Calc        string // raw predicate text, empty if unconditional
	TrapWrite   bool
	UAGs        []string
	HAGs        []string
	Methods     []string
	Authorities []string
	TLSRequired TLSState

	// InpUsed is the bitmap of input indices (bit i set iff input i is
	// referenced by Calc) computed by the calc engine at compile time.
	InpUsed uint16

	// Program is the compiled calc predicate, set by whatever compiled the
	// rule (parser or a later recompile); nil means "always true".
	Program CalcProgram
}

// CalcProgram is the compiled form of a rule's predicate. It is declared
// here, not in package calc, so that model has no dependency on the calc
// engine implementation.
type CalcProgram interface {
	// Evaluate returns whether the predicate is true given the current
	// input vector and its bad (invalid) bitmap.
	Evaluate(inputs [MaxInputs]float64, bad uint16) (bool, error)
}

// ASG is an Access Security Group: the unit of policy attachment.
type ASG struct {
	Name    string
	Rules   []*Rule
	Inputs  []*InputBinding
	Members []*Member

	// Inputs state, dense vector indexed by InputBinding.Index.
	InputValues [MaxInputs]float64
	InputBad    uint16 // bit i set => input i is invalid
	InputChg    uint16 // bit i set => input i changed since last recompute

	// RuleResults holds the last-computed boolean outcome of each rule's
	// calc predicate, parallel to Rules, filled in by the evaluator's
	// RecomputeRules/Recompute.
	RuleResults []bool
}

// Member is a caller-owned handle bound to exactly one ASG.
type Member struct {
	ASGName string // raw name as supplied by the caller; kept for re-link on reload
	ASG     *ASG
	Payload any
	Clients []*Client
}

// Identity is a client's caller-supplied identity. All strings are
// borrowed from the caller and must outlive the Client.
type Identity struct {
	User      string
	Host      string
	Method    string
	Authority string
	IsTLS     TLSState
	AccessLevel int
}

// TrapMask is the per-client audit marking mask.
type TrapMask uint8

const TrapWriteBit TrapMask = 1

// Callback is invoked when a client's effective access or trap mask
// changes (a COAR — Change Of Access Rights — notification).
type Callback func(c *Client, oldAccess, newAccess Access)

// Client is bound to a Member and carries derived access state.
type Client struct {
	Member   *Member
	Identity Identity
	Access   Access
	TrapMask TrapMask
	Callback Callback
	Payload  any
	Removed  bool // set true by RemoveClient; suppresses any still-queued COAR delivery

	// cbMu guards Callback and Removed against the notifier, which reads
	// both from a goroutine that no longer holds the policy lock (see
	// notify.Dispatcher.Flush). Every write to either field goes through
	// SetCallback/MarkRemoved; every cross-goroutine read goes through
	// SnapshotCallback.
	cbMu sync.Mutex
}

// SetCallback replaces the client's COAR callback. Call this instead of
// assigning Callback directly whenever the client may be concurrently
// inspected by a notifier flush.
func (c *Client) SetCallback(cb Callback) {
	c.cbMu.Lock()
	c.Callback = cb
	c.cbMu.Unlock()
}

// MarkRemoved sets Removed. Call this instead of assigning Removed
// directly whenever the client may be concurrently inspected by a
// notifier flush.
func (c *Client) MarkRemoved() {
	c.cbMu.Lock()
	c.Removed = true
	c.cbMu.Unlock()
}

// SnapshotCallback returns the client's current callback and removed
// state as of the call, synchronized against SetCallback/MarkRemoved.
func (c *Client) SnapshotCallback() (cb Callback, removed bool) {
	c.cbMu.Lock()
	cb, removed = c.Callback, c.Removed
	c.cbMu.Unlock()
	return cb, removed
}

// Policy is the full in-memory policy model produced by the parser.
type Policy struct {
	UAGs     map[string]*UAG
	HAGs     map[string]*HAG
	ASGs     map[string]*ASG
	ASGOrder []string // declaration order, for dump and deterministic iteration

	HostMode HostMode
}

// NewPolicy returns an empty policy with no UAGs, HAGs or ASGs. It does
// not add a DEFAULT ASG; EnsureDefault does that once parsing is done.
func NewPolicy() *Policy {
	p := &Policy{
		UAGs: make(map[string]*UAG),
		HAGs: make(map[string]*HAG),
		ASGs: make(map[string]*ASG),
	}
	return p
}

// EnsureDefault synthesizes a DEFAULT ASG with a single RULE(0, NONE) if
// one is not already present.
func (p *Policy) EnsureDefault() {
	if _, ok := p.ASGs["DEFAULT"]; ok {
		return
	}
	p.ASGs["DEFAULT"] = &ASG{
		Name:  "DEFAULT",
		Rules: []*Rule{{Access: AccessNone, Level: 0}},
	}
	p.ASGOrder = append(p.ASGOrder, "DEFAULT")
}
