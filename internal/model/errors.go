package model

import "errors"

// Status sentinel errors, one per code in the access-control error
// taxonomy. Callers compare with errors.Is; wrapped errors (e.g. BadConfig
// wrapping a *parser.SyntaxError) still satisfy errors.Is against these.
var (
	ErrClientsExist  = errors.New("accesssecurity: mutation forbidden while clients are live")
	ErrNoUag         = errors.New("accesssecurity: reference to undefined user access group")
	ErrNoHag         = errors.New("accesssecurity: reference to undefined host access group")
	ErrNoAccess      = errors.New("accesssecurity: access refused")
	ErrNoModify      = errors.New("accesssecurity: modification refused")
	ErrBadConfig     = errors.New("accesssecurity: bad policy configuration")
	ErrBadCalc       = errors.New("accesssecurity: calc predicate compile failure")
	ErrDupAsg        = errors.New("accesssecurity: duplicate ASG name")
	ErrDupAuthority  = errors.New("accesssecurity: duplicate authority within rule")
	ErrDupMethod     = errors.New("accesssecurity: duplicate method within rule")
	ErrInitFailed    = errors.New("accesssecurity: policy initialization failed")
	ErrNotActive     = errors.New("accesssecurity: subsystem not active")
	ErrBadMember     = errors.New("accesssecurity: handle does not refer to a live member")
	ErrBadClient     = errors.New("accesssecurity: handle does not refer to a live client")
	ErrBadAsg        = errors.New("accesssecurity: handle does not refer to a live ASG")
	ErrNoMemory      = errors.New("accesssecurity: allocation failure")
)
