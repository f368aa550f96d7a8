package models

import dErrors "bankops/pkg/domain-errors"

// AccountStatus is the maker-checker lifecycle state of an account.
//
// Allowed order:
//
//	PENDING → AUTHORIZED → UNSETTLED → REGISTERED
//
// with APPROVED reachable only from AUTHORIZED, REJECTED reachable from
// PENDING or AUTHORIZED, and AUTHORIZED → PENDING as reverse authorization.
// APPROVED, REGISTERED and REJECTED are terminal.
type AccountStatus string

const (
	StatusPending    AccountStatus = "PENDING"
	StatusAuthorized AccountStatus = "AUTHORIZED"
	StatusApproved   AccountStatus = "APPROVED"
	StatusUnsettled  AccountStatus = "UNSETTLED"
	StatusRegistered AccountStatus = "REGISTERED"
	StatusRejected   AccountStatus = "REJECTED"
)

// transitions is the single source of truth for the status graph. Policy and
// service checks both derive from it; nothing else encodes edges.
var transitions = map[AccountStatus]map[AccountStatus]bool{
	StatusPending: {
		StatusAuthorized: true,
		StatusRejected:   true,
	},
	StatusAuthorized: {
		StatusPending:   true, // reverse authorization
		StatusApproved:  true,
		StatusUnsettled: true,
		StatusRejected:  true,
	},
	StatusUnsettled: {
		StatusRegistered: true,
	},
	StatusApproved:   {},
	StatusRegistered: {},
	StatusRejected:   {},
}

// ParseAccountStatus constructs an AccountStatus from external input.
func ParseAccountStatus(s string) (AccountStatus, error) {
	st := AccountStatus(s)
	if _, ok := transitions[st]; !ok {
		return "", dErrors.Newf(dErrors.CodeInvalidArgument, "unknown account status %q", s)
	}
	return st, nil
}

// CanTransitionTo reports whether the directed edge s → target exists in the
// status graph. Self-transitions are never valid.
func (s AccountStatus) CanTransitionTo(target AccountStatus) bool {
	return transitions[s][target]
}

// IsTerminal reports whether no further transition is permitted.
func (s AccountStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

func (s AccountStatus) String() string { return string(s) }
