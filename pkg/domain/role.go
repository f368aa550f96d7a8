package domain

import dErrors "bankops/pkg/domain-errors"

// Role is the actor role carried on every command. Role membership is
// supplied by the surrounding authentication collaborator and trusted as-is
// by the engine.
//
// Usage: construct via ParseRole at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type Role string

const (
	// RoleAccountCreator is the maker: onboards accounts, submits them for
	// authorization, and may reverse an authorization back to pending.
	RoleAccountCreator Role = "account-creator"
	// RoleAccountApprover is the checker: approves, rejects, and settles
	// authorized accounts.
	RoleAccountApprover Role = "account-approver"
	// RoleKYCReviewer drives identity harmonization: initiates requests,
	// reviews merge/reject decisions, and may cancel in-flight requests.
	RoleKYCReviewer Role = "kyc-reviewer"
)

// validRoles is the single source of truth for the fixed role set.
var validRoles = map[Role]bool{
	RoleAccountCreator:  true,
	RoleAccountApprover: true,
	RoleKYCReviewer:     true,
}

// ParseRole constructs a Role from external input.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidArgument, "unknown role %q", s)
	}
	return r, nil
}

// IsValid checks whether the role is one of the supported values.
func (r Role) IsValid() bool {
	return validRoles[r]
}

// CanReviewHarmonization reports whether the role may initiate, review, or
// cancel harmonization requests.
func (r Role) CanReviewHarmonization() bool {
	return r == RoleKYCReviewer
}

// CanVerifyAccount reports whether the role may assign the account number
// and customer ID pair.
func (r Role) CanVerifyAccount() bool {
	return r == RoleAccountCreator || r == RoleAccountApprover
}

func (r Role) String() string { return string(r) }
