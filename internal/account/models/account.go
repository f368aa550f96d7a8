package models

import (
	"strings"
	"time"

	id "bankops/pkg/domain"
	dErrors "bankops/pkg/domain-errors"
)

// AccountType distinguishes the onboarding subtypes. The lifecycle rules are
// identical across subtypes; the type only affects reporting.
type AccountType string

const (
	TypeIndividual     AccountType = "individual"
	TypeJoint          AccountType = "joint"
	TypeOrganizational AccountType = "organizational"
)

var validAccountTypes = map[AccountType]bool{
	TypeIndividual:     true,
	TypeJoint:          true,
	TypeOrganizational: true,
}

// ParseAccountType constructs an AccountType from external input.
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(s)
	if !validAccountTypes[t] {
		return "", dErrors.Newf(dErrors.CodeInvalidArgument, "unknown account type %q", s)
	}
	return t, nil
}

// Profile holds the account's self-reported identity data. A harmonization
// MERGE overwrites these fields with the external source of truth; it never
// touches the account status.
type Profile struct {
	FullName    string `json:"full_name"`
	Gender      string `json:"gender"`
	BirthDate   string `json:"birth_date"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number"`
}

// Account is the aggregate the lifecycle state machine mutates.
//
// Invariants:
//   - Status transitions follow the graph in status.go only
//   - AccountNumber and CustomerID are both empty or both set: "verified" is
//     an atomic joint fact, never partial
//   - RejectionReason is set only when Status is REJECTED
//   - All mutations go through the Can/Apply pairs below, executed under the
//     store's per-account lock
type Account struct {
	ID              id.AccountID  `json:"id"`
	Type            AccountType   `json:"type"`
	Status          AccountStatus `json:"status"`
	AccountNumber   string        `json:"account_number,omitempty"`
	CustomerID      string        `json:"customer_id,omitempty"`
	Currency        string        `json:"currency"`
	InitialDeposit  int64         `json:"initial_deposit"` // minor units
	Profile         Profile       `json:"profile"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// NewAccount constructs a PENDING account. Account number and customer ID
// stay unassigned until verification.
func NewAccount(accountID id.AccountID, typ AccountType, currency string, initialDeposit int64, profile Profile, now time.Time) (*Account, error) {
	if !validAccountTypes[typ] {
		return nil, dErrors.Newf(dErrors.CodeInvalidArgument, "unknown account type %q", typ)
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "currency must be a 3-letter code")
	}
	if initialDeposit < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "initial deposit cannot be negative")
	}
	return &Account{
		ID:             accountID,
		Type:           typ,
		Status:         StatusPending,
		Currency:       currency,
		InitialDeposit: initialDeposit,
		Profile:        profile,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// IsVerified reports whether the joint fact holds: account number and
// customer ID were assigned together.
func (a *Account) IsVerified() bool {
	return a.AccountNumber != "" && a.CustomerID != ""
}

// CanTransition checks the status graph only. Role checks live in the policy
// package; the UNSETTLED verification precondition is checked separately so
// it surfaces as PreconditionFailed regardless of role.
func (a *Account) CanTransition(target AccountStatus) error {
	if !a.Status.CanTransitionTo(target) {
		return dErrors.Newf(dErrors.CodePreconditionFailed,
			"transition %s → %s is not permitted", a.Status, target)
	}
	return nil
}

// ApplyTransition moves the account to target. Call CanTransition (and the
// policy) first; this applies unconditionally.
func (a *Account) ApplyTransition(target AccountStatus, rejectionReason string, now time.Time) {
	a.Status = target
	if target == StatusRejected {
		a.RejectionReason = rejectionReason
	} else {
		a.RejectionReason = ""
	}
	a.UpdatedAt = now
}

// ApplyVerification assigns the account number and customer ID as one joint
// fact. Callers must check IsVerified first; verification is idempotent at
// the service layer.
func (a *Account) ApplyVerification(accountNumber, customerID string, now time.Time) {
	a.AccountNumber = accountNumber
	a.CustomerID = customerID
	a.UpdatedAt = now
}

// ApplyIdentity overwrites the self-reported profile with externally
// verified identity data. Status is untouched.
func (a *Account) ApplyIdentity(p Profile, now time.Time) {
	a.Profile = p
	a.UpdatedAt = now
}

// Validate checks the structural invariants. Stores call this on write so a
// bug elsewhere cannot persist a half-verified account.
func (a *Account) Validate() error {
	if (a.AccountNumber == "") != (a.CustomerID == "") {
		return dErrors.New(dErrors.CodePreconditionFailed,
			"account number and customer id must be assigned together")
	}
	if a.RejectionReason != "" && a.Status != StatusRejected {
		return dErrors.New(dErrors.CodePreconditionFailed,
			"rejection reason is only valid on rejected accounts")
	}
	return nil
}
