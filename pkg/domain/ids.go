// Package domain holds the typed identifiers and role values shared across
// the workflow engine. Typed IDs prevent an account ID from being passed
// where a harmonization request ID is expected; the compiler enforces the
// distinction.
package domain

import (
	"github.com/google/uuid"

	dErrors "bankops/pkg/domain-errors"
)

// AccountID identifies a bank account.
type AccountID uuid.UUID

// HarmonizationID identifies an identity-harmonization request.
type HarmonizationID uuid.UUID

// ActorID identifies the back-office user performing an operation.
type ActorID uuid.UUID

func (id AccountID) String() string       { return uuid.UUID(id).String() }
func (id HarmonizationID) String() string { return uuid.UUID(id).String() }
func (id ActorID) String() string         { return uuid.UUID(id).String() }

func (id AccountID) IsZero() bool       { return uuid.UUID(id) == uuid.Nil }
func (id HarmonizationID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id ActorID) IsZero() bool         { return uuid.UUID(id) == uuid.Nil }

// NewAccountID mints a fresh account identifier.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

// NewHarmonizationID mints a fresh harmonization request identifier.
func NewHarmonizationID() HarmonizationID { return HarmonizationID(uuid.New()) }

// NewActorID mints a fresh actor identity.
func NewActorID() ActorID { return ActorID(uuid.New()) }

// ParseAccountID constructs an AccountID from external input.
//
// Usage: call from handlers when parsing path/body parameters; direct casting
// bypasses validation.
func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s, "account id")
	if err != nil {
		return AccountID{}, err
	}
	return AccountID(u), nil
}

// ParseHarmonizationID constructs a HarmonizationID from external input.
func ParseHarmonizationID(s string) (HarmonizationID, error) {
	u, err := parseUUID(s, "harmonization id")
	if err != nil {
		return HarmonizationID{}, err
	}
	return HarmonizationID(u), nil
}

// ParseActorID constructs an ActorID from external input (JWT subject).
func ParseActorID(s string) (ActorID, error) {
	u, err := parseUUID(s, "actor id")
	if err != nil {
		return ActorID{}, err
	}
	return ActorID(u), nil
}

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidArgument, "%s cannot be empty", what)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidArgument, "invalid %s", what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidArgument, "%s cannot be the nil UUID", what)
	}
	return u, nil
}
