// Package policy is the single role-authorization table for account
// lifecycle transitions. It replaces per-screen role conditionals with one
// data-driven check: every allowed (role, from, to) triple is listed below,
// and anything absent is denied.
package policy

import (
	"bankops/internal/account/models"
	id "bankops/pkg/domain"
)

type edge struct {
	from, to models.AccountStatus
}

// allowedEdges maps each role to the transitions it may request. The table is
// derived from the account's current persisted status only; callers must
// never evaluate it against client-supplied prior state.
var allowedEdges = map[id.Role]map[edge]bool{
	id.RoleAccountCreator: {
		{models.StatusPending, models.StatusAuthorized}: true, // submit
		{models.StatusAuthorized, models.StatusPending}: true, // reverse authorization
	},
	id.RoleAccountApprover: {
		{models.StatusAuthorized, models.StatusApproved}:  true,
		{models.StatusAuthorized, models.StatusRejected}:  true,
		{models.StatusPending, models.StatusRejected}:     true,
		{models.StatusAuthorized, models.StatusUnsettled}: true,
		{models.StatusUnsettled, models.StatusRegistered}: true,
	},
}

// CanTransition reports whether the actor role may move the account from its
// current status to target. Pure and deterministic; no side effects.
//
// The UNSETTLED verification precondition is deliberately not checked here:
// it fails with PreconditionFailed regardless of role, so the lifecycle
// service checks it after this gate.
func CanTransition(role id.Role, account *models.Account, target models.AccountStatus) bool {
	return allowedEdges[role][edge{from: account.Status, to: target}]
}
