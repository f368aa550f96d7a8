package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankops/internal/account/models"
	id "bankops/pkg/domain"
)

func accountIn(t *testing.T, status models.AccountStatus) *models.Account {
	t.Helper()
	a, err := models.NewAccount(id.NewAccountID(), models.TypeIndividual, "ETB", 0, models.Profile{}, time.Now())
	require.NoError(t, err)
	a.Status = status
	return a
}

// TestPolicyTable enumerates every (role, from, to) triple: the allowed set
// is exactly the maker-checker table, everything else is denied.
func TestPolicyTable(t *testing.T) {
	type triple struct {
		role     id.Role
		from, to models.AccountStatus
	}
	allowed := map[triple]bool{
		{id.RoleAccountCreator, models.StatusPending, models.StatusAuthorized}:    true,
		{id.RoleAccountCreator, models.StatusAuthorized, models.StatusPending}:    true,
		{id.RoleAccountApprover, models.StatusAuthorized, models.StatusApproved}:  true,
		{id.RoleAccountApprover, models.StatusAuthorized, models.StatusRejected}:  true,
		{id.RoleAccountApprover, models.StatusPending, models.StatusRejected}:     true,
		{id.RoleAccountApprover, models.StatusAuthorized, models.StatusUnsettled}: true,
		{id.RoleAccountApprover, models.StatusUnsettled, models.StatusRegistered}: true,
	}

	roles := []id.Role{id.RoleAccountCreator, id.RoleAccountApprover, id.RoleKYCReviewer}
	statuses := []models.AccountStatus{
		models.StatusPending, models.StatusAuthorized, models.StatusApproved,
		models.StatusUnsettled, models.StatusRegistered, models.StatusRejected,
	}

	for _, role := range roles {
		for _, from := range statuses {
			for _, to := range statuses {
				acct := accountIn(t, from)
				got := CanTransition(role, acct, to)
				want := allowed[triple{role, from, to}]
				assert.Equal(t, want, got, "role=%s %s → %s", role, from, to)
			}
		}
	}
}

// Maker-checker separation: the maker may not approve, the checker may not
// submit.
func TestMakerCheckerSeparation(t *testing.T) {
	assert.False(t, CanTransition(id.RoleAccountCreator, accountIn(t, models.StatusAuthorized), models.StatusApproved))
	assert.False(t, CanTransition(id.RoleAccountApprover, accountIn(t, models.StatusPending), models.StatusAuthorized))
}

// The policy derives from the account's persisted status only: an approver
// may not approve an account that has been reversed back to PENDING, even if
// the caller believes it is still AUTHORIZED.
func TestPolicyUsesPersistedStatus(t *testing.T) {
	acct := accountIn(t, models.StatusAuthorized)
	require.True(t, CanTransition(id.RoleAccountApprover, acct, models.StatusApproved))

	acct.ApplyTransition(models.StatusPending, "", time.Now())
	assert.False(t, CanTransition(id.RoleAccountApprover, acct, models.StatusApproved))
}
