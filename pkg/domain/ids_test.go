package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "bankops/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// IDs must be valid, non-empty, non-nil UUIDs.
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseAccountID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseAccountID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseHarmonizationID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseAccountID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, AccountID(valid), id)
	})
}

func TestParseRole(t *testing.T) {
	t.Run("accepts known roles", func(t *testing.T) {
		for _, s := range []string{"account-creator", "account-approver", "kyc-reviewer"} {
			r, err := ParseRole(s)
			require.NoError(t, err)
			assert.True(t, r.IsValid())
		}
	})

	t.Run("rejects empty and unknown", func(t *testing.T) {
		for _, s := range []string{"", "teller", "ACCOUNT-CREATOR "} {
			_, err := ParseRole(s)
			require.Error(t, err, "input %q", s)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
		}
	})
}

func TestRoleCapabilities(t *testing.T) {
	assert.True(t, RoleKYCReviewer.CanReviewHarmonization())
	assert.False(t, RoleAccountCreator.CanReviewHarmonization())
	assert.False(t, RoleAccountApprover.CanReviewHarmonization())

	assert.True(t, RoleAccountCreator.CanVerifyAccount())
	assert.True(t, RoleAccountApprover.CanVerifyAccount())
	assert.False(t, RoleKYCReviewer.CanVerifyAccount())
}
