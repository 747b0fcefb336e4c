package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invite-tracker-backend/internal/domain"
)

func TestRandomWithdrawalKey_InRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		k, err := RandomWithdrawalKey()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, k, domain.WithdrawalKeyMin)
		assert.LessOrEqual(t, k, domain.WithdrawalKeyMax)
	}
}

func TestWithdrawalKeyIssuer_GetOrIssueKey(t *testing.T) {
	policy := domain.MilestonePolicy{EligibilityThreshold: 4, ProgressInterval: 2, RewardPerInvite: 50}

	t.Run("Not eligible leaves account untouched", func(t *testing.T) {
		issuer := NewWithdrawalKeyIssuer(policy, sequenceKeys(123456))
		acct := domain.NewAccount(1, "B", time.Now())
		acct.InviteCount = 1

		res, err := issuer.GetOrIssueKey(acct)
		require.NoError(t, err)
		assert.Equal(t, domain.KeyNotEligible, res.Status)
		assert.Equal(t, 3, res.Remaining)
		assert.Nil(t, acct.WithdrawalKey)
	})

	t.Run("Issue then existing", func(t *testing.T) {
		issuer := NewWithdrawalKeyIssuer(policy, sequenceKeys(123456, 654321))
		acct := domain.NewAccount(1, "A", time.Now())
		acct.InviteCount = 4

		first, err := issuer.GetOrIssueKey(acct)
		require.NoError(t, err)
		assert.Equal(t, domain.KeyIssued, first.Status)
		assert.Equal(t, 123456, first.Key)

		second, err := issuer.GetOrIssueKey(acct)
		require.NoError(t, err)
		assert.Equal(t, domain.KeyExisting, second.Status)
		assert.Equal(t, 123456, second.Key)
	})

	t.Run("Generator failure", func(t *testing.T) {
		issuer := NewWithdrawalKeyIssuer(policy, func() (int, error) { return 0, errors.New("entropy") })
		acct := domain.NewAccount(1, "A", time.Now())
		acct.InviteCount = 4

		_, err := issuer.GetOrIssueKey(acct)
		assert.Error(t, err)
		assert.Nil(t, acct.WithdrawalKey)
	})

	t.Run("Out of range key rejected", func(t *testing.T) {
		issuer := NewWithdrawalKeyIssuer(policy, sequenceKeys(42))
		acct := domain.NewAccount(1, "A", time.Now())
		acct.InviteCount = 4

		_, err := issuer.GetOrIssueKey(acct)
		assert.Error(t, err)
		assert.Nil(t, acct.WithdrawalKey)
	})
}
