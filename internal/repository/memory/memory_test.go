package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invite-tracker-backend/internal/domain"
	"invite-tracker-backend/internal/repository"
)

func TestStore_LoadSave(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, err := s.Load(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	acct := domain.NewAccount(1, "Abebe", time.Now())
	acct.InviteCount = 3
	require.NoError(t, s.Save(ctx, acct))

	// mutations after Save must not leak into the store
	acct.InviteCount = 99

	got, err := s.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, got.InviteCount)
	assert.Equal(t, "Abebe", got.DisplayName)
}

func TestStore_SaveRejectsInvalidAccount(t *testing.T) {
	s := NewStore()
	acct := domain.NewAccount(1, "x", time.Now())
	acct.InviteCount = -1
	assert.ErrorIs(t, s.Save(context.Background(), acct), domain.ErrInvalidAccount)
}

func TestStore_RecordJoin(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	join := domain.ProcessedJoin{ChatID: 10, JoineeID: 55, InviterID: 1, ProcessedAt: time.Now()}
	acct := domain.NewAccount(1, "A", time.Now())
	acct.InviteCount = 1

	require.NoError(t, s.RecordJoin(ctx, join, acct))

	processed, err := s.IsProcessed(ctx, 10, 55)
	require.NoError(t, err)
	assert.True(t, processed)

	t.Run("Duplicate leaves account untouched", func(t *testing.T) {
		again := acct.Clone()
		again.InviteCount = 2
		err := s.RecordJoin(ctx, join, again)
		assert.ErrorIs(t, err, repository.ErrAlreadyProcessed)

		got, err := s.Load(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, got.InviteCount)
	})
}

func TestStore_ResetChat(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.MarkProcessed(ctx, domain.ProcessedJoin{ChatID: 10, JoineeID: 1}))
	require.NoError(t, s.MarkProcessed(ctx, domain.ProcessedJoin{ChatID: 10, JoineeID: 2}))
	require.NoError(t, s.MarkProcessed(ctx, domain.ProcessedJoin{ChatID: 11, JoineeID: 1}))

	removed, err := s.ResetChat(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	processed, _ := s.IsProcessed(ctx, 10, 1)
	assert.False(t, processed)
	processed, _ = s.IsProcessed(ctx, 11, 1)
	assert.True(t, processed)
}

func TestStore_ListSorted(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	for _, id := range []int64{3, 1, 2} {
		require.NoError(t, s.Save(ctx, domain.NewAccount(id, "", time.Now())))
	}
	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{list[0].MemberID, list[1].MemberID, list[2].MemberID})
}
