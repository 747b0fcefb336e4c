package service

import (
	"context"
	"errors"
	"time"

	"invite-tracker-backend/internal/domain"
	"invite-tracker-backend/internal/logger"
	"invite-tracker-backend/internal/repository"
)

// IncrementResult reports the count before and after one increment.
type IncrementResult struct {
	Account  *domain.Account
	OldCount int
	NewCount int
}

// InviteLedger owns every read-modify-write of an account. Operations on the
// same member are serialized; different members proceed in parallel.
type InviteLedger struct {
	store repository.Store
	locks *keyedMutex[int64]
	now   func() time.Time
}

func NewInviteLedger(store repository.Store) *InviteLedger {
	return &InviteLedger{
		store: store,
		locks: newKeyedMutex[int64](),
		now:   time.Now,
	}
}

// Increment adds one invite to memberID, creating the account if needed.
func (l *InviteLedger) Increment(ctx context.Context, memberID int64, displayName string) (*IncrementResult, error) {
	return l.increment(ctx, memberID, displayName, func(a *domain.Account) error {
		return l.store.Save(ctx, a)
	})
}

// RecordJoin increments join.InviterID and stores the dedup marker in the same
// write. It returns repository.ErrAlreadyProcessed if the marker exists.
func (l *InviteLedger) RecordJoin(ctx context.Context, join domain.ProcessedJoin, displayName string) (*IncrementResult, error) {
	if join.ProcessedAt.IsZero() {
		join.ProcessedAt = l.now().UTC()
	}
	return l.increment(ctx, join.InviterID, displayName, func(a *domain.Account) error {
		return l.store.RecordJoin(ctx, join, a)
	})
}

func (l *InviteLedger) increment(ctx context.Context, memberID int64, displayName string, commit func(*domain.Account) error) (*IncrementResult, error) {
	logger.EnterMethod("InviteLedger.increment", "memberID", memberID)
	unlock := l.locks.Lock(memberID)
	defer unlock()

	acct, err := l.loadOrNew(ctx, memberID, displayName)
	if err != nil {
		logger.ExitMethodWithError("InviteLedger.increment", err, "memberID", memberID)
		return nil, err
	}

	oldCount := acct.InviteCount
	acct.InviteCount++
	if displayName != "" {
		acct.DisplayName = displayName
	}
	acct.UpdatedAt = l.now().UTC()

	if err := commit(acct); err != nil {
		if errors.Is(err, repository.ErrAlreadyProcessed) {
			logger.ExitMethod("InviteLedger.increment", "memberID", memberID, "duplicate", true)
			return nil, err
		}
		err = storageError("commit increment", err)
		logger.ExitMethodWithError("InviteLedger.increment", err, "memberID", memberID)
		return nil, err
	}

	logger.WithMember(memberID).Debug("Invite count incremented", "old_count", oldCount, "new_count", acct.InviteCount)
	logger.ExitMethod("InviteLedger.increment", "memberID", memberID, "count", acct.InviteCount)
	return &IncrementResult{Account: acct, OldCount: oldCount, NewCount: acct.InviteCount}, nil
}

// GetAccount returns domain.ErrAccountNotFound for unknown members.
func (l *InviteLedger) GetAccount(ctx context.Context, memberID int64) (*domain.Account, error) {
	unlock := l.locks.Lock(memberID)
	defer unlock()

	acct, err := l.store.Load(ctx, memberID)
	if err != nil {
		return nil, storageError("load account", err)
	}
	return acct, nil
}

// Touch returns the member's account, creating an empty one on first sight.
// A non-empty displayName replaces the stored one.
func (l *InviteLedger) Touch(ctx context.Context, memberID int64, displayName string) (*domain.Account, error) {
	logger.EnterMethod("InviteLedger.Touch", "memberID", memberID)
	unlock := l.locks.Lock(memberID)
	defer unlock()

	acct, err := l.store.Load(ctx, memberID)
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		acct = domain.NewAccount(memberID, displayName, l.now().UTC())
		logger.WithMember(memberID).Debug("Creating empty account on first query")
	case err != nil:
		err = storageError("load account", err)
		logger.ExitMethodWithError("InviteLedger.Touch", err, "memberID", memberID)
		return nil, err
	case displayName == "" || displayName == acct.DisplayName:
		logger.ExitMethod("InviteLedger.Touch", "memberID", memberID, "count", acct.InviteCount)
		return acct, nil
	default:
		acct.DisplayName = displayName
		acct.UpdatedAt = l.now().UTC()
	}

	if err := l.store.Save(ctx, acct); err != nil {
		err = storageError("save account", err)
		logger.ExitMethodWithError("InviteLedger.Touch", err, "memberID", memberID)
		return nil, err
	}
	logger.ExitMethod("InviteLedger.Touch", "memberID", memberID, "count", acct.InviteCount)
	return acct, nil
}

// Update runs fn on an existing account under the member lock and saves the
// account when fn reports a change. fn must not touch InviteCount. After a
// save the account is reloaded, so the result reflects what the store kept
// when another writer got there first.
func (l *InviteLedger) Update(ctx context.Context, memberID int64, fn func(*domain.Account) (bool, error)) (*domain.Account, error) {
	logger.EnterMethod("InviteLedger.Update", "memberID", memberID)
	unlock := l.locks.Lock(memberID)
	defer unlock()

	acct, err := l.store.Load(ctx, memberID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		logger.ExitMethod("InviteLedger.Update", "memberID", memberID, "found", false)
		return nil, storageError("load account", err)
	}
	if err != nil {
		err = storageError("load account", err)
		logger.ExitMethodWithError("InviteLedger.Update", err, "memberID", memberID)
		return nil, err
	}
	count := acct.InviteCount
	changed, err := fn(acct)
	if err != nil {
		logger.ExitMethodWithError("InviteLedger.Update", err, "memberID", memberID)
		return nil, err
	}
	acct.InviteCount = count
	if !changed {
		logger.ExitMethod("InviteLedger.Update", "memberID", memberID, "changed", false)
		return acct, nil
	}
	if err := l.store.Save(ctx, acct); err != nil {
		err = storageError("save account", err)
		logger.ExitMethodWithError("InviteLedger.Update", err, "memberID", memberID)
		return nil, err
	}

	stored, err := l.store.Load(ctx, memberID)
	if err != nil {
		err = storageError("reload account", err)
		logger.ExitMethodWithError("InviteLedger.Update", err, "memberID", memberID)
		return nil, err
	}
	logger.ExitMethod("InviteLedger.Update", "memberID", memberID, "changed", true)
	return stored, nil
}

// List returns a point-in-time copy of every account.
func (l *InviteLedger) List(ctx context.Context) ([]domain.Account, error) {
	accounts, err := l.store.List(ctx)
	if err != nil {
		return nil, storageError("list accounts", err)
	}
	return accounts, nil
}

func (l *InviteLedger) loadOrNew(ctx context.Context, memberID int64, displayName string) (*domain.Account, error) {
	acct, err := l.store.Load(ctx, memberID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return domain.NewAccount(memberID, displayName, l.now().UTC()), nil
	}
	if err != nil {
		return nil, storageError("load account", err)
	}
	return acct, nil
}
