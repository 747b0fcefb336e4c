package service

import (
	"context"
	"errors"
	"fmt"

	"invite-tracker-backend/internal/domain"
	"invite-tracker-backend/internal/logger"
	"invite-tracker-backend/internal/repository"
)

const serviceName = "invite-tracking"

type inviteTrackingService struct {
	policy    domain.MilestonePolicy
	filter    *MembershipEventFilter
	ledger    *InviteLedger
	issuer    *WithdrawalKeyIssuer
	store     repository.Store
	joinLocks *keyedMutex[domain.JoinKey]
}

// NewInviteTrackingService fails when policy is invalid. A nil keys uses
// RandomWithdrawalKey.
func NewInviteTrackingService(store repository.Store, policy domain.MilestonePolicy, keys KeyGenerator) (InviteTrackingService, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("invite tracking service requires a store")
	}
	return &inviteTrackingService{
		policy:    policy,
		filter:    NewMembershipEventFilter(store),
		ledger:    NewInviteLedger(store),
		issuer:    NewWithdrawalKeyIssuer(policy, keys),
		store:     store,
		joinLocks: newKeyedMutex[domain.JoinKey](),
	}, nil
}

func (s *inviteTrackingService) Policy() domain.MilestonePolicy {
	return s.policy
}

func (s *inviteTrackingService) OnJoin(ctx context.Context, obs domain.JoinObservation) (*domain.JoinEffect, error) {
	logger.EnterMethod("inviteTrackingService.OnJoin", "chatID", obs.ChatID, "joineeID", obs.JoineeID)
	if err := obs.Validate(); err != nil {
		logger.ExitMethodWithError("inviteTrackingService.OnJoin", err, "chatID", obs.ChatID)
		return nil, err
	}

	// decide, mark and increment form one critical section per (chat, joinee)
	unlock := s.joinLocks.Lock(obs.Key())
	defer unlock()

	effect := &domain.JoinEffect{JoineeID: obs.JoineeID}

	decision, err := s.filter.Evaluate(ctx, obs)
	if err != nil {
		logger.ExitMethodWithError("inviteTrackingService.OnJoin", err, "chatID", obs.ChatID, "joineeID", obs.JoineeID)
		return nil, err
	}
	effect.Decision = decision
	if !decision.Accepted {
		logger.DebugContext(ctx, "Join rejected", "chat_id", obs.ChatID, "joinee_id", obs.JoineeID, "reason", decision.Reason)
		logger.ExitMethod("inviteTrackingService.OnJoin", "chatID", obs.ChatID, "accepted", false)
		return effect, nil
	}

	join := domain.ProcessedJoin{
		ChatID:    obs.ChatID,
		JoineeID:  obs.JoineeID,
		InviterID: decision.InviterID,
	}
	res, err := s.ledger.RecordJoin(ctx, join, obs.ActorDisplayName)
	if errors.Is(err, repository.ErrAlreadyProcessed) {
		// another instance recorded the pair between the check and the write
		effect.Decision = domain.Rejected(domain.RejectDuplicateJoin)
		logger.DebugContext(ctx, "Join rejected", "chat_id", obs.ChatID, "joinee_id", obs.JoineeID, "reason", effect.Decision.Reason)
		logger.ExitMethod("inviteTrackingService.OnJoin", "chatID", obs.ChatID, "accepted", false)
		return effect, nil
	}
	if err != nil {
		logger.ExitMethodWithError("inviteTrackingService.OnJoin", err, "chatID", obs.ChatID, "joineeID", obs.JoineeID)
		return nil, err
	}

	effect.OldCount = res.OldCount
	effect.NewCount = res.NewCount
	if kind := EvaluateMilestone(res.OldCount, res.NewCount, s.policy); kind != domain.NotificationNone {
		effect.Intent = domain.NewNotificationIntent(kind, obs.ChatID, res.Account, s.policy)
	}

	logger.WithService(serviceName).InfoContext(ctx, "Invite counted",
		"chat_id", obs.ChatID,
		"joinee_id", obs.JoineeID,
		"inviter_id", decision.InviterID,
		"invite_count", res.NewCount,
	)
	logger.ExitMethod("inviteTrackingService.OnJoin", "chatID", obs.ChatID, "accepted", true)
	return effect, nil
}

func (s *inviteTrackingService) OnJoinBatch(ctx context.Context, chatID int64, joineeIDs []int64, actorID *int64, actorDisplayName string) ([]domain.JoinEffect, error) {
	effects := make([]domain.JoinEffect, 0, len(joineeIDs))
	for _, joineeID := range joineeIDs {
		effect, err := s.OnJoin(ctx, domain.JoinObservation{
			ChatID:           chatID,
			JoineeID:         joineeID,
			ActorID:          actorID,
			ActorDisplayName: actorDisplayName,
		})
		if err != nil {
			return effects, fmt.Errorf("joinee %d: %w", joineeID, err)
		}
		effects = append(effects, *effect)
	}
	return effects, nil
}

func (s *inviteTrackingService) CheckProgress(ctx context.Context, memberID int64, displayName string) (*domain.ProgressView, error) {
	acct, err := s.ledger.Touch(ctx, memberID, displayName)
	if err != nil {
		return nil, err
	}
	return &domain.ProgressView{
		MemberID:    acct.MemberID,
		DisplayName: acct.DisplayName,
		InviteCount: acct.InviteCount,
		Remaining:   s.policy.Remaining(acct.InviteCount),
		Balance:     s.policy.Balance(acct.InviteCount),
		Eligible:    s.policy.Eligible(acct.InviteCount),
	}, nil
}

func (s *inviteTrackingService) RequestKey(ctx context.Context, memberID int64) (*domain.KeyResult, error) {
	logger.EnterMethod("inviteTrackingService.RequestKey", "memberID", memberID)
	var result domain.KeyResult
	stored, err := s.ledger.Update(ctx, memberID, func(a *domain.Account) (bool, error) {
		res, err := s.issuer.GetOrIssueKey(a)
		if err != nil {
			return false, err
		}
		result = res
		return res.Status == domain.KeyIssued, nil
	})
	if errors.Is(err, domain.ErrAccountNotFound) {
		logger.ExitMethod("inviteTrackingService.RequestKey", "memberID", memberID, "status", domain.KeyNotEligible)
		return &domain.KeyResult{
			Status:    domain.KeyNotEligible,
			Remaining: s.policy.Remaining(0),
		}, nil
	}
	if err != nil {
		logger.ExitMethodWithError("inviteTrackingService.RequestKey", err, "memberID", memberID)
		return nil, err
	}

	// the store never replaces an assigned key, so a key written by another
	// writer wins over the one drawn here
	if result.Status == domain.KeyIssued && stored.WithdrawalKey != nil && *stored.WithdrawalKey != result.Key {
		logger.WarnContext(ctx, "Withdrawal key already assigned by another writer", "member_id", memberID)
		result.Status = domain.KeyExisting
		result.Key = *stored.WithdrawalKey
	}
	if result.Status == domain.KeyIssued {
		logger.WithService(serviceName).InfoContext(ctx, "Withdrawal key issued", "member_id", memberID)
	}
	logger.ExitMethod("inviteTrackingService.RequestKey", "memberID", memberID, "status", result.Status)
	return &result, nil
}

func (s *inviteTrackingService) ResetChat(ctx context.Context, chatID int64) (int, error) {
	removed, err := s.store.ResetChat(ctx, chatID)
	if err != nil {
		return 0, storageError("reset chat", err)
	}
	logger.Info("Chat join markers reset", "chat_id", chatID, "removed", removed)
	return removed, nil
}

func (s *inviteTrackingService) Stats(ctx context.Context) (*domain.LedgerStats, error) {
	accounts, err := s.ledger.List(ctx)
	if err != nil {
		return nil, err
	}
	stats := &domain.LedgerStats{Accounts: len(accounts)}
	for _, a := range accounts {
		stats.TotalInvites += a.InviteCount
		if s.policy.Eligible(a.InviteCount) {
			stats.EligibleAccounts++
		}
		if a.HasKey() {
			stats.KeysIssued++
		}
	}
	return stats, nil
}
