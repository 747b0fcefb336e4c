package service

import (
	"context"

	"invite-tracker-backend/internal/domain"
	"invite-tracker-backend/internal/repository"
)

// MembershipEventFilter decides whether a join observation is an attributable,
// first-time invite. It never writes; the accepted pair is recorded together
// with the inviter's increment by InviteLedger.RecordJoin.
type MembershipEventFilter struct {
	joins repository.JoinRepository
}

func NewMembershipEventFilter(joins repository.JoinRepository) *MembershipEventFilter {
	return &MembershipEventFilter{joins: joins}
}

func (f *MembershipEventFilter) Evaluate(ctx context.Context, obs domain.JoinObservation) (domain.JoinDecision, error) {
	if obs.ActorID == nil || *obs.ActorID == 0 {
		return domain.Rejected(domain.RejectNoAttributableInviter), nil
	}
	if *obs.ActorID == obs.JoineeID {
		return domain.Rejected(domain.RejectSelfJoin), nil
	}

	processed, err := f.joins.IsProcessed(ctx, obs.ChatID, obs.JoineeID)
	if err != nil {
		return domain.JoinDecision{}, storageError("check processed join", err)
	}
	if processed {
		return domain.Rejected(domain.RejectDuplicateJoin), nil
	}
	return domain.Accepted(*obs.ActorID), nil
}
