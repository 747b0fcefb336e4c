package service

import (
	"context"

	"invite-tracker-backend/internal/domain"
)

// InviteTrackingService is the entry point the chat-platform collaborator calls.
// Expected rejections are reported in the returned values; only storage and
// validation faults are returned as errors.
type InviteTrackingService interface {
	OnJoin(ctx context.Context, obs domain.JoinObservation) (*domain.JoinEffect, error)
	OnJoinBatch(ctx context.Context, chatID int64, joineeIDs []int64, actorID *int64, actorDisplayName string) ([]domain.JoinEffect, error)
	CheckProgress(ctx context.Context, memberID int64, displayName string) (*domain.ProgressView, error)
	RequestKey(ctx context.Context, memberID int64) (*domain.KeyResult, error)
	ResetChat(ctx context.Context, chatID int64) (int, error)
	Stats(ctx context.Context) (*domain.LedgerStats, error)
	Policy() domain.MilestonePolicy
}

// NotificationDispatcher delivers intents to the presentation layer. A
// dispatch failure never rolls back the ledger.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, intent domain.NotificationIntent) error
}
