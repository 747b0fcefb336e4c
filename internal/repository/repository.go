package repository

import (
	"context"
	"errors"

	"invite-tracker-backend/internal/domain"
)

// ErrAlreadyProcessed is returned by RecordJoin when the (chat, joinee) pair
// was recorded by another writer first.
var ErrAlreadyProcessed = errors.New("join already processed")

type AccountRepository interface {
	// Load returns domain.ErrAccountNotFound when the member has no account.
	Load(ctx context.Context, memberID int64) (*domain.Account, error)
	Save(ctx context.Context, account *domain.Account) error
	List(ctx context.Context) ([]domain.Account, error)
}

type JoinRepository interface {
	IsProcessed(ctx context.Context, chatID, joineeID int64) (bool, error)
	MarkProcessed(ctx context.Context, join domain.ProcessedJoin) error
	// ResetChat removes every marker for chatID and returns how many were removed.
	ResetChat(ctx context.Context, chatID int64) (int, error)
}

// Store is the full persistence surface used by the invite tracking service.
type Store interface {
	AccountRepository
	JoinRepository

	// RecordJoin persists the dedup marker and the credited account as one
	// write. It returns ErrAlreadyProcessed without writing anything when the
	// marker already exists.
	RecordJoin(ctx context.Context, join domain.ProcessedJoin, account *domain.Account) error
	Close() error
}
