package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"invite-tracker-backend/internal/domain"
	"invite-tracker-backend/internal/logger"
	"invite-tracker-backend/internal/repository"
)

const backendName = "postgres"

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Store struct {
	db *sql.DB
	repository.AccountRepository
	repository.JoinRepository
}

var _ repository.Store = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                db,
		AccountRepository: NewAccountRepository(db),
		JoinRepository:    NewJoinRepository(db),
	}
}

// EnsureSchema creates the ledger tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	logger.StorageCall(backendName, "ensure_schema")
	_, err := s.db.ExecContext(ctx, Schema)
	logger.StorageResult(backendName, "ensure_schema", err)
	return err
}

func (s *Store) RecordJoin(ctx context.Context, join domain.ProcessedJoin, account *domain.Account) error {
	if err := account.Validate(); err != nil {
		return err
	}
	logger.StorageCall(backendName, "record_join", "chat_id", join.ChatID, "joinee_id", join.JoineeID, "member_id", account.MemberID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record_join: %w", err)
	}
	defer tx.Rollback()

	inserted, err := insertProcessedJoin(ctx, tx, join)
	if err != nil {
		logger.StorageResult(backendName, "record_join", err)
		return err
	}
	if !inserted {
		return repository.ErrAlreadyProcessed
	}
	if err := upsertAccount(ctx, tx, account); err != nil {
		logger.StorageResult(backendName, "record_join", err)
		return err
	}
	err = tx.Commit()
	logger.StorageResult(backendName, "record_join", err)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func timestampOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
