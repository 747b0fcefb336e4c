package postgres

import (
	"context"
	"database/sql"

	"invite-tracker-backend/internal/domain"
	"invite-tracker-backend/internal/repository"
)

type joinRepository struct {
	db *sql.DB
}

func NewJoinRepository(db *sql.DB) repository.JoinRepository {
	return &joinRepository{db: db}
}

func (r *joinRepository) IsProcessed(ctx context.Context, chatID, joineeID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM processed_joins WHERE chat_id = $1 AND joinee_id = $2)`
	err := r.db.QueryRowContext(ctx, query, chatID, joineeID).Scan(&exists)
	return exists, err
}

func (r *joinRepository) MarkProcessed(ctx context.Context, join domain.ProcessedJoin) error {
	_, err := insertProcessedJoin(ctx, r.db, join)
	return err
}

func (r *joinRepository) ResetChat(ctx context.Context, chatID int64) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM processed_joins WHERE chat_id = $1`, chatID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// insertProcessedJoin reports false when the pair was already present.
func insertProcessedJoin(ctx context.Context, db execer, join domain.ProcessedJoin) (bool, error) {
	query := `INSERT INTO processed_joins (chat_id, joinee_id, inviter_id, processed_on) 
	          VALUES ($1, $2, $3, $4) ON CONFLICT (chat_id, joinee_id) DO NOTHING`
	res, err := db.ExecContext(ctx, query, join.ChatID, join.JoineeID, join.InviterID, timestampOrNow(join.ProcessedAt))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
