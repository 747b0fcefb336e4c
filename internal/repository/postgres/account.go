package postgres

import (
	"context"
	"database/sql"
	"errors"

	"invite-tracker-backend/internal/domain"
	"invite-tracker-backend/internal/logger"
	"invite-tracker-backend/internal/repository"
)

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Load(ctx context.Context, memberID int64) (*domain.Account, error) {
	logger.EnterMethod("accountRepository.Load", "memberID", memberID)
	query := `SELECT member_id, display_name, invite_count, withdrawal_key, created_on, updated_on 
	          FROM invite_accounts WHERE member_id = $1`
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, memberID))
	if errors.Is(err, sql.ErrNoRows) {
		logger.ExitMethod("accountRepository.Load", "memberID", memberID, "found", false)
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		logger.ExitMethodWithError("accountRepository.Load", err, "memberID", memberID)
		return nil, err
	}
	logger.ExitMethod("accountRepository.Load", "memberID", memberID, "count", a.InviteCount)
	return a, nil
}

func (r *accountRepository) Save(ctx context.Context, a *domain.Account) error {
	logger.EnterMethod("accountRepository.Save", "memberID", a.MemberID, "count", a.InviteCount)
	if err := a.Validate(); err != nil {
		logger.ExitMethodWithError("accountRepository.Save", err, "memberID", a.MemberID)
		return err
	}
	if err := upsertAccount(ctx, r.db, a); err != nil {
		logger.ExitMethodWithError("accountRepository.Save", err, "memberID", a.MemberID)
		return err
	}
	logger.ExitMethod("accountRepository.Save", "memberID", a.MemberID)
	return nil
}

func (r *accountRepository) List(ctx context.Context) ([]domain.Account, error) {
	query := `SELECT member_id, display_name, invite_count, withdrawal_key, created_on, updated_on 
	          FROM invite_accounts ORDER BY member_id`
	logger.EnterMethod("accountRepository.List")
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.ExitMethodWithError("accountRepository.List", err)
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			logger.ExitMethodWithError("accountRepository.List", err)
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		logger.ExitMethodWithError("accountRepository.List", err)
		return nil, err
	}
	logger.ExitMethod("accountRepository.List", "count", len(accounts))
	return accounts, nil
}

// upsertAccount never lowers invite_count and never replaces an assigned key.
func upsertAccount(ctx context.Context, db execer, a *domain.Account) error {
	query := `INSERT INTO invite_accounts (member_id, display_name, invite_count, withdrawal_key, created_on, updated_on) 
	          VALUES ($1, $2, $3, $4, $5, $6)
	          ON CONFLICT (member_id) DO UPDATE SET 
	              display_name = EXCLUDED.display_name,
	              invite_count = GREATEST(invite_accounts.invite_count, EXCLUDED.invite_count),
	              withdrawal_key = COALESCE(invite_accounts.withdrawal_key, EXCLUDED.withdrawal_key),
	              updated_on = EXCLUDED.updated_on`
	_, err := db.ExecContext(ctx, query,
		a.MemberID,
		a.DisplayName,
		a.InviteCount,
		nullableKey(a.WithdrawalKey),
		timestampOrNow(a.CreatedAt),
		timestampOrNow(a.UpdatedAt),
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	a := &domain.Account{}
	var key sql.NullInt64
	if err := row.Scan(&a.MemberID, &a.DisplayName, &a.InviteCount, &key, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if key.Valid {
		k := int(key.Int64)
		a.WithdrawalKey = &k
	}
	return a, nil
}

func nullableKey(k *int) sql.NullInt64 {
	if k == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*k), Valid: true}
}
