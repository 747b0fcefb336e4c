package firestore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"invite-tracker-backend/internal/domain"
	"invite-tracker-backend/internal/logger"
	"invite-tracker-backend/internal/repository"
)

const (
	backendName = "firestore"

	accountsCollection = "invite_accounts"
	joinsCollection    = "processed_joins"

	// deleteChunkSize stays below the 500 writes-per-transaction limit.
	deleteChunkSize = 400
)

var ErrClientNotConfigured = errors.New("firestore client is nil")

// Store keeps one document per account and one per processed join.
//
// Document layout:
//   - {prefix}invite_accounts/{memberId}: memberId, displayName, inviteCount, withdrawalKey, createdAt, updatedAt
//   - {prefix}processed_joins/{chatId}:{joineeId}: chatId, joineeId, inviterId, processedAt
type Store struct {
	Client *firestore.Client

	// CollectionPrefix lets several deployments share one project.
	CollectionPrefix string
}

var _ repository.Store = (*Store)(nil)

func NewStore(client *firestore.Client, prefix string) *Store {
	return &Store{Client: client, CollectionPrefix: prefix}
}

type accountDoc struct {
	MemberID      int64     `firestore:"memberId"`
	DisplayName   string    `firestore:"displayName"`
	InviteCount   int64     `firestore:"inviteCount"`
	WithdrawalKey *int64    `firestore:"withdrawalKey"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

type joinDoc struct {
	ChatID      int64     `firestore:"chatId"`
	JoineeID    int64     `firestore:"joineeId"`
	InviterID   int64     `firestore:"inviterId"`
	ProcessedAt time.Time `firestore:"processedAt"`
}

func (s *Store) accounts() *firestore.CollectionRef {
	return s.Client.Collection(s.CollectionPrefix + accountsCollection)
}

func (s *Store) joins() *firestore.CollectionRef {
	return s.Client.Collection(s.CollectionPrefix + joinsCollection)
}

func (s *Store) Load(ctx context.Context, memberID int64) (*domain.Account, error) {
	if s.Client == nil {
		return nil, ErrClientNotConfigured
	}
	snap, err := s.accounts().Doc(accountDocID(memberID)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("firestore: load account %d: %w", memberID, err)
	}
	return decodeAccount(snap)
}

func (s *Store) Save(ctx context.Context, a *domain.Account) error {
	if s.Client == nil {
		return ErrClientNotConfigured
	}
	if err := a.Validate(); err != nil {
		return err
	}
	logger.StorageCall(backendName, "save", "member_id", a.MemberID)
	ref := s.accounts().Doc(accountDocID(a.MemberID))
	err := s.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		current, err := txLoadAccount(tx, ref)
		if err != nil {
			return err
		}
		return tx.Set(ref, encodeAccount(mergeAccount(current, a)))
	})
	logger.StorageResult(backendName, "save", err, "member_id", a.MemberID)
	return err
}

func (s *Store) List(ctx context.Context) ([]domain.Account, error) {
	if s.Client == nil {
		return nil, ErrClientNotConfigured
	}
	it := s.accounts().OrderBy("memberId", firestore.Asc).Documents(ctx)
	defer it.Stop()

	var out []domain.Account
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore: list accounts: %w", err)
		}
		a, err := decodeAccount(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}

func (s *Store) IsProcessed(ctx context.Context, chatID, joineeID int64) (bool, error) {
	if s.Client == nil {
		return false, ErrClientNotConfigured
	}
	_, err := s.joins().Doc(joinDocID(domain.JoinKey{ChatID: chatID, JoineeID: joineeID})).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, fmt.Errorf("firestore: check processed join: %w", err)
	}
	return true, nil
}

func (s *Store) MarkProcessed(ctx context.Context, join domain.ProcessedJoin) error {
	if s.Client == nil {
		return ErrClientNotConfigured
	}
	_, err := s.joins().Doc(joinDocID(join.Key())).Create(ctx, encodeJoin(join))
	if status.Code(err) == codes.AlreadyExists {
		return nil
	}
	return err
}

func (s *Store) ResetChat(ctx context.Context, chatID int64) (int, error) {
	if s.Client == nil {
		return 0, ErrClientNotConfigured
	}
	logger.StorageCall(backendName, "reset_chat", "chat_id", chatID)
	snaps, err := s.joins().Where("chatId", "==", chatID).Documents(ctx).GetAll()
	if err != nil {
		logger.StorageResult(backendName, "reset_chat", err, "chat_id", chatID)
		return 0, fmt.Errorf("firestore: query chat %d joins: %w", chatID, err)
	}

	removed := 0
	for i := 0; i < len(snaps); i += deleteChunkSize {
		end := min(i+deleteChunkSize, len(snaps))
		chunk := snaps[i:end]
		if err := s.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			for _, snap := range chunk {
				if err := tx.Delete(snap.Ref); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			logger.StorageResult(backendName, "reset_chat", err, "chat_id", chatID, "removed", removed)
			return removed, err
		}
		removed += len(chunk)
	}
	logger.StorageResult(backendName, "reset_chat", nil, "chat_id", chatID, "removed", removed)
	return removed, nil
}

func (s *Store) RecordJoin(ctx context.Context, join domain.ProcessedJoin, a *domain.Account) error {
	if s.Client == nil {
		return ErrClientNotConfigured
	}
	if err := a.Validate(); err != nil {
		return err
	}
	logger.StorageCall(backendName, "record_join", "chat_id", join.ChatID, "joinee_id", join.JoineeID, "member_id", a.MemberID)

	joinRef := s.joins().Doc(joinDocID(join.Key()))
	accountRef := s.accounts().Doc(accountDocID(a.MemberID))

	err := s.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		_, err := tx.Get(joinRef)
		switch {
		case err == nil:
			return repository.ErrAlreadyProcessed
		case status.Code(err) != codes.NotFound:
			return err
		}

		current, err := txLoadAccount(tx, accountRef)
		if err != nil {
			return err
		}

		if err := tx.Create(joinRef, encodeJoin(join)); err != nil {
			return err
		}
		return tx.Set(accountRef, encodeAccount(mergeAccount(current, a)))
	})
	logger.StorageResult(backendName, "record_join", err, "chat_id", join.ChatID, "joinee_id", join.JoineeID)
	return err
}

func (s *Store) Close() error {
	if s.Client == nil {
		return nil
	}
	return s.Client.Close()
}

func txLoadAccount(tx *firestore.Transaction, ref *firestore.DocumentRef) (*domain.Account, error) {
	snap, err := tx.Get(ref)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}
	return decodeAccount(snap)
}

func accountDocID(memberID int64) string {
	return strconv.FormatInt(memberID, 10)
}

func joinDocID(k domain.JoinKey) string {
	return k.String()
}
