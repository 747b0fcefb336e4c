// Package memory keeps accounts and join markers in process memory. State is
// lost on restart; select it only where that durability is acceptable.
package memory

import (
	"context"
	"sort"
	"sync"

	"invite-tracker-backend/internal/domain"
	"invite-tracker-backend/internal/repository"
)

type Store struct {
	mu       sync.RWMutex
	accounts map[int64]*domain.Account
	joins    map[domain.JoinKey]domain.ProcessedJoin
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		accounts: make(map[int64]*domain.Account),
		joins:    make(map[domain.JoinKey]domain.ProcessedJoin),
	}
}

// Restore seeds the store, used by the file store to load its snapshot.
func (s *Store) Restore(accounts []domain.Account, joins []domain.ProcessedJoin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range accounts {
		a := accounts[i]
		s.accounts[a.MemberID] = a.Clone()
	}
	for _, j := range joins {
		s.joins[j.Key()] = j
	}
}

func (s *Store) Load(ctx context.Context, memberID int64) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[memberID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a.Clone(), nil
}

func (s *Store) Save(ctx context.Context, account *domain.Account) error {
	if err := account.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.MemberID] = account.Clone()
	return nil
}

func (s *Store) List(ctx context.Context) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, *a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out, nil
}

// Joins returns every marker ordered by chat then joinee.
func (s *Store) Joins() []domain.ProcessedJoin {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ProcessedJoin, 0, len(s.joins))
	for _, j := range s.joins {
		out = append(out, j)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChatID != out[j].ChatID {
			return out[i].ChatID < out[j].ChatID
		}
		return out[i].JoineeID < out[j].JoineeID
	})
	return out
}

func (s *Store) IsProcessed(ctx context.Context, chatID, joineeID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.joins[domain.JoinKey{ChatID: chatID, JoineeID: joineeID}]
	return ok, nil
}

func (s *Store) MarkProcessed(ctx context.Context, join domain.ProcessedJoin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.joins[join.Key()]; ok {
		return nil
	}
	s.joins[join.Key()] = join
	return nil
}

func (s *Store) ResetChat(ctx context.Context, chatID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k := range s.joins {
		if k.ChatID == chatID {
			delete(s.joins, k)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) RecordJoin(ctx context.Context, join domain.ProcessedJoin, account *domain.Account) error {
	if err := account.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.joins[join.Key()]; ok {
		return repository.ErrAlreadyProcessed
	}
	s.joins[join.Key()] = join
	s.accounts[account.MemberID] = account.Clone()
	return nil
}

// Unmark removes a single marker.
func (s *Store) Unmark(key domain.JoinKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.joins, key)
}

// Delete removes an account. Only used to roll back a failed write.
func (s *Store) Delete(memberID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, memberID)
}

func (s *Store) Close() error {
	return nil
}
