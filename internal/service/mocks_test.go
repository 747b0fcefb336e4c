package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"invite-tracker-backend/internal/domain"
)

// MockStore
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Load(ctx context.Context, memberID int64) (*domain.Account, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockStore) Save(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}
func (m *MockStore) List(ctx context.Context) ([]domain.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}
func (m *MockStore) IsProcessed(ctx context.Context, chatID, joineeID int64) (bool, error) {
	args := m.Called(ctx, chatID, joineeID)
	return args.Bool(0), args.Error(1)
}
func (m *MockStore) MarkProcessed(ctx context.Context, join domain.ProcessedJoin) error {
	args := m.Called(ctx, join)
	return args.Error(0)
}
func (m *MockStore) ResetChat(ctx context.Context, chatID int64) (int, error) {
	args := m.Called(ctx, chatID)
	return args.Int(0), args.Error(1)
}
func (m *MockStore) RecordJoin(ctx context.Context, join domain.ProcessedJoin, account *domain.Account) error {
	args := m.Called(ctx, join, account)
	return args.Error(0)
}
func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// sequenceKeys returns a KeyGenerator yielding keys in order.
func sequenceKeys(keys ...int) KeyGenerator {
	i := 0
	return func() (int, error) {
		k := keys[i%len(keys)]
		i++
		return k, nil
	}
}
