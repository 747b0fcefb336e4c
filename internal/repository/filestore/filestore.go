// Package filestore persists the ledger as a single JSON document. Every
// mutation rewrites the file atomically before it is acknowledged.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"

	"invite-tracker-backend/internal/domain"
	"invite-tracker-backend/internal/logger"
	"invite-tracker-backend/internal/repository"
	"invite-tracker-backend/internal/repository/memory"
)

const backendName = "file"

type document struct {
	Accounts []domain.Account       `json:"accounts"`
	Joins    []domain.ProcessedJoin `json:"processed_joins"`
}

type Store struct {
	path string

	// mu serializes mutate-then-flush so the file always matches mem.
	mu  sync.Mutex
	mem *memory.Store
}

var _ repository.Store = (*Store)(nil)

// Open loads path if it exists, creating parent directories otherwise.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("filestore: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create directory: %w", err)
	}

	s := &Store{path: path, mem: memory.NewStore()}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("Ledger file not found, starting empty", "path", path)
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("filestore: read %s: %w", path, err)
	}

	var doc document
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("filestore: decode %s: %w", path, err)
		}
	}
	for i := range doc.Accounts {
		if err := doc.Accounts[i].Validate(); err != nil {
			return nil, fmt.Errorf("filestore: %s: %w", path, err)
		}
	}
	s.mem.Restore(doc.Accounts, doc.Joins)
	logger.Info("Ledger file loaded", "path", path, "accounts", len(doc.Accounts), "processed_joins", len(doc.Joins))
	return s, nil
}

func (s *Store) Load(ctx context.Context, memberID int64) (*domain.Account, error) {
	return s.mem.Load(ctx, memberID)
}

func (s *Store) List(ctx context.Context) ([]domain.Account, error) {
	return s.mem.List(ctx)
}

func (s *Store) IsProcessed(ctx context.Context, chatID, joineeID int64) (bool, error) {
	return s.mem.IsProcessed(ctx, chatID, joineeID)
}

func (s *Store) Save(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.mem.Load(ctx, account.MemberID)
	if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
		return err
	}
	if err := s.mem.Save(ctx, account); err != nil {
		return err
	}
	if err := s.flush(ctx, "save"); err != nil {
		// keep memory in step with the file
		if prev != nil {
			_ = s.mem.Save(ctx, prev)
		} else {
			s.mem.Delete(account.MemberID)
		}
		return err
	}
	return nil
}

func (s *Store) MarkProcessed(ctx context.Context, join domain.ProcessedJoin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen, err := s.mem.IsProcessed(ctx, join.ChatID, join.JoineeID)
	if err != nil || seen {
		return err
	}
	if err := s.mem.MarkProcessed(ctx, join); err != nil {
		return err
	}
	if err := s.flush(ctx, "mark_processed"); err != nil {
		s.mem.Unmark(join.Key())
		return err
	}
	return nil
}

func (s *Store) ResetChat(ctx context.Context, chatID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cleared []domain.ProcessedJoin
	for _, j := range s.mem.Joins() {
		if j.ChatID == chatID {
			cleared = append(cleared, j)
		}
	}
	removed, err := s.mem.ResetChat(ctx, chatID)
	if err != nil || removed == 0 {
		return removed, err
	}
	if err := s.flush(ctx, "reset_chat"); err != nil {
		for _, j := range cleared {
			_ = s.mem.MarkProcessed(ctx, j)
		}
		return 0, err
	}
	return removed, nil
}

func (s *Store) RecordJoin(ctx context.Context, join domain.ProcessedJoin, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.mem.Load(ctx, account.MemberID)
	if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
		return err
	}
	if err := s.mem.RecordJoin(ctx, join, account); err != nil {
		return err
	}
	if err := s.flush(ctx, "record_join"); err != nil {
		s.rollbackJoin(ctx, join, account.MemberID, prev)
		return err
	}
	return nil
}

// rollbackJoin undoes an in-memory RecordJoin whose flush failed.
func (s *Store) rollbackJoin(ctx context.Context, join domain.ProcessedJoin, memberID int64, prev *domain.Account) {
	s.mem.Unmark(join.Key())
	if prev == nil {
		s.mem.Delete(memberID)
		return
	}
	_ = s.mem.Save(ctx, prev)
}

func (s *Store) flush(ctx context.Context, operation string) error {
	logger.StorageCall(backendName, operation, "path", s.path)
	accounts, err := s.mem.List(ctx)
	if err != nil {
		return err
	}
	doc := document{Accounts: accounts, Joins: s.mem.Joins()}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("filestore: encode: %w", err)
	}
	err = atomic.WriteFile(s.path, bytes.NewReader(data))
	logger.StorageResult(backendName, operation, err, "path", s.path, "bytes", len(data))
	if err != nil {
		return fmt.Errorf("filestore: write %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}
