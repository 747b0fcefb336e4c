package service

import (
	"errors"
	"fmt"

	"invite-tracker-backend/internal/domain"
	"invite-tracker-backend/internal/repository"
)

// storageError wraps unexpected adapter failures in domain.ErrStorageUnavailable.
// Expected outcomes pass through unchanged so callers can branch on them.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, repository.ErrAlreadyProcessed),
		errors.Is(err, domain.ErrStorageUnavailable):
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStorageUnavailable, op, err)
}
