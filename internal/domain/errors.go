package domain

import "errors"

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvalidPolicy      = errors.New("invalid milestone policy")
	ErrInvalidAccount     = errors.New("invalid account")
	ErrInvalidObservation = errors.New("invalid join observation")
)
