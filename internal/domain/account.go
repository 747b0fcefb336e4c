package domain

import (
	"fmt"
	"time"
)

const (
	// WithdrawalKeyMin and WithdrawalKeyMax bound the fixed-width 6-digit key space.
	WithdrawalKeyMin = 100000
	WithdrawalKeyMax = 999999
)

// Account is the per-member invite record.
type Account struct {
	MemberID      int64     `json:"member_id"`
	DisplayName   string    `json:"display_name"`
	InviteCount   int       `json:"invite_count"`
	WithdrawalKey *int      `json:"withdrawal_key,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewAccount returns an empty account for a member seen for the first time.
func NewAccount(memberID int64, displayName string, now time.Time) *Account {
	return &Account{
		MemberID:    memberID,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// HasKey reports whether a withdrawal key has been assigned.
func (a *Account) HasKey() bool {
	return a.WithdrawalKey != nil
}

// Clone returns a deep copy so callers can mutate without touching stored state.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.WithdrawalKey != nil {
		k := *a.WithdrawalKey
		c.WithdrawalKey = &k
	}
	return &c
}

// Validate checks the structural invariants of a persisted account.
func (a *Account) Validate() error {
	if a.MemberID == 0 {
		return fmt.Errorf("%w: member id is required", ErrInvalidAccount)
	}
	if a.InviteCount < 0 {
		return fmt.Errorf("%w: invite count %d is negative", ErrInvalidAccount, a.InviteCount)
	}
	if a.WithdrawalKey != nil && (*a.WithdrawalKey < WithdrawalKeyMin || *a.WithdrawalKey > WithdrawalKeyMax) {
		return fmt.Errorf("%w: withdrawal key %d outside %d-%d", ErrInvalidAccount, *a.WithdrawalKey, WithdrawalKeyMin, WithdrawalKeyMax)
	}
	return nil
}

// ProcessedJoin marks a (chat, joinee) pair that has already been counted.
type ProcessedJoin struct {
	ChatID      int64     `json:"chat_id"`
	JoineeID    int64     `json:"joinee_id"`
	InviterID   int64     `json:"inviter_id"`
	ProcessedAt time.Time `json:"processed_at"`
}

// JoinKey identifies a processed join independent of who was credited.
type JoinKey struct {
	ChatID   int64
	JoineeID int64
}

func (k JoinKey) String() string {
	return fmt.Sprintf("%d:%d", k.ChatID, k.JoineeID)
}

func (p ProcessedJoin) Key() JoinKey {
	return JoinKey{ChatID: p.ChatID, JoineeID: p.JoineeID}
}
