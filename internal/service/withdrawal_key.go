package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"invite-tracker-backend/internal/domain"
)

// KeyGenerator returns a candidate withdrawal key.
type KeyGenerator func() (int, error)

// RandomWithdrawalKey draws uniformly from the 6-digit key space.
func RandomWithdrawalKey() (int, error) {
	span := big.NewInt(domain.WithdrawalKeyMax - domain.WithdrawalKeyMin + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return 0, fmt.Errorf("generate withdrawal key: %w", err)
	}
	return domain.WithdrawalKeyMin + int(n.Int64()), nil
}

// WithdrawalKeyIssuer assigns each eligible account exactly one key.
// Keys are not deduplicated across accounts.
type WithdrawalKeyIssuer struct {
	policy   domain.MilestonePolicy
	generate KeyGenerator
	now      func() time.Time
}

func NewWithdrawalKeyIssuer(policy domain.MilestonePolicy, generate KeyGenerator) *WithdrawalKeyIssuer {
	if generate == nil {
		generate = RandomWithdrawalKey
	}
	return &WithdrawalKeyIssuer{policy: policy, generate: generate, now: time.Now}
}

// GetOrIssueKey mutates a only when it returns KeyIssued.
func (i *WithdrawalKeyIssuer) GetOrIssueKey(a *domain.Account) (domain.KeyResult, error) {
	res := domain.KeyResult{
		InviteCount: a.InviteCount,
		Remaining:   i.policy.Remaining(a.InviteCount),
	}
	if !i.policy.Eligible(a.InviteCount) {
		res.Status = domain.KeyNotEligible
		return res, nil
	}
	if a.WithdrawalKey != nil {
		res.Status = domain.KeyExisting
		res.Key = *a.WithdrawalKey
		return res, nil
	}

	key, err := i.generate()
	if err != nil {
		return domain.KeyResult{}, err
	}
	if key < domain.WithdrawalKeyMin || key > domain.WithdrawalKeyMax {
		return domain.KeyResult{}, fmt.Errorf("generated withdrawal key %d outside %d-%d", key, domain.WithdrawalKeyMin, domain.WithdrawalKeyMax)
	}
	a.WithdrawalKey = &key
	a.UpdatedAt = i.now().UTC()

	res.Status = domain.KeyIssued
	res.Key = key
	return res, nil
}
