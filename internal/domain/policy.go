package domain

import "fmt"

// MilestonePolicy configures when notifications fire and how balances are displayed.
// It is fixed for the lifetime of a deployment.
type MilestonePolicy struct {
	EligibilityThreshold int `json:"eligibility_threshold" yaml:"eligibility_threshold"`
	ProgressInterval     int `json:"progress_interval" yaml:"progress_interval"`
	RewardPerInvite      int `json:"reward_per_invite" yaml:"reward_per_invite"`
}

// DefaultMilestonePolicy matches the most common deployment of the group bots.
func DefaultMilestonePolicy() MilestonePolicy {
	return MilestonePolicy{
		EligibilityThreshold: 6,
		ProgressInterval:     2,
		RewardPerInvite:      50,
	}
}

func (p MilestonePolicy) Validate() error {
	if p.EligibilityThreshold <= 0 {
		return fmt.Errorf("%w: eligibility threshold must be positive, got %d", ErrInvalidPolicy, p.EligibilityThreshold)
	}
	if p.ProgressInterval <= 0 {
		return fmt.Errorf("%w: progress interval must be positive, got %d", ErrInvalidPolicy, p.ProgressInterval)
	}
	if p.RewardPerInvite < 0 {
		return fmt.Errorf("%w: reward per invite must not be negative, got %d", ErrInvalidPolicy, p.RewardPerInvite)
	}
	return nil
}

// Remaining is the number of invites still needed to reach eligibility.
func (p MilestonePolicy) Remaining(count int) int {
	return max(p.EligibilityThreshold-count, 0)
}

// Balance is the display-only reward total for count invites.
func (p MilestonePolicy) Balance(count int) int {
	return count * p.RewardPerInvite
}

func (p MilestonePolicy) Eligible(count int) bool {
	return count >= p.EligibilityThreshold
}
