package service

import "invite-tracker-backend/internal/domain"

// EvaluateMilestone decides which notification a count change produces.
//
// Eligibility fires when the count crosses the threshold, so it fires once
// even when a single change advances the count by more than one. Progress
// fires on multiples of the interval unless eligibility already fired.
func EvaluateMilestone(oldCount, newCount int, policy domain.MilestonePolicy) domain.NotificationKind {
	if newCount <= oldCount {
		return domain.NotificationNone
	}
	if oldCount < policy.EligibilityThreshold && policy.EligibilityThreshold <= newCount {
		return domain.NotificationEligibility
	}
	if policy.ProgressInterval > 0 && newCount%policy.ProgressInterval == 0 {
		return domain.NotificationProgress
	}
	return domain.NotificationNone
}
