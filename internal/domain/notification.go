package domain

import "github.com/google/uuid"

type NotificationKind string

const (
	NotificationNone        NotificationKind = ""
	NotificationEligibility NotificationKind = "ELIGIBILITY"
	NotificationProgress    NotificationKind = "PROGRESS"
)

// NotificationIntent describes a milestone for the presentation layer to render.
// The ID lets dispatchers deduplicate redelivered intents.
type NotificationIntent struct {
	ID          uuid.UUID        `json:"id"`
	Kind        NotificationKind `json:"kind"`
	ChatID      int64            `json:"chat_id"`
	MemberID    int64            `json:"member_id"`
	DisplayName string           `json:"display_name"`
	NewCount    int              `json:"new_count"`
	Remaining   int              `json:"remaining"`
	Balance     int              `json:"balance"`
}

func NewNotificationIntent(kind NotificationKind, chatID int64, acct *Account, policy MilestonePolicy) *NotificationIntent {
	return &NotificationIntent{
		ID:          uuid.New(),
		Kind:        kind,
		ChatID:      chatID,
		MemberID:    acct.MemberID,
		DisplayName: acct.DisplayName,
		NewCount:    acct.InviteCount,
		Remaining:   policy.Remaining(acct.InviteCount),
		Balance:     policy.Balance(acct.InviteCount),
	}
}
