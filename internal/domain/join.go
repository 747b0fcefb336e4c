package domain

import "fmt"

// JoinObservation is a raw "member joined" report from the chat platform.
// ActorID is nil when the platform could not resolve who added the member.
type JoinObservation struct {
	ChatID           int64  `json:"chat_id"`
	JoineeID         int64  `json:"joinee_id"`
	ActorID          *int64 `json:"actor_id,omitempty"`
	ActorDisplayName string `json:"actor_display_name,omitempty"`
}

func (o JoinObservation) Validate() error {
	if o.ChatID == 0 {
		return fmt.Errorf("%w: chat id is required", ErrInvalidObservation)
	}
	if o.JoineeID == 0 {
		return fmt.Errorf("%w: joinee id is required", ErrInvalidObservation)
	}
	return nil
}

func (o JoinObservation) Key() JoinKey {
	return JoinKey{ChatID: o.ChatID, JoineeID: o.JoineeID}
}

type RejectReason string

const (
	RejectSelfJoin              RejectReason = "SELF_JOIN"
	RejectDuplicateJoin         RejectReason = "DUPLICATE_JOIN"
	RejectNoAttributableInviter RejectReason = "NO_ATTRIBUTABLE_INVITER"
)

// JoinDecision is the filter outcome: either Accepted with the credited inviter
// or rejected with a reason.
type JoinDecision struct {
	Accepted  bool         `json:"accepted"`
	InviterID int64        `json:"inviter_id,omitempty"`
	Reason    RejectReason `json:"reason,omitempty"`
}

func Accepted(inviterID int64) JoinDecision {
	return JoinDecision{Accepted: true, InviterID: inviterID}
}

func Rejected(reason RejectReason) JoinDecision {
	return JoinDecision{Reason: reason}
}

// JoinEffect is what OnJoin hands back to the platform collaborator.
type JoinEffect struct {
	JoineeID int64               `json:"joinee_id"`
	Decision JoinDecision        `json:"decision"`
	OldCount int                 `json:"old_count"`
	NewCount int                 `json:"new_count"`
	Intent   *NotificationIntent `json:"intent,omitempty"`
}

// ProgressView answers a "check" query.
type ProgressView struct {
	MemberID    int64  `json:"member_id"`
	DisplayName string `json:"display_name"`
	InviteCount int    `json:"invite_count"`
	Remaining   int    `json:"remaining"`
	Balance     int    `json:"balance"`
	Eligible    bool   `json:"eligible"`
}

// LedgerStats summarises all accounts.
type LedgerStats struct {
	Accounts         int `json:"accounts"`
	TotalInvites     int `json:"total_invites"`
	EligibleAccounts int `json:"eligible_accounts"`
	KeysIssued       int `json:"keys_issued"`
}
