package domain

type KeyStatus string

const (
	KeyNotEligible KeyStatus = "NOT_ELIGIBLE"
	KeyExisting    KeyStatus = "EXISTING"
	KeyIssued      KeyStatus = "ISSUED"
)

// KeyResult is the outcome of a withdrawal key request. Key is zero unless
// Status is KeyExisting or KeyIssued.
type KeyResult struct {
	Status      KeyStatus `json:"status"`
	Key         int       `json:"key,omitempty"`
	InviteCount int       `json:"invite_count"`
	Remaining   int       `json:"remaining"`
}

func (r KeyResult) HasKey() bool {
	return r.Status == KeyExisting || r.Status == KeyIssued
}
