package firestore

import (
	"fmt"

	"cloud.google.com/go/firestore"

	"invite-tracker-backend/internal/domain"
)

func encodeAccount(a *domain.Account) accountDoc {
	doc := accountDoc{
		MemberID:    a.MemberID,
		DisplayName: a.DisplayName,
		InviteCount: int64(a.InviteCount),
		CreatedAt:   a.CreatedAt.UTC(),
		UpdatedAt:   a.UpdatedAt.UTC(),
	}
	if a.WithdrawalKey != nil {
		k := int64(*a.WithdrawalKey)
		doc.WithdrawalKey = &k
	}
	return doc
}

func accountFromDoc(doc accountDoc) *domain.Account {
	a := &domain.Account{
		MemberID:    doc.MemberID,
		DisplayName: doc.DisplayName,
		InviteCount: int(doc.InviteCount),
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
	if doc.WithdrawalKey != nil {
		k := int(*doc.WithdrawalKey)
		a.WithdrawalKey = &k
	}
	return a
}

func decodeAccount(snap *firestore.DocumentSnapshot) (*domain.Account, error) {
	var doc accountDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore: decode account %s: %w", snap.Ref.ID, err)
	}
	a := accountFromDoc(doc)
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func encodeJoin(j domain.ProcessedJoin) joinDoc {
	return joinDoc{
		ChatID:      j.ChatID,
		JoineeID:    j.JoineeID,
		InviterID:   j.InviterID,
		ProcessedAt: j.ProcessedAt.UTC(),
	}
}

// mergeAccount applies next over the stored document without lowering the
// count or replacing an assigned key.
func mergeAccount(current, next *domain.Account) *domain.Account {
	merged := next.Clone()
	if current == nil {
		return merged
	}
	if current.InviteCount > merged.InviteCount {
		merged.InviteCount = current.InviteCount
	}
	if current.WithdrawalKey != nil {
		k := *current.WithdrawalKey
		merged.WithdrawalKey = &k
	}
	if !current.CreatedAt.IsZero() {
		merged.CreatedAt = current.CreatedAt
	}
	return merged
}
