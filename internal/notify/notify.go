// Package notify delivers milestone intents to whatever renders them.
package notify

import (
	"context"
	"errors"

	"invite-tracker-backend/internal/domain"
	"invite-tracker-backend/internal/logger"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, intent domain.NotificationIntent) error
}

// Fanout hands every intent to each dispatcher in order. One failing
// dispatcher does not stop the others.
type Fanout []Dispatcher

func (f Fanout) Dispatch(ctx context.Context, intent domain.NotificationIntent) error {
	var errs []error
	for _, d := range f {
		if err := d.Dispatch(ctx, intent); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogDispatcher records intents in the application log.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(ctx context.Context, intent domain.NotificationIntent) error {
	logger.InfoContext(ctx, "Notification intent",
		"intent_id", intent.ID,
		"kind", intent.Kind,
		"chat_id", intent.ChatID,
		"member_id", intent.MemberID,
		"invite_count", intent.NewCount,
		"remaining", intent.Remaining,
		"balance", intent.Balance,
	)
	return nil
}
