package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"invite-tracker-backend/internal/domain"
	"invite-tracker-backend/internal/logger"
)

const sendgridService = "sendgrid"

type mailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// OperatorMailer e-mails the operator whenever a member becomes eligible so a
// payout can be prepared. Progress intents are ignored.
type OperatorMailer struct {
	sender    mailSender
	fromEmail string
	fromName  string
	toEmail   string
}

func NewOperatorMailer(apiKey, fromEmail, fromName, toEmail string) *OperatorMailer {
	return &OperatorMailer{
		sender:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
		toEmail:   toEmail,
	}
}

func (m *OperatorMailer) Dispatch(ctx context.Context, intent domain.NotificationIntent) error {
	if intent.Kind != domain.NotificationEligibility {
		return nil
	}

	subject := fmt.Sprintf("Member %d reached the invite threshold", intent.MemberID)
	body := fmt.Sprintf("Member %s (%d) reached %d invites in chat %d.\nDisplayed balance: %d.\n",
		intent.DisplayName, intent.MemberID, intent.NewCount, intent.ChatID, intent.Balance)

	message := mail.NewSingleEmail(
		mail.NewEmail(m.fromName, m.fromEmail),
		subject,
		mail.NewEmail("", m.toEmail),
		body,
		"",
	)

	logger.ExternalServiceCall(sendgridService, "Send", "intent_id", intent.ID, "member_id", intent.MemberID)
	response, err := m.sender.SendWithContext(ctx, message)
	if err == nil && response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult(sendgridService, "Send", err, "intent_id", intent.ID)
	if err != nil {
		return fmt.Errorf("failed to send eligibility email: %w", err)
	}
	return nil
}
