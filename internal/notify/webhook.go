package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"invite-tracker-backend/internal/domain"
	"invite-tracker-backend/internal/logger"
)

const webhookService = "webhook"

// WebhookDispatcher POSTs each intent as JSON to the chat-platform client.
// 5xx and 429 responses are retried with exponential backoff; other non-2xx
// responses fail immediately.
type WebhookDispatcher struct {
	url             string
	token           string
	client          *http.Client
	initialInterval time.Duration
	maxElapsed      time.Duration
}

func NewWebhookDispatcher(url, token string, timeout, maxElapsed time.Duration) *WebhookDispatcher {
	return &WebhookDispatcher{
		url:             url,
		token:           token,
		client:          &http.Client{Timeout: timeout},
		initialInterval: 250 * time.Millisecond,
		maxElapsed:      maxElapsed,
	}
}

func (w *WebhookDispatcher) Dispatch(ctx context.Context, intent domain.NotificationIntent) error {
	body, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("marshal intent: %w", err)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = w.initialInterval
	eb.MaxElapsedTime = w.maxElapsed
	bkoff := backoff.WithContext(eb, ctx)

	attempts := 0
	logger.ExternalServiceCall(webhookService, "Dispatch", "intent_id", intent.ID, "kind", intent.Kind)
	err = backoff.Retry(func() error {
		attempts++
		return w.post(ctx, body)
	}, bkoff)
	logger.ExternalServiceResult(webhookService, "Dispatch", err, "intent_id", intent.ID, "attempts", attempts)
	return err
}

func (w *WebhookDispatcher) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	default:
		return backoff.Permanent(fmt.Errorf("webhook rejected intent: status %d", resp.StatusCode))
	}
}
