package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invite-tracker-backend/internal/domain"
)

func testIntent(kind domain.NotificationKind) domain.NotificationIntent {
	return domain.NotificationIntent{
		ID:          uuid.New(),
		Kind:        kind,
		ChatID:      10,
		MemberID:    1,
		DisplayName: "Alice",
		NewCount:    4,
		Remaining:   0,
		Balance:     200,
	}
}

type dispatchFunc func(ctx context.Context, intent domain.NotificationIntent) error

func (f dispatchFunc) Dispatch(ctx context.Context, intent domain.NotificationIntent) error {
	return f(ctx, intent)
}

func TestFanout_CallsEveryDispatcher(t *testing.T) {
	var calls int
	ok := dispatchFunc(func(context.Context, domain.NotificationIntent) error { calls++; return nil })
	failing := dispatchFunc(func(context.Context, domain.NotificationIntent) error { calls++; return errors.New("down") })

	err := Fanout{failing, ok, LogDispatcher{}}.Dispatch(context.Background(), testIntent(domain.NotificationProgress))
	assert.EqualError(t, err, "down")
	assert.Equal(t, 2, calls)
}

func newTestWebhook(url string) *WebhookDispatcher {
	w := NewWebhookDispatcher(url, "secret", time.Second, 2*time.Second)
	w.initialInterval = time.Millisecond
	return w
}

func TestWebhookDispatcher_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	intent := testIntent(domain.NotificationEligibility)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var got domain.NotificationIntent
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, intent.ID, got.ID)
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, newTestWebhook(srv.URL).Dispatch(context.Background(), intent))
	assert.Equal(t, int32(3), hits.Load())
}

func TestWebhookDispatcher_ClientErrorIsPermanent(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := newTestWebhook(srv.URL).Dispatch(context.Background(), testIntent(domain.NotificationProgress))
	assert.ErrorContains(t, err, "status 400")
	assert.Equal(t, int32(1), hits.Load())
}

func TestWebhookDispatcher_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := newTestWebhook(srv.URL).Dispatch(ctx, testIntent(domain.NotificationProgress))
	assert.Error(t, err)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rest.Response), args.Error(1)
}

func TestOperatorMailer(t *testing.T) {
	ctx := context.Background()

	t.Run("Sends on eligibility", func(t *testing.T) {
		sender := new(mockSender)
		sender.On("SendWithContext", ctx, mock.MatchedBy(func(m *mail.SGMailV3) bool {
			return m.Subject == "Member 1 reached the invite threshold" &&
				m.Personalizations[0].To[0].Address == "ops@example.com"
		})).Return(&rest.Response{StatusCode: http.StatusAccepted}, nil)

		m := &OperatorMailer{sender: sender, fromEmail: "bot@example.com", fromName: "Invite Bot", toEmail: "ops@example.com"}
		require.NoError(t, m.Dispatch(ctx, testIntent(domain.NotificationEligibility)))
		sender.AssertExpectations(t)
	})

	t.Run("Ignores progress", func(t *testing.T) {
		sender := new(mockSender)
		m := &OperatorMailer{sender: sender, toEmail: "ops@example.com"}
		require.NoError(t, m.Dispatch(ctx, testIntent(domain.NotificationProgress)))
		sender.AssertNotCalled(t, "SendWithContext", mock.Anything, mock.Anything)
	})

	t.Run("Error status", func(t *testing.T) {
		sender := new(mockSender)
		sender.On("SendWithContext", ctx, mock.Anything).
			Return(&rest.Response{StatusCode: http.StatusUnauthorized, Body: "bad key"}, nil)
		m := &OperatorMailer{sender: sender, toEmail: "ops@example.com"}
		err := m.Dispatch(ctx, testIntent(domain.NotificationEligibility))
		assert.ErrorContains(t, err, "status 401")
	})
}
