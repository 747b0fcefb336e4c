package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invite-tracker-backend/internal/domain"
	"invite-tracker-backend/internal/logger"
	"invite-tracker-backend/internal/metrics"
	"invite-tracker-backend/internal/repository/memory"
	"invite-tracker-backend/internal/security"
	"invite-tracker-backend/internal/service"
)

var testPolicy = domain.MilestonePolicy{EligibilityThreshold: 4, ProgressInterval: 2, RewardPerInvite: 50}

type recordingDispatcher struct {
	mu      sync.Mutex
	intents []domain.NotificationIntent
}

func (d *recordingDispatcher) Dispatch(_ context.Context, intent domain.NotificationIntent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.intents = append(d.intents, intent)
	return nil
}

func (d *recordingDispatcher) kinds() []domain.NotificationKind {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []domain.NotificationKind
	for _, i := range d.intents {
		out = append(out, i.Kind)
	}
	return out
}

// faultyStore fails every dedup lookup.
type faultyStore struct {
	*memory.Store
}

func (faultyStore) IsProcessed(context.Context, int64, int64) (bool, error) {
	return false, errors.New("connection refused")
}

type testServer struct {
	router     http.Handler
	handler    *Handler
	dispatcher *recordingDispatcher
	platform   string
	admin      string
}

func setup(t *testing.T, faulty bool) *testServer {
	t.Helper()

	var svc service.InviteTrackingService
	var err error
	keys := func() (int, error) { return 482913, nil }
	if faulty {
		svc, err = service.NewInviteTrackingService(faultyStore{memory.NewStore()}, testPolicy, keys)
	} else {
		svc, err = service.NewInviteTrackingService(memory.NewStore(), testPolicy, keys)
	}
	require.NoError(t, err)

	tm, err := security.NewTokenManager("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	platform, err := tm.GenerateServiceToken("bot", []security.Scope{security.ScopePlatform}, time.Hour)
	require.NoError(t, err)
	admin, err := tm.GenerateServiceToken("ops", []security.Scope{security.ScopeAdmin}, time.Hour)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	dispatcher := &recordingDispatcher{}
	h := NewHandler(svc, dispatcher, metrics.New(reg))
	return &testServer{
		router:     NewRouter(h, NewAuthMiddleware(tm), metrics.Handler(reg)),
		handler:    h,
		dispatcher: dispatcher,
		platform:   platform,
		admin:      admin,
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func ptr(v int64) *int64 { return &v }

func TestHealthAndMetricsArePublic(t *testing.T) {
	s := setup(t, false)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/metrics", "", nil).Code)
}

func TestAuth(t *testing.T) {
	s := setup(t, false)

	rec := s.do(t, http.MethodGet, "/api/v1/members/1/progress", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/members/1/progress", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/stats", s.platform, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/stats", s.admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/members/1/progress", s.admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecordJoins_EligibilityFlow(t *testing.T) {
	s := setup(t, false)

	for i := int64(0); i < 4; i++ {
		rec := s.do(t, http.MethodPost, "/api/v1/joins", s.platform, recordJoinsRequest{
			ChatID:           -100123,
			JoineeIDs:        []int64{100 + i},
			ActorID:          ptr(1),
			ActorDisplayName: "Alice",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[recordJoinsResponse](t, rec)
		require.Len(t, resp.Effects, 1)
		assert.True(t, resp.Effects[0].Decision.Accepted)
		assert.Equal(t, int(i+1), resp.Effects[0].NewCount)
	}
	s.handler.Wait()
	assert.ElementsMatch(t, []domain.NotificationKind{domain.NotificationProgress, domain.NotificationEligibility}, s.dispatcher.kinds())

	rec := s.do(t, http.MethodGet, "/api/v1/members/1/progress", s.platform, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[domain.ProgressView](t, rec)
	assert.Equal(t, 4, view.InviteCount)
	assert.Equal(t, 0, view.Remaining)
	assert.Equal(t, 200, view.Balance)
	assert.True(t, view.Eligible)

	rec = s.do(t, http.MethodPost, "/api/v1/members/1/key", s.platform, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	key := decode[domain.KeyResult](t, rec)
	assert.Equal(t, domain.KeyIssued, key.Status)
	assert.Equal(t, 482913, key.Key)

	rec = s.do(t, http.MethodPost, "/api/v1/members/1/key", s.platform, nil)
	key = decode[domain.KeyResult](t, rec)
	assert.Equal(t, domain.KeyExisting, key.Status)
	assert.Equal(t, 482913, key.Key)

	rec = s.do(t, http.MethodGet, "/api/v1/stats", s.admin, nil)
	stats := decode[domain.LedgerStats](t, rec)
	assert.Equal(t, domain.LedgerStats{Accounts: 1, TotalInvites: 4, EligibleAccounts: 1, KeysIssued: 1}, stats)
}

func TestRecordJoins_Rejections(t *testing.T) {
	s := setup(t, false)

	rec := s.do(t, http.MethodPost, "/api/v1/joins", s.platform, recordJoinsRequest{
		ChatID:    10,
		JoineeIDs: []int64{7, 7, 8},
		ActorID:   ptr(7),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[recordJoinsResponse](t, rec)
	require.Len(t, resp.Effects, 3)
	assert.Equal(t, domain.RejectSelfJoin, resp.Effects[0].Decision.Reason)
	assert.Equal(t, domain.RejectSelfJoin, resp.Effects[1].Decision.Reason)
	assert.True(t, resp.Effects[2].Decision.Accepted)

	rec = s.do(t, http.MethodPost, "/api/v1/joins", s.platform, recordJoinsRequest{ChatID: 10, JoineeIDs: []int64{9}})
	resp = decode[recordJoinsResponse](t, rec)
	assert.Equal(t, domain.RejectNoAttributableInviter, resp.Effects[0].Decision.Reason)
}

func TestRecordJoins_BadRequests(t *testing.T) {
	s := setup(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/joins", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+s.platform)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/joins", s.platform, recordJoinsRequest{ChatID: 10})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/joins", s.platform, recordJoinsRequest{JoineeIDs: []int64{1}, ActorID: ptr(2)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/members/0/progress", s.platform, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordJoins_SizeLimits(t *testing.T) {
	s := setup(t, false)

	joinees := make([]int64, maxJoineesPerBatch+1)
	for i := range joinees {
		joinees[i] = int64(1000 + i)
	}
	rec := s.do(t, http.MethodPost, "/api/v1/joins", s.platform, recordJoinsRequest{ChatID: 10, JoineeIDs: joinees, ActorID: ptr(1)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "joinee_ids")

	rec = s.do(t, http.MethodPost, "/api/v1/joins", s.platform, recordJoinsRequest{
		ChatID:           10,
		JoineeIDs:        []int64{5},
		ActorID:          ptr(1),
		ActorDisplayName: strings.Repeat("a", maxRecordJoinsBody),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// nothing was counted
	rec = s.do(t, http.MethodGet, "/api/v1/members/1/progress", s.platform, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[domain.ProgressView](t, rec).InviteCount)

	rec = s.do(t, http.MethodPost, "/api/v1/joins", s.platform, recordJoinsRequest{ChatID: 10, JoineeIDs: joinees[:maxJoineesPerBatch], ActorID: ptr(1)})
	assert.Equal(t, http.StatusOK, rec.Code)
	s.handler.Wait()
}

func TestResetChat(t *testing.T) {
	s := setup(t, false)
	rec := s.do(t, http.MethodPost, "/api/v1/joins", s.platform, recordJoinsRequest{ChatID: -5, JoineeIDs: []int64{20, 21}, ActorID: ptr(1)})
	require.Equal(t, http.StatusOK, rec.Code)
	s.handler.Wait()

	rec = s.do(t, http.MethodPost, "/api/v1/chats/-5/reset", s.platform, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/chats/-5/reset", s.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, resetChatResponse{ChatID: -5, Removed: 2}, decode[resetChatResponse](t, rec))
}

func TestStorageFaultIsServiceUnavailable(t *testing.T) {
	s := setup(t, true)

	rec := s.do(t, http.MethodPost, "/api/v1/joins", s.platform, recordJoinsRequest{ChatID: 10, JoineeIDs: []int64{2}, ActorID: ptr(1)})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "try again later")

	rec = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Contains(t, rec.Body.String(), `invite_tracker_storage_faults_total{operation="record_joins"} 1`)
}

func TestStorageFaultLogsCallingClient(t *testing.T) {
	var buf bytes.Buffer
	logger.InitializeWithWriter(&buf, "info", "json")
	t.Cleanup(func() { logger.Initialize("info", "text") })

	s := setup(t, true)
	rec := s.do(t, http.MethodPost, "/api/v1/joins", s.platform, recordJoinsRequest{ChatID: 10, JoineeIDs: []int64{2}, ActorID: ptr(1)})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if json.Unmarshal([]byte(line), &entry) != nil || entry["msg"] != "Storage fault" {
			continue
		}
		found = true
		assert.Equal(t, "bot", entry["client"])
		assert.Equal(t, "record_joins", entry["operation"])
	}
	assert.True(t, found, "storage fault was not logged")
}
