package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invite-tracker-backend/internal/domain"
)

func TestObserveJoin(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveJoin(domain.JoinEffect{Decision: domain.Accepted(1)})
	m.ObserveJoin(domain.JoinEffect{
		Decision: domain.Accepted(1),
		Intent:   &domain.NotificationIntent{Kind: domain.NotificationProgress},
	})
	m.ObserveJoin(domain.JoinEffect{Decision: domain.Rejected(domain.RejectSelfJoin)})

	assert.Equal(t, float64(2), testutil.ToFloat64(m.joinsTotal.WithLabelValues("accepted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.joinsTotal.WithLabelValues("SELF_JOIN")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.notificationsTotal.WithLabelValues("PROGRESS")))
}

func TestObserveKey(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveKey(domain.KeyResult{Status: domain.KeyNotEligible})
	m.ObserveKey(domain.KeyResult{Status: domain.KeyIssued, Key: 123456})
	m.ObserveKey(domain.KeyResult{Status: domain.KeyExisting, Key: 123456})
	assert.Equal(t, float64(1), testutil.ToFloat64(m.keysIssuedTotal))
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveStorageFault("on_join")

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `invite_tracker_storage_faults_total{operation="on_join"} 1`)
}
