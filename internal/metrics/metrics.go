// Package metrics exposes ledger activity as Prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"invite-tracker-backend/internal/domain"
)

const namespace = "invite_tracker"

type Metrics struct {
	joinsTotal            *prometheus.CounterVec
	notificationsTotal    *prometheus.CounterVec
	keysIssuedTotal       prometheus.Counter
	dispatchFailuresTotal *prometheus.CounterVec
	storageFaultsTotal    *prometheus.CounterVec
}

func New(registerer prometheus.Registerer) *Metrics {
	joinsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "joins",
			Name:      "total",
			Help:      "Join observations by outcome.",
		},
		[]string{"outcome"},
	)
	registerer.MustRegister(joinsTotal)

	notificationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "total",
			Help:      "Notification intents produced by kind.",
		},
		[]string{"kind"},
	)
	registerer.MustRegister(notificationsTotal)

	keysIssuedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "withdrawal_keys", Name: "issued_total",
		Help: "Withdrawal keys assigned.",
	})
	registerer.MustRegister(keysIssuedTotal)

	dispatchFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "dispatch_failures_total",
			Help:      "Intents that a dispatcher failed to deliver.",
		},
		[]string{"kind"},
	)
	registerer.MustRegister(dispatchFailuresTotal)

	storageFaultsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "faults_total",
			Help:      "Operations aborted by a storage fault.",
		},
		[]string{"operation"},
	)
	registerer.MustRegister(storageFaultsTotal)

	return &Metrics{
		joinsTotal:            joinsTotal,
		notificationsTotal:    notificationsTotal,
		keysIssuedTotal:       keysIssuedTotal,
		dispatchFailuresTotal: dispatchFailuresTotal,
		storageFaultsTotal:    storageFaultsTotal,
	}
}

// ObserveJoin counts accepted joins as "accepted" and rejections by reason.
func (m *Metrics) ObserveJoin(effect domain.JoinEffect) {
	outcome := "accepted"
	if !effect.Decision.Accepted {
		outcome = string(effect.Decision.Reason)
	}
	m.joinsTotal.WithLabelValues(outcome).Inc()
	if effect.Intent != nil {
		m.notificationsTotal.WithLabelValues(string(effect.Intent.Kind)).Inc()
	}
}

func (m *Metrics) ObserveKey(res domain.KeyResult) {
	if res.Status == domain.KeyIssued {
		m.keysIssuedTotal.Inc()
	}
}

func (m *Metrics) ObserveDispatchFailure(kind domain.NotificationKind) {
	m.dispatchFailuresTotal.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) ObserveStorageFault(operation string) {
	m.storageFaultsTotal.WithLabelValues(operation).Inc()
}

// Handler serves the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
