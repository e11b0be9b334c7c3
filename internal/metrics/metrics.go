package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kanflow/movedigest/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	EmailsQueued    *prometheus.CounterVec
	EmailsClaimed   prometheus.Counter
	DigestsSent     prometheus.Counter
	DigestsFailed   prometheus.Counter
	DispatchLatency prometheus.Histogram
	PendingEmails   prometheus.Gauge
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EmailsQueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "card_move_emails_queued_total",
			Help: "Pending card-move emails written by the notifier.",
		}, []string{"type"}),

		EmailsClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "card_move_emails_claimed_total",
			Help: "Pending card-move emails claimed and deleted by the dispatcher.",
		}),

		DigestsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "card_move_digests_sent_total",
			Help: "Digest emails accepted by the email transport.",
		}),

		DigestsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "card_move_digests_failed_total",
			Help: "Digest emails that failed to send. These are not retried.",
		}),

		DispatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "card_move_dispatch_seconds",
			Help:    "Duration of one dispatcher run, claim to last send.",
			Buckets: prometheus.DefBuckets,
		}),

		PendingEmails: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "card_move_pending_emails",
			Help: "Pending card-move emails waiting for the next dispatch.",
		}),
	}

	reg.MustRegister(
		m.EmailsQueued,
		m.EmailsClaimed,
		m.DigestsSent,
		m.DigestsFailed,
		m.DispatchLatency,
		m.PendingEmails,
	)

	return m
}

// NotifierHooks returns the callback expected by service.NotifierHooks.
func (m *Metrics) NotifierHooks() (onQueued func(domain.EmailType, int)) {
	return func(t domain.EmailType, n int) {
		m.EmailsQueued.WithLabelValues(string(t)).Add(float64(n))
	}
}

// DispatcherHooks returns the callbacks expected by service.DispatcherHooks.
// Centralises the prometheus observation calls so the service stays import-free.
func (m *Metrics) DispatcherHooks() (
	onClaimed func(int),
	onSent func(),
	onFailed func(),
	onRun func(time.Duration),
) {
	onClaimed = func(n int) { m.EmailsClaimed.Add(float64(n)) }
	onSent = func() { m.DigestsSent.Inc() }
	onFailed = func() { m.DigestsFailed.Inc() }
	onRun = func(d time.Duration) { m.DispatchLatency.Observe(d.Seconds()) }
	return
}

// SetPending records the latest pending-row count.
func (m *Metrics) SetPending(n int) {
	m.PendingEmails.Set(float64(n))
}
