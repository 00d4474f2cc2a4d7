package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartSyncMetrics records cart mutation traffic and reconciliation outcomes.
// A nil receiver (or nil registerer) turns every method into a no-op so the
// store can run without metrics wired.
type CartSyncMetrics struct {
	mutations  *prometheus.CounterVec
	failures   *prometheus.CounterVec
	rollbacks  *prometheus.CounterVec
	settleTime *prometheus.HistogramVec
	queueDepth *prometheus.GaugeVec
}

// NewCartSyncMetrics registers the cart sync metrics on the provided registerer.
func NewCartSyncMetrics(reg prometheus.Registerer) *CartSyncMetrics {
	if reg == nil {
		return &CartSyncMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutations issued, by operation kind.",
	}, []string{"op"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutation_failures_total",
		Help: "Cart mutations rejected by the server or transport.",
	}, []string{"op"})
	rollbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_optimistic_rollbacks_total",
		Help: "Optimistic snapshots restored after a failed confirmation.",
	}, []string{"op"})
	settleTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_mutation_settle_seconds",
		Help:    "Time from enqueue to server settlement.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	queueDepth := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cart_mutation_queue_depth",
		Help: "Queued mutations awaiting their network call.",
	}, []string{"op"})
	reg.MustRegister(mutations, failures, rollbacks, settleTime, queueDepth)
	return &CartSyncMetrics{
		mutations:  mutations,
		failures:   failures,
		rollbacks:  rollbacks,
		settleTime: settleTime,
		queueDepth: queueDepth,
	}
}

// IncMutation counts one issued mutation of the given kind.
func (m *CartSyncMetrics) IncMutation(op string) {
	if m == nil || m.mutations == nil {
		return
	}
	m.mutations.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncFailure counts one failed settlement.
func (m *CartSyncMetrics) IncFailure(op string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncRollback counts one optimistic snapshot restore.
func (m *CartSyncMetrics) IncRollback(op string) {
	if m == nil || m.rollbacks == nil {
		return
	}
	m.rollbacks.WithLabelValues(normalizeLabel(op)).Inc()
}

// ObserveSettle records the enqueue-to-settlement duration.
func (m *CartSyncMetrics) ObserveSettle(op string, duration time.Duration) {
	if m == nil || m.settleTime == nil {
		return
	}
	m.settleTime.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// SetQueueDepth exposes the pending task count for one queue.
func (m *CartSyncMetrics) SetQueueDepth(op string, depth int) {
	if m == nil || m.queueDepth == nil {
		return
	}
	m.queueDepth.WithLabelValues(normalizeLabel(op)).Set(float64(depth))
}

func normalizeLabel(op string) string {
	if op == "" {
		return "unknown"
	}
	return op
}
