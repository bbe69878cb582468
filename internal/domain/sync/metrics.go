package sync

import "github.com/prometheus/client_golang/prometheus"

const (
	metricsNamespace = "learning_app"
	metricsSubsystem = "sync"
)

// Metrics holds the coordinator's prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	fetches *prometheus.CounterVec
	submits *prometheus.CounterVec
	flushed *prometheus.CounterVec
	pending prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "fetches_total",
			Help:      "Remote lesson fetches by result.",
		}, []string{"result"}),
		submits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "submits_total",
			Help:      "Best-effort remote submits by operation kind and result.",
		}, []string{"kind", "result"}),
		flushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "outbox_flushed_total",
			Help:      "Outbox entries processed by flush, by result.",
		}, []string{"result"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "outbox_pending",
			Help:      "Mutations waiting in the outbox for remote delivery.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.fetches, m.submits, m.flushed, m.pending)
	}
	return m
}

func (m *Metrics) fetch(result string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(result).Inc()
}

func (m *Metrics) submit(kind OperationKind, result string) {
	if m == nil {
		return
	}
	m.submits.WithLabelValues(string(kind), result).Inc()
}

func (m *Metrics) flush(result string) {
	if m == nil {
		return
	}
	m.flushed.WithLabelValues(result).Inc()
}

func (m *Metrics) setPending(count int64) {
	if m == nil {
		return
	}
	m.pending.Set(float64(count))
}
