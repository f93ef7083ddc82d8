package gate

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/xbedrock/go-xgate/internal/core/metrics"
	"github.com/xbedrock/go-xgate/pkg/types"
)

// Metrics 准入门指标，nil 安全
type Metrics struct {
	DecisionsTotal     *prometheus.CounterVec
	AdmittedFromQueue  prometheus.Counter
	ExpiredTotal       prometheus.Counter
	QueueLength        prometheus.Gauge
	CurrentConnections prometheus.Gauge
	EffectiveCapacity  prometheus.Gauge
}

// NewMetrics 创建并注册准入门指标，reg 为 nil 时只创建不注册
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Admission decisions by outcome and reject reason",
		}, []string{"outcome", "reason"}),
		AdmittedFromQueue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "gate",
			Name:      "admitted_from_queue_total",
			Help:      "Queued requests admitted by a drain cycle",
		}),
		ExpiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "gate",
			Name:      "queue_expired_total",
			Help:      "Queued requests evicted after the queue timeout",
		}),
		QueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "gate",
			Name:      "queue_length",
			Help:      "Current number of queued requests",
		}),
		CurrentConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "gate",
			Name:      "current_connections",
			Help:      "Admissions whose reservation has not been released yet",
		}),
		EffectiveCapacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "gate",
			Name:      "effective_capacity",
			Help:      "Effective capacity of the last drain cycle",
		}),
	}

	m.DecisionsTotal = metrics.RegisterOrReuse(reg, m.DecisionsTotal)
	m.AdmittedFromQueue = metrics.RegisterOrReuse(reg, m.AdmittedFromQueue)
	m.ExpiredTotal = metrics.RegisterOrReuse(reg, m.ExpiredTotal)
	m.QueueLength = metrics.RegisterOrReuse(reg, m.QueueLength)
	m.CurrentConnections = metrics.RegisterOrReuse(reg, m.CurrentConnections)
	m.EffectiveCapacity = metrics.RegisterOrReuse(reg, m.EffectiveCapacity)
	return m
}

func (m *Metrics) recordDecision(d types.Decision) {
	if m == nil {
		return
	}
	reason := ""
	if d.Outcome == types.OutcomeRejected {
		reason = d.Reason.String()
	}
	m.DecisionsTotal.WithLabelValues(d.Outcome.String(), reason).Inc()
}

func (m *Metrics) recordDrain(admitted, expired, remaining, capacity int) {
	if m == nil {
		return
	}
	m.AdmittedFromQueue.Add(float64(admitted))
	m.ExpiredTotal.Add(float64(expired))
	m.QueueLength.Set(float64(remaining))
	m.EffectiveCapacity.Set(float64(capacity))
}

func (m *Metrics) setQueueLength(n int) {
	if m == nil {
		return
	}
	m.QueueLength.Set(float64(n))
}

func (m *Metrics) setCurrent(n int) {
	if m == nil {
		return
	}
	m.CurrentConnections.Set(float64(n))
}

func (m *Metrics) setCapacity(n int) {
	if m == nil {
		return
	}
	m.EffectiveCapacity.Set(float64(n))
}
