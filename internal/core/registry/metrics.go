package registry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/xbedrock/go-xgate/internal/core/metrics"
)

// Metrics 注册表指标，nil 安全
type Metrics struct {
	ActiveSessions  prometheus.Gauge
	OpenedTotal     prometheus.Counter
	ClosedTotal     *prometheus.CounterVec
	PingFailures    prometheus.Counter
	PersistFailures prometheus.Counter
	Ping            prometheus.Histogram
}

// NewMetrics 创建并注册注册表指标，reg 为 nil 时只创建不注册
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "registry",
			Name:      "active_sessions",
			Help:      "Number of live sessions",
		}),
		OpenedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "registry",
			Name:      "sessions_opened_total",
			Help:      "Sessions registered",
		}),
		ClosedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "registry",
			Name:      "sessions_closed_total",
			Help:      "Sessions removed, by cause",
		}, []string{"cause"}),
		PingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "registry",
			Name:      "ping_failures_total",
			Help:      "Ping reads that failed or panicked",
		}),
		PersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "registry",
			Name:      "persist_failures_total",
			Help:      "Session records that could not be saved",
		}),
		Ping: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "registry",
			Name:      "ping_milliseconds",
			Help:      "Sampled session ping",
			Buckets:   []float64{10, 25, 50, 100, 200, 400, 800, 1600},
		}),
	}

	m.ActiveSessions = metrics.RegisterOrReuse(reg, m.ActiveSessions)
	m.OpenedTotal = metrics.RegisterOrReuse(reg, m.OpenedTotal)
	m.ClosedTotal = metrics.RegisterOrReuse(reg, m.ClosedTotal)
	m.PingFailures = metrics.RegisterOrReuse(reg, m.PingFailures)
	m.PersistFailures = metrics.RegisterOrReuse(reg, m.PersistFailures)
	m.Ping = metrics.RegisterOrReuse(reg, m.Ping)
	return m
}

// 会话移除原因
const (
	causeUnregister = "unregister"
	causeTerminate  = "terminate"
	causeShutdown   = "shutdown"
)

func (m *Metrics) opened(active int) {
	if m == nil {
		return
	}
	m.OpenedTotal.Inc()
	m.ActiveSessions.Set(float64(active))
}

func (m *Metrics) closed(cause string, active int) {
	if m == nil {
		return
	}
	m.ClosedTotal.WithLabelValues(cause).Inc()
	m.ActiveSessions.Set(float64(active))
}

func (m *Metrics) pingSampled(ms int) {
	if m == nil {
		return
	}
	m.Ping.Observe(float64(ms))
}

func (m *Metrics) pingFailed() {
	if m == nil {
		return
	}
	m.PingFailures.Inc()
}

func (m *Metrics) persistFailed() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}
