package eventbus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/xbedrock/go-xgate/internal/core/metrics"
)

// Metrics 事件总线指标，nil 安全
type Metrics struct {
	EmittedTotal *prometheus.CounterVec
	DroppedTotal *prometheus.CounterVec
}

// NewMetrics 创建并注册事件总线指标
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EmittedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "eventbus",
			Name:      "emitted_total",
			Help:      "Total number of emitted events by type",
		}, []string{"type"}),
		DroppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "eventbus",
			Name:      "dropped_total",
			Help:      "Total number of events dropped because a subscriber buffer was full",
		}, []string{"type"}),
	}
	m.EmittedTotal = metrics.RegisterOrReuse(reg, m.EmittedTotal)
	m.DroppedTotal = metrics.RegisterOrReuse(reg, m.DroppedTotal)
	return m
}

func (m *Metrics) recordEmit(typ string) {
	if m == nil {
		return
	}
	m.EmittedTotal.WithLabelValues(typ).Inc()
}

func (m *Metrics) recordDrop(typ string) {
	if m == nil {
		return
	}
	m.DroppedTotal.WithLabelValues(typ).Inc()
}
