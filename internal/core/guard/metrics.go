package guard

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/xbedrock/go-xgate/internal/core/metrics"
	"github.com/xbedrock/go-xgate/pkg/types"
)

// Metrics 守卫指标，nil 安全
type Metrics struct {
	InspectedTotal  *prometheus.CounterVec
	ViolationsTotal *prometheus.CounterVec
	KicksTotal      *prometheus.CounterVec
	Tracked         prometheus.Gauge
}

// NewMetrics 创建并注册守卫指标，reg 为 nil 时只创建不注册
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		InspectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "guard",
			Name:      "packets_inspected_total",
			Help:      "Inspected packets by verdict action",
		}, []string{"action"}),
		ViolationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "guard",
			Name:      "violations_total",
			Help:      "Recorded violations by category",
		}, []string{"category"}),
		KicksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "guard",
			Name:      "kicks_total",
			Help:      "Sessions kicked by triggering category",
		}, []string{"category"}),
		Tracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "guard",
			Name:      "tracked_sessions",
			Help:      "Identities with guard state",
		}),
	}

	m.InspectedTotal = metrics.RegisterOrReuse(reg, m.InspectedTotal)
	m.ViolationsTotal = metrics.RegisterOrReuse(reg, m.ViolationsTotal)
	m.KicksTotal = metrics.RegisterOrReuse(reg, m.KicksTotal)
	m.Tracked = metrics.RegisterOrReuse(reg, m.Tracked)
	return m
}

func (m *Metrics) inspected(v types.Verdict) {
	if m == nil {
		return
	}
	m.InspectedTotal.WithLabelValues(v.Action.String()).Inc()
	for _, c := range v.Violations {
		m.ViolationsTotal.WithLabelValues(string(c)).Inc()
	}
}

func (m *Metrics) kicked(c types.Category) {
	if m == nil {
		return
	}
	m.KicksTotal.WithLabelValues(string(c)).Inc()
}

func (m *Metrics) setTracked(n int) {
	if m == nil {
		return
	}
	m.Tracked.Set(float64(n))
}
