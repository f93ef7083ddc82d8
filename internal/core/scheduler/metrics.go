package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xbedrock/go-xgate/internal/core/metrics"
)

// Metrics 调度器指标，nil 安全
type Metrics struct {
	RunsTotal   *prometheus.CounterVec
	PanicsTotal *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
}

// NewMetrics 创建并注册调度器指标，reg 为 nil 时只创建不注册
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "scheduler",
			Name:      "task_runs_total",
			Help:      "Total number of periodic task runs",
		}, []string{"task"}),
		PanicsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "scheduler",
			Name:      "task_panics_total",
			Help:      "Total number of recovered periodic task panics",
		}, []string{"task"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "scheduler",
			Name:      "task_duration_seconds",
			Help:      "Periodic task run duration",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}, []string{"task"}),
	}

	m.RunsTotal = metrics.RegisterOrReuse(reg, m.RunsTotal)
	m.PanicsTotal = metrics.RegisterOrReuse(reg, m.PanicsTotal)
	m.Duration = metrics.RegisterOrReuse(reg, m.Duration)
	return m
}

func (m *Metrics) recordRun(name string, d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(name).Inc()
	m.Duration.WithLabelValues(name).Observe(d.Seconds())
}

func (m *Metrics) recordPanic(name string) {
	if m == nil {
		return
	}
	m.PanicsTotal.WithLabelValues(name).Inc()
}
