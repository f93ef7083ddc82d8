package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Result Fx 模块输出
type Result struct {
	fx.Out

	Registry   *prometheus.Registry
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// Module 返回 Fx 模块
//
// reg 为 nil 时创建新的私有注册表。
func Module(reg *prometheus.Registry) fx.Option {
	return fx.Module("metrics",
		fx.Provide(func() Result {
			r := reg
			if r == nil {
				r = NewRegistry()
			}
			return Result{Registry: r, Registerer: r, Gatherer: r}
		}),
	)
}
