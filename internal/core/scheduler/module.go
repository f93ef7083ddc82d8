package scheduler

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/xbedrock/go-xgate/config"
)

// Module 返回 Fx 模块
//
// 调度器最后一个注册 OnStart，其他组件在 fx.Invoke 中完成任务注册。
func Module() fx.Option {
	return fx.Module("scheduler",
		fx.Provide(ProvideScheduler),
		fx.Invoke(registerLifecycle),
	)
}

// providerInput 构造输入
type providerInput struct {
	fx.In
	Clock      clock.Clock
	Config     *config.Config        `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
}

// ProvideScheduler 提供调度器
func ProvideScheduler(input providerInput) *Scheduler {
	opts := Options{Metrics: NewMetrics(input.Registerer)}
	if input.Config != nil {
		opts.SlowTaskThreshold = input.Config.Scheduler.SlowTaskThreshold.Duration()
	}
	return New(input.Clock, opts)
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In
	LC        fx.Lifecycle
	Scheduler *Scheduler
}

func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return input.Scheduler.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			return input.Scheduler.Stop()
		},
	})
}
