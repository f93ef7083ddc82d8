package eventbus

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	pkgif "github.com/xbedrock/go-xgate/pkg/interfaces"
)

// Result Fx 模块输出结果
type Result struct {
	fx.Out

	Bus      *Bus
	EventBus pkgif.EventBus
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("eventbus",
		fx.Provide(ProvideEventBus),
		fx.Invoke(registerLifecycle),
	)
}

// providerInput 构造输入
type providerInput struct {
	fx.In
	Registerer prometheus.Registerer `optional:"true"`
}

// ProvideEventBus 提供 EventBus 实例
func ProvideEventBus(input providerInput) Result {
	bus := NewBus(NewMetrics(input.Registerer))
	return Result{Bus: bus, EventBus: bus}
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In
	LC  fx.Lifecycle
	Bus *Bus
}

// registerLifecycle 停止时关闭所有订阅
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return input.Bus.Close()
		},
	})
}
