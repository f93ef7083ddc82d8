package guard

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/xbedrock/go-xgate/config"
	"github.com/xbedrock/go-xgate/internal/core/scheduler"
	pkgif "github.com/xbedrock/go-xgate/pkg/interfaces"
)

// TaskViolationReset 违规窗口重置任务名
const TaskViolationReset = "guard-violation-reset"

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("guard",
		fx.Provide(ProvideGuard),
		fx.Invoke(registerTasks),
		fx.Invoke(registerLifecycle),
	)
}

// providerInput 构造输入
type providerInput struct {
	fx.In
	Config     *config.Config `optional:"true"`
	Clock      clock.Clock
	Terminator pkgif.Terminator      `optional:"true"`
	EventBus   pkgif.EventBus        `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
}

// ProvideGuard 提供数据包守卫
func ProvideGuard(input providerInput) (*Guard, error) {
	cfg := DefaultConfig()
	if input.Config != nil {
		cfg = ConfigFromUnified(input.Config.Guard)
	}
	return New(cfg, input.Clock, input.Terminator, input.EventBus, NewMetrics(input.Registerer))
}

// registerTasks 注册违规窗口重置任务
func registerTasks(s *scheduler.Scheduler, g *Guard) error {
	return s.Every(TaskViolationReset, g.Config().ViolationWindow, func(now time.Time) { g.ResetWindows(now) })
}

// registerLifecycle 注册生命周期
func registerLifecycle(lc fx.Lifecycle, g *Guard) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return g.Close()
		},
	})
}
