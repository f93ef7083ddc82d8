package gate

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

// 周期任务名
const (
	TaskDrain = "gate-drain"
	TaskSweep = "gate-sweep"
)

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("gate",
		fx.Provide(ProvideGate),
		fx.Invoke(registerTasks),
		fx.Invoke(registerLifecycle),
	)
}

// providerInput 构造输入
type providerInput struct {
	fx.In
	Config     *config.Config `optional:"true"`
	Clock      clock.Clock
	EventBus   pkgif.EventBus        `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
}

// ConfigFromConfig 从统一配置创建准入门配置
func ConfigFromConfig(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return ConfigFromUnified(cfg.Gate)
}

// ProvideGate 提供准入门
func ProvideGate(input providerInput) (*Gate, error) {
	return New(ConfigFromConfig(input.Config), input.Clock, input.EventBus, NewMetrics(input.Registerer))
}

// registerTasks 向调度器注册排空与扫描任务
func registerTasks(s *scheduler.Scheduler, g *Gate) error {
	cfg := g.Config()
	if err := s.Every(TaskDrain, cfg.QueueProcessInterval, func(now time.Time) { g.Drain(now) }); err != nil {
		return err
	}
	return s.Every(TaskSweep, cfg.SweepInterval, func(now time.Time) { g.Sweep(now) })
}

// registerLifecycle 注册生命周期
func registerLifecycle(lc fx.Lifecycle, g *Gate) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return g.Close()
		},
	})
}
