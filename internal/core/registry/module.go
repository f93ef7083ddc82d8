package registry

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

// TaskPing 延迟采样任务名
const TaskPing = "registry-ping"

// Module 返回 Fx 模块
//
// 生命周期:
//   - OnStop: 持久化剩余会话并清空注册表
func Module() fx.Option {
	return fx.Module("registry",
		fx.Provide(ProvideRegistry),
		fx.Invoke(registerTasks),
		fx.Invoke(registerLifecycle),
	)
}

// providerInput 构造输入
type providerInput struct {
	fx.In
	Config       *config.Config `optional:"true"`
	Clock        clock.Clock
	Store        pkgif.SessionStore    `optional:"true"`
	Ping         pkgif.PingReader      `optional:"true"`
	Disconnector pkgif.Disconnector    `optional:"true"`
	EventBus     pkgif.EventBus        `optional:"true"`
	Registerer   prometheus.Registerer `optional:"true"`
}

// Result 模块输出
type Result struct {
	fx.Out

	Registry   *Registry
	Terminator pkgif.Terminator
}

// ProvideRegistry 提供会话注册表
func ProvideRegistry(input providerInput) (Result, error) {
	cfg := DefaultConfig()
	if input.Config != nil {
		cfg = ConfigFromUnified(input.Config.Registry)
	}
	r, err := New(cfg, input.Clock, Dependencies{
		Store:        input.Store,
		Ping:         input.Ping,
		Disconnector: input.Disconnector,
		Bus:          input.EventBus,
		Metrics:      NewMetrics(input.Registerer),
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Registry: r, Terminator: r}, nil
}

// registerTasks 注册延迟采样任务
func registerTasks(s *scheduler.Scheduler, r *Registry) error {
	return s.Every(TaskPing, r.Config().PingInterval, func(now time.Time) { r.SamplePings(now) })
}

// registerLifecycle 注册生命周期
func registerLifecycle(lc fx.Lifecycle, r *Registry) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return r.Close()
		},
	})
}
