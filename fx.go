package xgate

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/xbedrock/go-xgate/internal/admin"
	"github.com/xbedrock/go-xgate/internal/core/eventbus"
	"github.com/xbedrock/go-xgate/internal/core/gate"
	"github.com/xbedrock/go-xgate/internal/core/guard"
	"github.com/xbedrock/go-xgate/internal/core/metrics"
	"github.com/xbedrock/go-xgate/internal/core/registry"
	"github.com/xbedrock/go-xgate/internal/core/reload"
	"github.com/xbedrock/go-xgate/internal/core/scheduler"
	"github.com/xbedrock/go-xgate/internal/core/storage"
	pkgif "github.com/xbedrock/go-xgate/pkg/interfaces"
	"github.com/xbedrock/go-xgate/pkg/types"
)

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 配置、时钟、外部协作方
//  2. Metrics → EventBus → Storage
//  3. Gate → Registry → Guard → Reload → Admin
//  4. Scheduler（最后启动、最先停止，停止后不再有周期任务触达其他组件）
func buildFxApp(cfg *nodeConfig, node *Node) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置验证（前置）
	// ════════════════════════════════════════════════════════════════════════
	if err := cfg.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 配置与外部协作方注入
	// ════════════════════════════════════════════════════════════════════════
	modules := []fx.Option{
		fx.Supply(cfg.config),
		fx.Provide(func() clock.Clock { return cfg.clock }),
	}
	if cfg.ping != nil {
		modules = append(modules, fx.Provide(func() pkgif.PingReader { return cfg.ping }))
	}
	if cfg.disconnector != nil {
		modules = append(modules, fx.Provide(func() pkgif.Disconnector { return cfg.disconnector }))
	}
	if cfg.store != nil {
		modules = append(modules, fx.Provide(fx.Annotate(
			func() pkgif.SessionStore { return cfg.store },
			fx.ResultTags(`name:"external_store"`),
		)))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 3. 基础组件
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		metrics.Module(cfg.registry),
		eventbus.Module(),
		storage.Module(),
	)

	// ════════════════════════════════════════════════════════════════════════
	// 4. 业务组件
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		gate.Module(),
		registry.Module(),
		guard.Module(),
		reload.Module(),
		admin.Module(),
	)

	// ════════════════════════════════════════════════════════════════════════
	// 5. 用户扩展（Fx Options）
	// ════════════════════════════════════════════════════════════════════════
	if len(cfg.userFxOptions) > 0 {
		modules = append(modules, cfg.userFxOptions...)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 6. 调度器（必须最后加载）
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, scheduler.Module())

	// ════════════════════════════════════════════════════════════════════════
	// 7. Node 组件注入
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, fx.Invoke(injectNodeComponents(node)))

	// ════════════════════════════════════════════════════════════════════════
	// 8. Fx 配置
	// ════════════════════════════════════════════════════════════════════════
	debug := cfg.config.Log.Level == "debug"
	modules = append(modules,
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: fxZapLogger(debug)}
		}),
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return app, nil
}

// fxZapLogger debug 级别时输出 Fx 事件，否则静默
func fxZapLogger(debug bool) *zap.Logger {
	if !debug {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// nodeInput Node 组件注入参数
type nodeInput struct {
	fx.In

	Gate      *gate.Gate
	Registry  *registry.Registry
	Guard     *guard.Guard
	Bus       *eventbus.Bus
	Reload    *reload.Manager
	Scheduler *scheduler.Scheduler
	Admin     *admin.Server  `optional:"true"`
	Store     *storage.Store `optional:"true"`
}

// injectNodeComponents 把 Fx 构造的组件注入 Node，并连接组件间的回调
func injectNodeComponents(node *Node) func(nodeInput) {
	return func(in nodeInput) {
		node.gate = in.Gate
		node.registry = in.Registry
		node.guard = in.Guard
		node.bus = in.Bus
		node.reload = in.Reload
		node.scheduler = in.Scheduler
		node.admin = in.Admin
		node.store = in.Store

		// 新会话清除上一次的踢出标记；会话结束时丢弃违规状态，保留踢出标记
		in.Registry.OnRegister(func(s types.Session) { in.Guard.Readmit(s.Identity) })
		in.Registry.OnClose(func(s types.Session) { in.Guard.Forget(s.Identity) })
	}
}
