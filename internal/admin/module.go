package admin

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/xbedrock/go-xgate/config"
	"github.com/xbedrock/go-xgate/internal/core/gate"
	"github.com/xbedrock/go-xgate/internal/core/guard"
	"github.com/xbedrock/go-xgate/internal/core/registry"
	"github.com/xbedrock/go-xgate/internal/core/reload"
	"github.com/xbedrock/go-xgate/internal/core/scheduler"
)

// Module 返回 Fx 模块
//
// admin.enable 为 false 时不提供服务器。
func Module() fx.Option {
	return fx.Module("admin",
		fx.Provide(ProvideServer),
		fx.Invoke(registerLifecycle),
	)
}

type providerInput struct {
	fx.In
	Config    *config.Config `optional:"true"`
	Clock     clock.Clock
	Gate      *gate.Gate
	Registry  *registry.Registry
	Guard     *guard.Guard
	Scheduler *scheduler.Scheduler
	Reload    *reload.Manager     `optional:"true"`
	Gatherer  prometheus.Gatherer `optional:"true"`
}

// ProvideServer 提供管理 API 服务器，未启用时返回 nil
func ProvideServer(input providerInput) (*Server, error) {
	if input.Config == nil || !input.Config.Admin.Enable {
		return nil, nil
	}
	deps := Deps{
		Gate:      input.Gate,
		Registry:  input.Registry,
		Guard:     input.Guard,
		Scheduler: input.Scheduler,
		Gatherer:  input.Gatherer,
		Clock:     input.Clock,
	}
	if input.Reload != nil {
		deps.Reloader = input.Reload
	}
	return New(input.Config.Admin, deps)
}

func registerLifecycle(lc fx.Lifecycle, s *Server) {
	if s == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return s.Start()
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
}
