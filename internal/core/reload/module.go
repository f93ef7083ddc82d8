package reload

import (
	"go.uber.org/fx"

	"github.com/xbedrock/go-xgate/config"
	"github.com/xbedrock/go-xgate/internal/core/gate"
	"github.com/xbedrock/go-xgate/internal/core/guard"
)

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("reload",
		fx.Provide(ProvideManager),
	)
}

type providerInput struct {
	fx.In
	Config *config.Config `optional:"true"`
	Gate   *gate.Gate     `optional:"true"`
	Guard  *guard.Guard   `optional:"true"`
}

// ProvideManager 提供热更新管理器
func ProvideManager(input providerInput) *Manager {
	return New(input.Config, input.Gate, input.Guard)
}
