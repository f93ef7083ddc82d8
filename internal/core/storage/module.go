package storage

import (
	"context"

	"go.uber.org/fx"

	"github.com/xbedrock/go-xgate/config"
	"github.com/xbedrock/go-xgate/pkg/interfaces"
)

// Params Storage 模块依赖参数
type Params struct {
	fx.In

	Config *config.Config `optional:"true"`
	// External 外部注入的会话存储，存在时不打开 BadgerDB
	External interfaces.SessionStore `name:"external_store" optional:"true"`
}

// Result Storage 模块输出
type Result struct {
	fx.Out

	SessionStore interfaces.SessionStore
	Store        *Store
}

// Module 返回 Storage Fx 模块
//
// 生命周期:
//   - OnStart: 启动 GC
//   - OnStop: 关闭数据库
func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(ProvideStorage),
		fx.Invoke(registerLifecycle),
	)
}

// OptionsFromUnified 从统一配置构建存储选项
func OptionsFromUnified(cfg config.StorageConfig) Options {
	return Options{
		Path:           cfg.DBPath(),
		SyncWrites:     cfg.SyncWrites,
		GCInterval:     cfg.GCInterval.Duration(),
		GCDiscardRatio: cfg.GCDiscardRatio,
	}
}

// ProvideStorage 提供会话存储
func ProvideStorage(p Params) (Result, error) {
	if p.External != nil {
		return Result{SessionStore: p.External}, nil
	}

	cfg := config.DefaultStorageConfig()
	if p.Config != nil {
		cfg = p.Config.Storage
	}
	if !cfg.Enable {
		logger.Info("会话持久化已禁用")
		return Result{SessionStore: NopStore{}}, nil
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	st, err := Open(OptionsFromUnified(cfg))
	if err != nil {
		logger.Error("打开会话存储失败", "error", err)
		return Result{}, err
	}
	return Result{SessionStore: st, Store: st}, nil
}

// lifecycleInput 生命周期输入
type lifecycleInput struct {
	fx.In
	LC    fx.Lifecycle
	Store *Store `optional:"true"`
}

func registerLifecycle(input lifecycleInput) {
	if input.Store == nil {
		return
	}
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return input.Store.Start()
		},
		OnStop: func(_ context.Context) error {
			if err := input.Store.Close(); err != nil {
				logger.Warn("会话存储关闭失败", "error", err)
				return err
			}
			return nil
		},
	})
}
