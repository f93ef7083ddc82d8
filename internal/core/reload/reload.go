// Package reload 管理运行时配置热更新
//
// 只有准入门和数据包守卫的限制可以热更新；
// 其他配置段的变化会被保存，但要到下次启动才生效。
package reload

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/xbedrock/go-xgate/config"
	"github.com/xbedrock/go-xgate/internal/core/gate"
	"github.com/xbedrock/go-xgate/internal/core/guard"
	"github.com/xbedrock/go-xgate/pkg/lib/log"
)

var logger = log.Logger("core/reload")

// ErrNilConfig 配置为空
var ErrNilConfig = errors.New("reload: nil config")

// Manager 持有当前生效的配置
type Manager struct {
	mu    sync.Mutex
	cfg   *config.Config
	gate  *gate.Gate
	guard *guard.Guard
}

// New 创建热更新管理器，gate 与 guard 可为 nil
func New(cfg *config.Config, g *gate.Gate, gd *guard.Guard) *Manager {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &Manager{cfg: cfg.Clone(), gate: g, guard: gd}
}

// Current 返回当前配置的副本
func (m *Manager) Current() *config.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Clone()
}

// Apply 校验并应用新配置
//
// 两个组件的配置都通过校验后才会应用，不会出现只更新一半的情况。
// 返回需要重启才能生效的配置段名称。
func (m *Manager) Apply(cfg *config.Config) ([]string, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("reload: %w", err)
	}
	gateCfg := gate.ConfigFromUnified(cfg.Gate)
	if err := gateCfg.Validate(); err != nil {
		return nil, fmt.Errorf("reload: %w", err)
	}
	guardCfg := guard.ConfigFromUnified(cfg.Guard)
	if err := guardCfg.Validate(); err != nil {
		return nil, fmt.Errorf("reload: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gate != nil {
		if err := m.gate.UpdateConfig(gateCfg); err != nil {
			return nil, err
		}
	}
	if m.guard != nil {
		if err := m.guard.UpdateConfig(guardCfg); err != nil {
			return nil, err
		}
	}

	pending := restartSections(m.cfg, cfg)
	if m.cfg.Gate.QueueProcessInterval != cfg.Gate.QueueProcessInterval {
		pending = append(pending, "gate.queue_process_interval")
	}
	m.cfg = cfg.Clone()

	if len(pending) > 0 {
		logger.Warn("部分配置需要重启后生效", "sections", pending)
	}
	logger.Info("配置已热更新")
	return pending, nil
}

// restartSections 返回内容有变化且不支持热更新的配置段
func restartSections(old, cur *config.Config) []string {
	var out []string
	if !reflect.DeepEqual(old.Registry, cur.Registry) {
		out = append(out, "registry")
	}
	if !reflect.DeepEqual(old.Scheduler, cur.Scheduler) {
		out = append(out, "scheduler")
	}
	if !reflect.DeepEqual(old.Storage, cur.Storage) {
		out = append(out, "storage")
	}
	if !reflect.DeepEqual(old.Admin, cur.Admin) {
		out = append(out, "admin")
	}
	if !reflect.DeepEqual(old.Log, cur.Log) {
		out = append(out, "log")
	}
	return out
}
