package xgate

import (
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/xbedrock/go-xgate/config"
	pkgif "github.com/xbedrock/go-xgate/pkg/interfaces"
)

// Option 用户配置选项函数
type Option func(*nodeConfig) error

// nodeConfig 内部选项结构
type nodeConfig struct {
	// config 统一配置
	config *config.Config

	// clock 时间来源
	clock clock.Clock

	// 外部协作方
	ping         pkgif.PingReader
	disconnector pkgif.Disconnector
	store        pkgif.SessionStore

	// registry Prometheus 注册表，nil 时使用私有注册表
	registry *prometheus.Registry

	// userFxOptions 用户自定义 Fx 选项
	userFxOptions []fx.Option
}

// newNodeConfig 创建默认选项
func newNodeConfig() *nodeConfig {
	return &nodeConfig{
		config: config.NewConfig(),
		clock:  clock.New(),
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              配置来源
// ════════════════════════════════════════════════════════════════════════════

// WithConfig 使用给定配置
//
// 会替换之前选项对配置所做的修改，应放在其他选项之前。
func WithConfig(cfg *config.Config) Option {
	return func(c *nodeConfig) error {
		if cfg == nil {
			return ErrNilConfig
		}
		c.config = cfg.Clone()
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载配置
//
// 与 WithConfig 一样会替换之前的配置修改。
func WithConfigFile(path string) Option {
	return func(c *nodeConfig) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
		c.config = cfg
		return nil
	}
}

// WithDataDir 设置数据目录并启用会话持久化
func WithDataDir(dir string) Option {
	return func(c *nodeConfig) error {
		if dir == "" {
			return errors.New("data dir cannot be empty")
		}
		c.config.Storage = c.config.Storage.WithDataDir(dir).WithEnable(true)
		return nil
	}
}

// WithAdminListen 启用管理 API 并设置监听地址
func WithAdminListen(addr string) Option {
	return func(c *nodeConfig) error {
		c.config.Admin = c.config.Admin.WithListen(addr)
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              运行时依赖
// ════════════════════════════════════════════════════════════════════════════

// WithClock 替换时间来源
//
// 测试中使用 clock.NewMock() 驱动所有周期任务。
func WithClock(clk clock.Clock) Option {
	return func(c *nodeConfig) error {
		if clk == nil {
			return errors.New("clock cannot be nil")
		}
		c.clock = clk
		return nil
	}
}

// WithPingReader 设置延迟读取方
func WithPingReader(p pkgif.PingReader) Option {
	return func(c *nodeConfig) error {
		c.ping = p
		return nil
	}
}

// WithDisconnector 设置断开连接的执行方
//
// 未设置时断开指令只通过事件总线（types.EvtDisconnect）发出。
func WithDisconnector(d pkgif.Disconnector) Option {
	return func(c *nodeConfig) error {
		c.disconnector = d
		return nil
	}
}

// WithSessionStore 使用外部会话存储，不再打开内置 BadgerDB
func WithSessionStore(s pkgif.SessionStore) Option {
	return func(c *nodeConfig) error {
		c.store = s
		return nil
	}
}

// WithRegisterer 使用外部 Prometheus 注册表
func WithRegisterer(reg *prometheus.Registry) Option {
	return func(c *nodeConfig) error {
		c.registry = reg
		return nil
	}
}

// WithFxOption 追加自定义 Fx 选项
func WithFxOption(opts ...fx.Option) Option {
	return func(c *nodeConfig) error {
		c.userFxOptions = append(c.userFxOptions, opts...)
		return nil
	}
}
