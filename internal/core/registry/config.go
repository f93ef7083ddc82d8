package registry

import (
	"fmt"
	"time"

	"github.com/xbedrock/go-xgate/config"
)

// Config 注册表配置
type Config struct {
	// PingInterval 延迟采样间隔
	PingInterval time.Duration

	// PositionUpdateInterval 同一身份位置更新的最小间隔
	PositionUpdateInterval time.Duration

	// RecentHistorySize 最近断开会话的保留条数
	RecentHistorySize int

	// PersistTimeout 单次持久化的超时时间
	PersistTimeout time.Duration

	// PersistQueueSize 异步持久化队列容量
	PersistQueueSize int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return ConfigFromUnified(config.DefaultRegistryConfig())
}

// ConfigFromUnified 从统一配置转换
func ConfigFromUnified(c config.RegistryConfig) Config {
	return Config{
		PingInterval:           c.PingInterval.Duration(),
		PositionUpdateInterval: c.PositionUpdateInterval.Duration(),
		RecentHistorySize:      c.RecentHistorySize,
		PersistTimeout:         5 * time.Second,
		PersistQueueSize:       1024,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	switch {
	case c.PingInterval <= 0:
		return fmt.Errorf("%w: ping interval must be positive", ErrInvalidConfig)
	case c.PositionUpdateInterval < 0:
		return fmt.Errorf("%w: position update interval must be non-negative", ErrInvalidConfig)
	case c.RecentHistorySize <= 0:
		return fmt.Errorf("%w: recent history size must be positive", ErrInvalidConfig)
	case c.PersistQueueSize < 0:
		return fmt.Errorf("%w: persist queue size must be non-negative", ErrInvalidConfig)
	}
	return nil
}
