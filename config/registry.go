package config

import (
	"errors"
	"time"
)

// RegistryConfig 会话注册表配置
type RegistryConfig struct {
	// PingInterval 延迟采样间隔
	PingInterval Duration `json:"ping_interval"`

	// PositionUpdateInterval 同一身份位置更新的最小间隔
	PositionUpdateInterval Duration `json:"position_update_interval"`

	// RecentHistorySize 最近断开会话的保留条数
	RecentHistorySize int `json:"recent_history_size"`
}

// DefaultRegistryConfig 返回默认注册表配置
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		PingInterval:           Duration(5 * time.Second),
		PositionUpdateInterval: Duration(2500 * time.Millisecond),
		RecentHistorySize:      256,
	}
}

// Validate 验证注册表配置
func (c RegistryConfig) Validate() error {
	if c.PingInterval <= 0 {
		return errors.New("registry: ping_interval must be positive")
	}
	if c.PositionUpdateInterval < 0 {
		return errors.New("registry: position_update_interval must be non-negative")
	}
	if c.RecentHistorySize <= 0 {
		return errors.New("registry: recent_history_size must be positive")
	}
	return nil
}

// WithPingInterval 设置采样间隔
func (c RegistryConfig) WithPingInterval(d time.Duration) RegistryConfig {
	c.PingInterval = Duration(d)
	return c
}

// WithPositionUpdateInterval 设置位置节流间隔
func (c RegistryConfig) WithPositionUpdateInterval(d time.Duration) RegistryConfig {
	c.PositionUpdateInterval = Duration(d)
	return c
}
