package config

import (
	"errors"
	"net"
)

// AdminConfig 管理 API 配置
type AdminConfig struct {
	// Enable 是否启动管理 API
	Enable bool `json:"enable"`

	// Listen 监听地址
	Listen string `json:"listen"`

	// RequestsPerSecond 请求速率上限
	RequestsPerSecond float64 `json:"requests_per_second"`

	// Burst 突发请求数
	Burst int `json:"burst"`

	// EnableMetrics 是否暴露 /metrics
	EnableMetrics bool `json:"enable_metrics"`
}

// DefaultAdminConfig 返回默认管理 API 配置
func DefaultAdminConfig() AdminConfig {
	return AdminConfig{
		Enable:            false,
		Listen:            "127.0.0.1:9470",
		RequestsPerSecond: 20,
		Burst:             40,
		EnableMetrics:     true,
	}
}

// Validate 验证管理 API 配置
func (c AdminConfig) Validate() error {
	if !c.Enable {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return errors.New("admin: listen must be host:port")
	}
	if c.RequestsPerSecond <= 0 {
		return errors.New("admin: requests_per_second must be positive")
	}
	if c.Burst <= 0 {
		return errors.New("admin: burst must be positive")
	}
	return nil
}

// WithListen 启用并设置监听地址
func (c AdminConfig) WithListen(addr string) AdminConfig {
	c.Enable = true
	c.Listen = addr
	return c
}
