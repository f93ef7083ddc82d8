package config

import (
	"errors"
	"time"
)

// GuardConfig 数据包守卫配置
type GuardConfig struct {
	// MaxPacketSize 单个数据包的字节上限
	MaxPacketSize int `json:"max_packet_size"`

	// PacketMinSpacing 同一会话两个数据包的最小间隔
	PacketMinSpacing Duration `json:"packet_min_spacing"`

	// ViolationThreshold 单类别违规达到此值时踢出
	ViolationThreshold int `json:"violation_threshold"`

	// ViolationWindow 违规计数的衰减窗口
	ViolationWindow Duration `json:"violation_window"`

	// CrasherPayloadLimit 已知崩溃形态数据包的负载上限
	CrasherPayloadLimit int `json:"crasher_payload_limit"`

	// CrasherKinds 需要额外负载检查的数据包类型（子串匹配）
	CrasherKinds []string `json:"crasher_kinds"`

	// PrinterKinds 触发 printer 标记的数据包类型（子串匹配）
	PrinterKinds []string `json:"printer_kinds"`

	// FlagTTL 启发式标记存活时间
	FlagTTL Duration `json:"flag_ttl"`

	// KickedCacheSize 已踢出身份缓存大小
	KickedCacheSize int `json:"kicked_cache_size"`

	// LogPackets 以 Debug 级别记录每个数据包
	LogPackets bool `json:"log_packets"`
}

// DefaultGuardConfig 返回默认守卫配置
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		MaxPacketSize:       2 * 1024 * 1024,
		PacketMinSpacing:    Duration(time.Second),
		ViolationThreshold:  5,
		ViolationWindow:     Duration(time.Minute),
		CrasherPayloadLimit: 1000,
		CrasherKinds:        []string{"CustomPayload", "TabComplete", "WindowClick"},
		PrinterKinds:        []string{"BlockPlace"},
		FlagTTL:             Duration(30 * time.Second),
		KickedCacheSize:     1024,
	}
}

// Validate 验证守卫配置
func (c GuardConfig) Validate() error {
	if c.MaxPacketSize <= 0 {
		return errors.New("guard: max_packet_size must be positive")
	}
	if c.PacketMinSpacing < 0 {
		return errors.New("guard: packet_min_spacing must be non-negative")
	}
	if c.ViolationThreshold <= 0 {
		return errors.New("guard: violation_threshold must be positive")
	}
	if c.ViolationWindow <= 0 {
		return errors.New("guard: violation_window must be positive")
	}
	if c.CrasherPayloadLimit <= 0 {
		return errors.New("guard: crasher_payload_limit must be positive")
	}
	if c.FlagTTL <= 0 {
		return errors.New("guard: flag_ttl must be positive")
	}
	if c.KickedCacheSize <= 0 {
		return errors.New("guard: kicked_cache_size must be positive")
	}
	return nil
}

// WithMaxPacketSize 设置数据包上限
func (c GuardConfig) WithMaxPacketSize(n int) GuardConfig {
	c.MaxPacketSize = n
	return c
}

// WithViolationThreshold 设置违规阈值
func (c GuardConfig) WithViolationThreshold(n int) GuardConfig {
	c.ViolationThreshold = n
	return c
}

// WithPacketMinSpacing 设置最小包间隔
func (c GuardConfig) WithPacketMinSpacing(d time.Duration) GuardConfig {
	c.PacketMinSpacing = Duration(d)
	return c
}

// WithLogPackets 设置逐包日志
func (c GuardConfig) WithLogPackets(enabled bool) GuardConfig {
	c.LogPackets = enabled
	return c
}
