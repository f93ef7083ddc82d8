package config

import (
	"errors"
	"fmt"
	"time"
)

// GateConfig 准入门配置
//
// 控制单位时间放行数量、等待队列、单 IP 在途尝试上限和高峰时段扩容。
type GateConfig struct {
	// MaxConnectionsPerSecond 每个排空周期的基础放行数
	MaxConnectionsPerSecond int `json:"max_connections_per_second"`

	// MaxQueueSize 等待队列上限
	MaxQueueSize int `json:"max_queue_size"`

	// MaxConnectionsPerIP 单个地址的在途尝试上限
	// 排队中与已放行但预留未释放的请求都计入
	MaxConnectionsPerIP int `json:"max_connections_per_ip"`

	// QueueProcessInterval 队列排空间隔
	QueueProcessInterval Duration `json:"queue_process_interval"`

	// PeakHourMultiplier 高峰时段容量倍数
	PeakHourMultiplier int `json:"peak_hour_multiplier"`

	// PeakHours 高峰小时集合（0-23）
	PeakHours []int `json:"peak_hours"`

	// Timezone 判定高峰时段使用的时区（IANA 名称），空表示本地时区
	Timezone string `json:"timezone,omitempty"`

	// QueueEntryTimeout 排队条目最长存活时间
	QueueEntryTimeout Duration `json:"queue_entry_timeout"`

	// ReservationGrace 放行预留的自动释放时间
	ReservationGrace Duration `json:"reservation_grace"`

	// ReconnectCooldown 同一身份两次放行的最小间隔
	ReconnectCooldown Duration `json:"reconnect_cooldown"`

	// SweepInterval 预留释放扫描间隔
	SweepInterval Duration `json:"sweep_interval"`
}

// DefaultGateConfig 返回默认准入门配置
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MaxConnectionsPerSecond: 20,
		MaxQueueSize:            100,
		MaxConnectionsPerIP:     3,
		QueueProcessInterval:    Duration(time.Second),
		PeakHourMultiplier:      2,
		PeakHours:               []int{16, 17, 18, 19, 20, 21, 22},
		QueueEntryTimeout:       Duration(30 * time.Second),
		ReservationGrace:        Duration(5 * time.Minute),
		ReconnectCooldown:       Duration(time.Second),
		SweepInterval:           Duration(time.Second),
	}
}

// Validate 验证准入门配置
func (c GateConfig) Validate() error {
	if c.MaxConnectionsPerSecond <= 0 {
		return errors.New("gate: max_connections_per_second must be positive")
	}
	if c.MaxQueueSize < 0 {
		return errors.New("gate: max_queue_size must be non-negative")
	}
	if c.MaxConnectionsPerIP <= 0 {
		return errors.New("gate: max_connections_per_ip must be positive")
	}
	if c.QueueProcessInterval <= 0 {
		return errors.New("gate: queue_process_interval must be positive")
	}
	if c.PeakHourMultiplier < 1 {
		return errors.New("gate: peak_hour_multiplier must be at least 1")
	}
	for _, h := range c.PeakHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("gate: peak hour %d out of range 0-23", h)
		}
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("gate: invalid timezone %q: %w", c.Timezone, err)
		}
	}
	if c.QueueEntryTimeout <= 0 {
		return errors.New("gate: queue_entry_timeout must be positive")
	}
	if c.ReservationGrace <= 0 {
		return errors.New("gate: reservation_grace must be positive")
	}
	if c.ReconnectCooldown < 0 {
		return errors.New("gate: reconnect_cooldown must be non-negative")
	}
	if c.SweepInterval <= 0 {
		return errors.New("gate: sweep_interval must be positive")
	}
	return nil
}

// Location 返回高峰判定时区
func (c GateConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// WithMaxConnectionsPerSecond 设置基础放行速率
func (c GateConfig) WithMaxConnectionsPerSecond(n int) GateConfig {
	c.MaxConnectionsPerSecond = n
	return c
}

// WithMaxQueueSize 设置队列上限
func (c GateConfig) WithMaxQueueSize(n int) GateConfig {
	c.MaxQueueSize = n
	return c
}

// WithMaxConnectionsPerIP 设置单 IP 上限
func (c GateConfig) WithMaxConnectionsPerIP(n int) GateConfig {
	c.MaxConnectionsPerIP = n
	return c
}

// WithPeakHours 设置高峰时段与倍数
func (c GateConfig) WithPeakHours(multiplier int, hours ...int) GateConfig {
	c.PeakHourMultiplier = multiplier
	c.PeakHours = hours
	return c
}

// WithTimezone 设置高峰判定时区
func (c GateConfig) WithTimezone(tz string) GateConfig {
	c.Timezone = tz
	return c
}

// WithQueueProcessInterval 设置排空间隔
func (c GateConfig) WithQueueProcessInterval(d time.Duration) GateConfig {
	c.QueueProcessInterval = Duration(d)
	return c
}
