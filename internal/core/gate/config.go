package gate

import (
	"fmt"
	"time"

	"github.com/xbedrock/go-xgate/config"
)

// Config 准入门运行时配置
type Config struct {
	// MaxConnectionsPerSecond 每个排空周期的基础容量
	MaxConnectionsPerSecond int

	// MaxQueueSize 队列上限
	MaxQueueSize int

	// MaxConnectionsPerIP 单地址在途尝试上限
	MaxConnectionsPerIP int

	// QueueProcessInterval 排空间隔
	QueueProcessInterval time.Duration

	// PeakHourMultiplier 高峰倍数
	PeakHourMultiplier int

	// PeakHours 高峰小时集合
	PeakHours []int

	// Location 高峰判定时区
	Location *time.Location

	// QueueEntryTimeout 排队超时
	QueueEntryTimeout time.Duration

	// ReservationGrace 预留自动释放时间
	ReservationGrace time.Duration

	// ReconnectCooldown 同一身份重连冷却
	ReconnectCooldown time.Duration

	// SweepInterval 预留扫描间隔
	SweepInterval time.Duration

	peak [24]bool
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return ConfigFromUnified(config.DefaultGateConfig())
}

// ConfigFromUnified 从统一配置创建准入门配置
func ConfigFromUnified(c config.GateConfig) Config {
	return Config{
		MaxConnectionsPerSecond: c.MaxConnectionsPerSecond,
		MaxQueueSize:            c.MaxQueueSize,
		MaxConnectionsPerIP:     c.MaxConnectionsPerIP,
		QueueProcessInterval:    c.QueueProcessInterval.Duration(),
		PeakHourMultiplier:      c.PeakHourMultiplier,
		PeakHours:               append([]int(nil), c.PeakHours...),
		Location:                c.Location(),
		QueueEntryTimeout:       c.QueueEntryTimeout.Duration(),
		ReservationGrace:        c.ReservationGrace.Duration(),
		ReconnectCooldown:       c.ReconnectCooldown.Duration(),
		SweepInterval:           c.SweepInterval.Duration(),
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	switch {
	case c.MaxConnectionsPerSecond <= 0:
		return fmt.Errorf("%w: max connections per second must be positive", ErrInvalidConfig)
	case c.MaxQueueSize < 0:
		return fmt.Errorf("%w: max queue size must be non-negative", ErrInvalidConfig)
	case c.MaxConnectionsPerIP <= 0:
		return fmt.Errorf("%w: max connections per ip must be positive", ErrInvalidConfig)
	case c.PeakHourMultiplier < 1:
		return fmt.Errorf("%w: peak hour multiplier must be at least 1", ErrInvalidConfig)
	case c.QueueEntryTimeout <= 0:
		return fmt.Errorf("%w: queue entry timeout must be positive", ErrInvalidConfig)
	case c.ReservationGrace <= 0:
		return fmt.Errorf("%w: reservation grace must be positive", ErrInvalidConfig)
	case c.ReconnectCooldown < 0:
		return fmt.Errorf("%w: reconnect cooldown must be non-negative", ErrInvalidConfig)
	}
	for _, h := range c.PeakHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("%w: peak hour %d out of range", ErrInvalidConfig, h)
		}
	}
	return nil
}

// compile 预计算高峰表
func (c Config) compile() Config {
	c.peak = [24]bool{}
	for _, h := range c.PeakHours {
		if h >= 0 && h < 24 {
			c.peak[h] = true
		}
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	if c.QueueProcessInterval <= 0 {
		c.QueueProcessInterval = time.Second
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Second
	}
	return c
}

// isPeak 判断 now 是否处于高峰时段
func (c *Config) isPeak(now time.Time) bool {
	return c.peak[now.In(c.Location).Hour()]
}

// capacity 返回 now 时刻的有效容量
func (c *Config) capacity(now time.Time) int {
	if c.isPeak(now) {
		return c.MaxConnectionsPerSecond * c.PeakHourMultiplier
	}
	return c.MaxConnectionsPerSecond
}
