package guard

import (
	"fmt"
	"strings"
	"time"

	"github.com/xbedrock/go-xgate/config"
)

// Config 守卫配置
type Config struct {
	MaxPacketSize       int
	PacketMinSpacing    time.Duration
	ViolationThreshold  int
	ViolationWindow     time.Duration
	CrasherPayloadLimit int
	CrasherKinds        []string
	PrinterKinds        []string
	FlagTTL             time.Duration
	KickedCacheSize     int
	LogPackets          bool
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return ConfigFromUnified(config.DefaultGuardConfig())
}

// ConfigFromUnified 从统一配置转换
func ConfigFromUnified(c config.GuardConfig) Config {
	return Config{
		MaxPacketSize:       c.MaxPacketSize,
		PacketMinSpacing:    c.PacketMinSpacing.Duration(),
		ViolationThreshold:  c.ViolationThreshold,
		ViolationWindow:     c.ViolationWindow.Duration(),
		CrasherPayloadLimit: c.CrasherPayloadLimit,
		CrasherKinds:        append([]string(nil), c.CrasherKinds...),
		PrinterKinds:        append([]string(nil), c.PrinterKinds...),
		FlagTTL:             c.FlagTTL.Duration(),
		KickedCacheSize:     c.KickedCacheSize,
		LogPackets:          c.LogPackets,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	switch {
	case c.MaxPacketSize <= 0:
		return fmt.Errorf("%w: max packet size must be positive", ErrInvalidConfig)
	case c.PacketMinSpacing < 0:
		return fmt.Errorf("%w: packet min spacing must be non-negative", ErrInvalidConfig)
	case c.ViolationThreshold <= 0:
		return fmt.Errorf("%w: violation threshold must be positive", ErrInvalidConfig)
	case c.ViolationWindow <= 0:
		return fmt.Errorf("%w: violation window must be positive", ErrInvalidConfig)
	case c.CrasherPayloadLimit <= 0:
		return fmt.Errorf("%w: crasher payload limit must be positive", ErrInvalidConfig)
	case c.FlagTTL <= 0:
		return fmt.Errorf("%w: flag ttl must be positive", ErrInvalidConfig)
	case c.KickedCacheSize <= 0:
		return fmt.Errorf("%w: kicked cache size must be positive", ErrInvalidConfig)
	}
	return nil
}

// isCrasherKind 数据包类型是否属于已知崩溃形态
func (c *Config) isCrasherKind(kind string) bool {
	return containsAny(kind, c.CrasherKinds)
}

// isPrinterKind 数据包类型是否属于方块放置
func (c *Config) isPrinterKind(kind string) bool {
	return containsAny(kind, c.PrinterKinds)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
