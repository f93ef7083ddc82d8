// Package config 提供 xgate 的统一配置管理
//
// 主 Config 结构体嵌入所有子配置，每个子配置在独立文件中定义，
// 各自提供 Default*Config、Validate 和 With* 方法。
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Gate = cfg.Gate.WithMaxQueueSize(200)
//
//	// 从 JSON 文件加载
//	cfg, err := config.LoadFile("xgate.json")
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Config 是 xgate 的完整配置结构
//
//   - Gate: 准入门（速率、队列、单 IP 上限、高峰时段）
//   - Registry: 会话注册表（延迟采样、位置节流）
//   - Guard: 数据包守卫（大小、间隔、违规阈值）
//   - Scheduler: 周期任务驱动
//   - Storage: 会话持久化
//   - Admin: 管理 API
//   - Log: 日志
type Config struct {
	// Gate 准入门配置
	Gate GateConfig `json:"gate"`

	// Registry 会话注册表配置
	Registry RegistryConfig `json:"registry"`

	// Guard 数据包守卫配置
	Guard GuardConfig `json:"guard"`

	// Scheduler 周期任务配置
	Scheduler SchedulerConfig `json:"scheduler"`

	// Storage 存储配置
	Storage StorageConfig `json:"storage"`

	// Admin 管理 API 配置
	Admin AdminConfig `json:"admin"`

	// Log 日志配置
	Log LogConfig `json:"log"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Gate:      DefaultGateConfig(),
		Registry:  DefaultRegistryConfig(),
		Guard:     DefaultGuardConfig(),
		Scheduler: DefaultSchedulerConfig(),
		Storage:   DefaultStorageConfig(),
		Admin:     DefaultAdminConfig(),
		Log:       DefaultLogConfig(),
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := c.Gate.Validate(); err != nil {
		return err
	}
	if err := c.Registry.Validate(); err != nil {
		return err
	}
	if err := c.Guard.Validate(); err != nil {
		return err
	}
	if err := c.Scheduler.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Admin.Validate(); err != nil {
		return err
	}
	return c.Log.Validate()
}

// Clone 返回深拷贝
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Gate.PeakHours = append([]int(nil), c.Gate.PeakHours...)
	cp.Guard.CrasherKinds = append([]string(nil), c.Guard.CrasherKinds...)
	cp.Guard.PrinterKinds = append([]string(nil), c.Guard.PrinterKinds...)
	return &cp
}

// FromJSON 从 JSON 数据创建配置
//
// 未出现的字段保持默认值。
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// LoadFile 从 JSON 文件加载并验证配置
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg, err := FromJSON(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// ToJSON 将配置序列化为带缩进的 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
