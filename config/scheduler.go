package config

import (
	"errors"
	"time"
)

// SchedulerConfig 周期任务驱动配置
type SchedulerConfig struct {
	// SlowTaskThreshold 单次任务执行超过此时长时告警
	SlowTaskThreshold Duration `json:"slow_task_threshold"`
}

// DefaultSchedulerConfig 返回默认调度配置
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		SlowTaskThreshold: Duration(100 * time.Millisecond),
	}
}

// Validate 验证调度配置
func (c SchedulerConfig) Validate() error {
	if c.SlowTaskThreshold < 0 {
		return errors.New("scheduler: slow_task_threshold must be non-negative")
	}
	return nil
}
