package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// StorageConfig 会话持久化配置
//
// 数据目录结构：
//
//	${DataDir}/
//	└── sessions.db/        # BadgerDB
type StorageConfig struct {
	// Enable 是否启用持久化；禁用时会话结束后的记录被丢弃
	Enable bool `json:"enable"`

	// DataDir 数据目录路径
	DataDir string `json:"data_dir"`

	// SyncWrites 每次写入是否同步落盘
	SyncWrites bool `json:"sync_writes"`

	// GCInterval Value Log GC 间隔
	GCInterval Duration `json:"gc_interval"`

	// GCDiscardRatio Value Log GC 丢弃比例
	GCDiscardRatio float64 `json:"gc_discard_ratio"`
}

// DefaultStorageConfig 返回默认存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Enable:         true,
		DataDir:        "./data",
		GCInterval:     Duration(10 * time.Minute),
		GCDiscardRatio: 0.5,
	}
}

// Validate 验证存储配置
func (c StorageConfig) Validate() error {
	if !c.Enable {
		return nil
	}
	if c.DataDir == "" {
		return fmt.Errorf("storage: data_dir cannot be empty")
	}
	if c.GCInterval <= 0 {
		return errors.New("storage: gc_interval must be positive")
	}
	if c.GCDiscardRatio <= 0 || c.GCDiscardRatio >= 1 {
		return errors.New("storage: gc_discard_ratio must be in (0, 1)")
	}
	return nil
}

// DBPath 返回 BadgerDB 数据库路径
func (c StorageConfig) DBPath() string {
	return filepath.Join(c.DataDir, "sessions.db")
}

// WithDataDir 设置数据目录
func (c StorageConfig) WithDataDir(dir string) StorageConfig {
	c.DataDir = dir
	return c
}

// WithEnable 设置是否启用
func (c StorageConfig) WithEnable(enabled bool) StorageConfig {
	c.Enable = enabled
	return c
}
