package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xbedrock/go-xgate/config"
)

// 环境变量名（均带 XGATE_ 前缀）
const (
	envPrefix = "XGATE_"

	envConfigFile         = "CONFIG"
	envDataDir            = "DATA_DIR"
	envStorageEnable      = "STORAGE_ENABLE"
	envAdminListen        = "ADMIN_LISTEN"
	envLogLevel           = "LOG_LEVEL"
	envLogFormat          = "LOG_FORMAT"
	envLogFile            = "LOG_FILE"
	envMaxConnsPerSecond  = "MAX_CONNECTIONS_PER_SECOND"
	envMaxQueueSize       = "MAX_QUEUE_SIZE"
	envMaxConnsPerIP      = "MAX_CONNECTIONS_PER_IP"
	envTimezone           = "TIMEZONE"
	envMaxPacketSize      = "MAX_PACKET_SIZE"
	envViolationThreshold = "VIOLATION_THRESHOLD"
	envLogPackets         = "LOG_PACKETS"
)

// applyEnvOverrides 应用环境变量覆盖配置
//
// 环境变量优先级高于配置文件，但低于命令行参数。数值解析失败时返回错误。
func applyEnvOverrides(cfg *config.Config, getenv func(string) string) error {
	get := func(name string) string {
		return strings.TrimSpace(getenv(envPrefix + name))
	}

	// 存储
	if v := get(envDataDir); v != "" {
		cfg.Storage = cfg.Storage.WithDataDir(v).WithEnable(true)
	}
	if v := get(envStorageEnable); v != "" {
		cfg.Storage = cfg.Storage.WithEnable(parseBool(v))
	}

	// 管理 API
	if v := get(envAdminListen); v != "" {
		cfg.Admin = cfg.Admin.WithListen(v)
	}

	// 日志
	if v := get(envLogLevel); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := get(envLogFormat); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}
	if v := get(envLogFile); v != "" {
		cfg.Log.File = v
	}

	// 准入门
	ints := []struct {
		name string
		set  func(int)
	}{
		{envMaxConnsPerSecond, func(n int) { cfg.Gate = cfg.Gate.WithMaxConnectionsPerSecond(n) }},
		{envMaxQueueSize, func(n int) { cfg.Gate = cfg.Gate.WithMaxQueueSize(n) }},
		{envMaxConnsPerIP, func(n int) { cfg.Gate = cfg.Gate.WithMaxConnectionsPerIP(n) }},
		{envMaxPacketSize, func(n int) { cfg.Guard = cfg.Guard.WithMaxPacketSize(n) }},
		{envViolationThreshold, func(n int) { cfg.Guard = cfg.Guard.WithViolationThreshold(n) }},
	}
	for _, it := range ints {
		v := get(it.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, it.name, err)
		}
		it.set(n)
	}
	if v := get(envTimezone); v != "" {
		cfg.Gate = cfg.Gate.WithTimezone(v)
	}

	// 守卫
	if v := get(envLogPackets); v != "" {
		cfg.Guard = cfg.Guard.WithLogPackets(parseBool(v))
	}
	return nil
}

// parseBool 解析布尔值字符串
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
