package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xbedrock/go-xgate/config"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

// TestApplyEnvOverrides 测试环境变量覆盖
func TestApplyEnvOverrides(t *testing.T) {
	cfg := config.NewConfig()
	err := applyEnvOverrides(cfg, envMap(map[string]string{
		"XGATE_DATA_DIR":                   "/var/lib/xgate",
		"XGATE_ADMIN_LISTEN":               "127.0.0.1:9999",
		"XGATE_LOG_LEVEL":                  "DEBUG",
		"XGATE_MAX_CONNECTIONS_PER_SECOND": " 50 ",
		"XGATE_MAX_QUEUE_SIZE":             "10",
		"XGATE_TIMEZONE":                   "UTC",
		"XGATE_VIOLATION_THRESHOLD":        "3",
		"XGATE_LOG_PACKETS":                "yes",
	}))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/xgate", cfg.Storage.DataDir)
	assert.True(t, cfg.Storage.Enable)
	assert.True(t, cfg.Admin.Enable)
	assert.Equal(t, "127.0.0.1:9999", cfg.Admin.Listen)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 50, cfg.Gate.MaxConnectionsPerSecond)
	assert.Equal(t, 10, cfg.Gate.MaxQueueSize)
	assert.Equal(t, "UTC", cfg.Gate.Timezone)
	assert.Equal(t, 3, cfg.Guard.ViolationThreshold)
	assert.True(t, cfg.Guard.LogPackets)
	assert.NoError(t, cfg.Validate())

	t.Log("✅ 环境变量覆盖测试通过")
}

// TestApplyEnvOverrides_Invalid 测试无效数值
func TestApplyEnvOverrides_Invalid(t *testing.T) {
	cfg := config.NewConfig()
	err := applyEnvOverrides(cfg, envMap(map[string]string{"XGATE_MAX_QUEUE_SIZE": "many"}))
	assert.ErrorContains(t, err, "XGATE_MAX_QUEUE_SIZE")

	// 未设置时保持原值
	cfg = config.NewConfig()
	require.NoError(t, applyEnvOverrides(cfg, envMap(nil)))
	assert.Equal(t, config.NewConfig(), cfg)

	t.Log("✅ 无效环境变量测试通过")
}

// TestParseBool 测试布尔解析
func TestParseBool(t *testing.T) {
	for _, s := range []string{"true", "1", "YES", " on "} {
		assert.True(t, parseBool(s), s)
	}
	for _, s := range []string{"false", "0", "no", ""} {
		assert.False(t, parseBool(s), s)
	}
	t.Log("✅ 布尔解析测试通过")
}
