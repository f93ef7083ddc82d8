package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewConfig 测试创建默认配置
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)
	assert.NoError(t, cfg.Validate())

	t.Log("✅ NewConfig 测试通过")
}

// TestGateConfig 测试准入门配置
func TestGateConfig(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		cfg := DefaultGateConfig()
		assert.Equal(t, 20, cfg.MaxConnectionsPerSecond)
		assert.Equal(t, 100, cfg.MaxQueueSize)
		assert.Equal(t, 3, cfg.MaxConnectionsPerIP)
		assert.Equal(t, time.Second, cfg.QueueProcessInterval.Duration())
		assert.Equal(t, 2, cfg.PeakHourMultiplier)
		assert.Equal(t, []int{16, 17, 18, 19, 20, 21, 22}, cfg.PeakHours)
		assert.Equal(t, 30*time.Second, cfg.QueueEntryTimeout.Duration())
		assert.Equal(t, 5*time.Minute, cfg.ReservationGrace.Duration())
	})

	t.Run("Validate_BadPeakHour", func(t *testing.T) {
		cfg := DefaultGateConfig().WithPeakHours(2, 24)
		assert.Error(t, cfg.Validate())
	})

	t.Run("Validate_BadTimezone", func(t *testing.T) {
		cfg := DefaultGateConfig().WithTimezone("Mars/Olympus")
		assert.Error(t, cfg.Validate())
	})

	t.Run("Validate_ZeroRate", func(t *testing.T) {
		cfg := DefaultGateConfig().WithMaxConnectionsPerSecond(0)
		assert.Error(t, cfg.Validate())
	})

	t.Run("Location", func(t *testing.T) {
		assert.Equal(t, time.Local, DefaultGateConfig().Location())
		loc := DefaultGateConfig().WithTimezone("UTC").Location()
		assert.Equal(t, "UTC", loc.String())
	})

	t.Log("✅ GateConfig 测试通过")
}

// TestGuardConfig 测试守卫配置
func TestGuardConfig(t *testing.T) {
	cfg := DefaultGuardConfig()
	assert.Equal(t, 2097152, cfg.MaxPacketSize)
	assert.Equal(t, 5, cfg.ViolationThreshold)
	assert.Equal(t, time.Second, cfg.PacketMinSpacing.Duration())
	assert.Equal(t, 1000, cfg.CrasherPayloadLimit)

	assert.Error(t, cfg.WithViolationThreshold(0).Validate())
	assert.Error(t, cfg.WithMaxPacketSize(-1).Validate())

	t.Log("✅ GuardConfig 测试通过")
}

// TestStorageConfig 测试存储配置
func TestStorageConfig(t *testing.T) {
	cfg := DefaultStorageConfig().WithDataDir("")
	assert.Error(t, cfg.Validate())

	// 禁用时不校验目录
	assert.NoError(t, cfg.WithEnable(false).Validate())

	assert.Equal(t, filepath.Join("x", "sessions.db"), cfg.WithDataDir("x").DBPath())

	t.Log("✅ StorageConfig 测试通过")
}

// TestAdminConfig 测试管理 API 配置
func TestAdminConfig(t *testing.T) {
	cfg := DefaultAdminConfig()
	assert.False(t, cfg.Enable)
	assert.NoError(t, cfg.Validate())

	assert.Error(t, cfg.WithListen("no-port").Validate())
	assert.NoError(t, cfg.WithListen("127.0.0.1:0").Validate())

	t.Log("✅ AdminConfig 测试通过")
}

// TestFromJSON 测试 JSON 加载
func TestFromJSON(t *testing.T) {
	data := []byte(`{
		"gate": {"max_queue_size": 2, "queue_entry_timeout": "10s"},
		"guard": {"packet_min_spacing": 500000000},
		"log": {"level": "debug"}
	}`)

	cfg, err := FromJSON(data)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Gate.MaxQueueSize)
	assert.Equal(t, 10*time.Second, cfg.Gate.QueueEntryTimeout.Duration())
	assert.Equal(t, 500*time.Millisecond, cfg.Guard.PacketMinSpacing.Duration())
	assert.Equal(t, "debug", cfg.Log.Level)

	// 未出现的字段保持默认
	assert.Equal(t, 3, cfg.Gate.MaxConnectionsPerIP)
	assert.NoError(t, cfg.Validate())

	_, err = FromJSON([]byte(`{"gate": {"queue_entry_timeout": "soon"}}`))
	assert.Error(t, err)

	t.Log("✅ FromJSON 测试通过")
}

// TestLoadFile 测试文件加载与序列化往返
func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xgate.json")

	cfg := NewConfig()
	cfg.Gate = cfg.Gate.WithMaxQueueSize(7)
	data, err := cfg.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"queue_process_interval": "1s"`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Gate.MaxQueueSize)

	require.NoError(t, os.WriteFile(path, []byte(`{"gate": {"max_connections_per_ip": 0}}`), 0o600))
	_, err = LoadFile(path)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	t.Log("✅ LoadFile 测试通过")
}

// TestConfig_Clone 测试深拷贝
func TestConfig_Clone(t *testing.T) {
	cfg := NewConfig()
	cp := cfg.Clone()
	cp.Gate.PeakHours[0] = 3
	cp.Guard.CrasherKinds[0] = "X"

	assert.Equal(t, 16, cfg.Gate.PeakHours[0])
	assert.Equal(t, "CustomPayload", cfg.Guard.CrasherKinds[0])

	t.Log("✅ Config.Clone 测试通过")
}
