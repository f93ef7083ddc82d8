package xgate

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xbedrock/go-xgate/config"
	"github.com/xbedrock/go-xgate/internal/core/gate"
	"github.com/xbedrock/go-xgate/internal/core/guard"
	"github.com/xbedrock/go-xgate/internal/core/registry"
	pkgif "github.com/xbedrock/go-xgate/pkg/interfaces"
	"github.com/xbedrock/go-xgate/pkg/types"
	"github.com/xbedrock/go-xgate/tests/mocks"
)

// 非高峰时刻（UTC 10:00）
var offPeak = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Gate = cfg.Gate.WithTimezone("UTC")
	cfg.Storage = cfg.Storage.WithEnable(false)
	return cfg
}

func startNode(t *testing.T, cfg *config.Config, opts ...Option) (*Node, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(offPeak)

	all := append([]Option{WithConfig(cfg), WithClock(mock)}, opts...)
	node, err := Start(context.Background(), all...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = node.Close() })
	return node, mock
}

// TestNode_Lifecycle 测试启动与关闭
func TestNode_Lifecycle(t *testing.T) {
	node, err := New(WithConfig(testConfig()), WithClock(clock.NewMock()))
	require.NoError(t, err)
	assert.Equal(t, StateIdle, node.State())

	require.NoError(t, node.Start(context.Background()))
	assert.True(t, node.IsRunning())
	assert.ErrorIs(t, node.Start(context.Background()), ErrAlreadyStarted)

	names := make([]string, 0, 4)
	for _, info := range node.Tasks() {
		names = append(names, info.Name)
	}
	assert.ElementsMatch(t, []string{gate.TaskDrain, gate.TaskSweep, registry.TaskPing, guard.TaskViolationReset}, names)

	require.NoError(t, node.Close())
	assert.Equal(t, StateStopped, node.State())
	assert.NoError(t, node.Close())
	assert.ErrorIs(t, node.Start(context.Background()), ErrNodeClosed)

	// 关闭后拒绝新连接
	d := node.Admit(types.ConnectionRequest{Identity: "alice", Address: "1.2.3.4"})
	assert.Equal(t, types.ReasonUnavailable, d.Reason)

	t.Log("✅ 节点生命周期测试通过")
}

// TestNode_CloseWithoutStart 测试未启动直接关闭
func TestNode_CloseWithoutStart(t *testing.T) {
	store := mocks.NewMockSessionStore()
	node, err := New(WithConfig(testConfig()), WithClock(clock.NewMock()), WithSessionStore(store))
	require.NoError(t, err)

	_, err = node.Register("alice", "Alice", "1.2.3.4:19132", types.UnknownDeviceInfo())
	require.NoError(t, err)

	require.NoError(t, node.Close())
	_, ok := store.Record("alice")
	assert.True(t, ok)

	t.Log("✅ 未启动关闭测试通过")
}

// TestNode_InvalidOptions 测试无效选项
func TestNode_InvalidOptions(t *testing.T) {
	_, err := New(WithConfig(nil))
	assert.ErrorIs(t, err, ErrNilConfig)

	_, err = New(WithClock(nil))
	assert.Error(t, err)

	_, err = New(WithDataDir(""))
	assert.Error(t, err)

	_, err = New(WithConfigFile(filepath.Join(t.TempDir(), "missing.json")))
	assert.Error(t, err)

	bad := testConfig()
	bad.Gate.MaxConnectionsPerSecond = 0
	_, err = New(WithConfig(bad))
	assert.Error(t, err)

	t.Log("✅ 无效选项测试通过")
}

// TestNode_AdmitAndDrain 测试准入与周期排空
func TestNode_AdmitAndDrain(t *testing.T) {
	cfg := testConfig()
	cfg.Gate = cfg.Gate.WithMaxConnectionsPerSecond(1)
	node, mock := startNode(t, cfg)

	sub, err := node.Subscribe(new(types.EvtAdmitted), pkgif.BufSize(8))
	require.NoError(t, err)
	defer sub.Close()

	require.True(t, node.Admit(types.ConnectionRequest{Identity: "a", Address: "1.1.1.1"}).Accepted())
	d := node.Admit(types.ConnectionRequest{Identity: "b", Address: "2.2.2.2"})
	require.True(t, d.Queued())
	assert.Equal(t, 1, node.QueuePosition("b"))

	mock.Add(time.Second)

	select {
	case e := <-sub.Out():
		evt := e.(types.EvtAdmitted)
		assert.Equal(t, types.Identity("b"), evt.Request.Identity)
		assert.Equal(t, d.Ticket, evt.Ticket)
	case <-time.After(2 * time.Second):
		t.Fatal("队列未被排空")
	}
	assert.Equal(t, 0, node.QueuePosition("b"))

	t.Log("✅ 准入与周期排空测试通过")
}

// TestNode_SessionFlow 测试会话登记到结束
func TestNode_SessionFlow(t *testing.T) {
	store := mocks.NewMockSessionStore()
	node, mock := startNode(t, testConfig(), WithSessionStore(store))

	_, err := node.Register("alice", "Alice", "1.2.3.4:19132", types.UnknownDeviceInfo())
	require.NoError(t, err)
	_, err = node.Register("alice", "Alice", "1.2.3.4:19132", types.UnknownDeviceInfo())
	assert.ErrorIs(t, err, ErrDuplicateSession)

	_, err = node.Activate("alice")
	require.NoError(t, err)
	_, err = node.Activate("ghost")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	pos := types.Position{World: "overworld", X: 1, Y: 64, Z: 1}
	assert.True(t, node.Touch("alice", pos, types.Orientation{}))

	s, ok := node.Session("alice")
	require.True(t, ok)
	assert.True(t, s.Connected)
	assert.Equal(t, pos, s.Position)
	assert.Len(t, node.Sessions(), 1)

	mock.Add(10 * time.Minute)
	_, ok = node.Unregister("alice")
	require.True(t, ok)

	require.NoError(t, node.FlushSessions(context.Background()))
	rec, ok := store.Record("alice")
	require.True(t, ok)
	assert.Equal(t, 10*time.Minute, rec.TotalPlayTime)
	assert.Equal(t, pos, rec.LastPosition)
	require.Len(t, node.RecentSessions(), 1)
	assert.Equal(t, 0, node.Stats().Sessions)

	t.Log("✅ 会话流程测试通过")
}

// TestNode_GuardKickTerminatesSession 测试守卫踢出会话
func TestNode_GuardKickTerminatesSession(t *testing.T) {
	disc := mocks.NewMockDisconnector()
	node, _ := startNode(t, testConfig(), WithDisconnector(disc))

	_, err := node.Register("alice", "Alice", "1.2.3.4:19132", types.UnknownDeviceInfo())
	require.NoError(t, err)

	var v types.Verdict
	for i := 0; i < 5; i++ {
		v = node.Inspect("alice", "MovePlayer", 3_000_000)
	}
	require.Equal(t, types.ActionKick, v.Action)
	assert.Equal(t, types.CategoryOversized, v.Reason)

	_, ok := node.Session("alice")
	assert.False(t, ok)
	calls := disc.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Security violation detected: Oversized", calls[0].Reason)

	// 会话结束后踢出标记保留
	assert.Equal(t, types.ActionKick, node.Inspect("alice", "MovePlayer", 10).Action)

	// 重新登记后清除
	_, err = node.Register("alice", "Alice", "1.2.3.4:19132", types.UnknownDeviceInfo())
	require.NoError(t, err)
	assert.True(t, node.Inspect("alice", "MovePlayer", 10).IsPass())

	stats := node.Stats()
	assert.Equal(t, uint64(1), stats.Guard.Kicks)

	t.Log("✅ 守卫踢出测试通过")
}

// TestNode_GuardKickWithSlowStore 测试存储缓慢时踢出仍立即返回
func TestNode_GuardKickWithSlowStore(t *testing.T) {
	store := mocks.NewMockSessionStore()
	release := make(chan struct{})
	store.SaveBlock = release
	disc := mocks.NewMockDisconnector()
	node, _ := startNode(t, testConfig(), WithSessionStore(store), WithDisconnector(disc))
	defer close(release)

	_, err := node.Register("alice", "Alice", "1.2.3.4:19132", types.UnknownDeviceInfo())
	require.NoError(t, err)

	var v types.Verdict
	var slowest time.Duration
	for i := 0; i < 5; i++ {
		start := time.Now()
		v = node.Inspect("alice", "MovePlayer", 3_000_000)
		if d := time.Since(start); d > slowest {
			slowest = d
		}
	}
	require.Equal(t, types.ActionKick, v.Action)
	assert.Less(t, slowest, 500*time.Millisecond)
	assert.Len(t, disc.Calls(), 1)
	_, ok := node.Session("alice")
	assert.False(t, ok)

	t.Log("✅ 慢存储踢出测试通过")
}

// TestNode_Kick 测试手动踢出
func TestNode_Kick(t *testing.T) {
	node, _ := startNode(t, testConfig())

	sub, err := node.Subscribe(new(types.EvtDisconnect), pkgif.BufSize(4))
	require.NoError(t, err)
	defer sub.Close()

	_, err = node.Register("alice", "Alice", "1.2.3.4:19132", types.UnknownDeviceInfo())
	require.NoError(t, err)
	assert.True(t, node.Kick("alice", "bye"))
	assert.False(t, node.Kick("alice", "bye"))

	select {
	case e := <-sub.Out():
		evt := e.(types.EvtDisconnect)
		assert.Equal(t, types.Identity("alice"), evt.Identity)
		assert.Equal(t, "bye", evt.Reason)
	case <-time.After(time.Second):
		t.Fatal("未收到断开事件")
	}

	t.Log("✅ 手动踢出测试通过")
}

// TestNode_Reload 测试配置热更新
func TestNode_Reload(t *testing.T) {
	node, _ := startNode(t, testConfig())

	cfg := node.Config()
	cfg.Gate = cfg.Gate.WithMaxQueueSize(7)
	cfg.Guard = cfg.Guard.WithMaxPacketSize(100)
	pending, err := node.Reload(cfg)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.Equal(t, 7, node.Config().Gate.MaxQueueSize)
	assert.Equal(t, []types.Category{types.CategoryOversized}, node.Inspect("bob", "MovePlayer", 101).Violations)

	_, err = node.Reload(nil)
	assert.ErrorIs(t, err, ErrNilConfig)

	t.Log("✅ 配置热更新测试通过")
}

// TestNode_Persistence 测试内置存储
func TestNode_Persistence(t *testing.T) {
	cfg := testConfig()
	node, mock := startNode(t, cfg, WithDataDir(t.TempDir()))
	require.NotNil(t, node.store)

	_, err := node.Register("alice", "Alice", "1.2.3.4:19132", types.UnknownDeviceInfo())
	require.NoError(t, err)
	mock.Add(5 * time.Minute)
	_, ok := node.Unregister("alice")
	require.True(t, ok)

	require.NoError(t, node.FlushSessions(context.Background()))
	rec, ok, err := node.store.Load(context.Background(), "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5*time.Minute, rec.TotalPlayTime)
	assert.Equal(t, 1, rec.Sessions)

	stats := node.Stats()
	require.NotNil(t, stats.Storage)
	assert.GreaterOrEqual(t, stats.Storage.Writes, int64(1))

	t.Log("✅ 内置存储测试通过")
}

// TestNode_AdminAndMetrics 测试管理 API 与指标
func TestNode_AdminAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	node, _ := startNode(t, testConfig(), WithAdminListen("127.0.0.1:0"), WithRegisterer(reg))

	addr := node.AdminAddr()
	require.NotEmpty(t, addr)

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	node.Admit(types.ConnectionRequest{Identity: "alice", Address: "1.2.3.4"})
	n, err := testutil.GatherAndCount(reg, "xgate_gate_decisions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	t.Log("✅ 管理 API 与指标测试通过")
}
