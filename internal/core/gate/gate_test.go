package gate

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xbedrock/go-xgate/internal/core/eventbus"
	pkgif "github.com/xbedrock/go-xgate/pkg/interfaces"
	"github.com/xbedrock/go-xgate/pkg/types"
)

// 非高峰时刻（UTC 10:00）
var offPeak = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

// 高峰时刻（UTC 18:00）
var peak = time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)

func newTestGate(t *testing.T, at time.Time, mutate func(*Config)) (*Gate, *clock.Mock, *eventbus.Bus) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(at)

	cfg := DefaultConfig()
	cfg.Location = time.UTC
	if mutate != nil {
		mutate(&cfg)
	}

	bus := eventbus.NewBus(nil)
	g, err := New(cfg, mock, bus, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = g.Close()
		_ = bus.Close()
	})
	return g, mock, bus
}

func req(id string, addr string) types.ConnectionRequest {
	return types.ConnectionRequest{Identity: types.Identity(id), DisplayName: id, Address: addr}
}

func addrN(i int) string {
	return fmt.Sprintf("10.0.%d.%d", i/250, i%250+1)
}

func subscribe(t *testing.T, bus *eventbus.Bus, evt interface{}) pkgif.Subscription {
	t.Helper()
	sub, err := bus.Subscribe(evt, pkgif.BufSize(256))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })
	return sub
}

// TestGate_AdmitImmediate 测试空队列时立即放行
func TestGate_AdmitImmediate(t *testing.T) {
	g, _, _ := newTestGate(t, offPeak, nil)

	d := g.Admit(req("alice", "1.2.3.4"))
	assert.True(t, d.Accepted())
	assert.Empty(t, d.Message)
	assert.Equal(t, 1, g.CurrentConnections())

	t.Log("✅ 立即放行测试通过")
}

// TestGate_ReconnectCooldown 测试同一身份重连冷却
func TestGate_ReconnectCooldown(t *testing.T) {
	g, mock, _ := newTestGate(t, offPeak, nil)

	require.True(t, g.Admit(req("alice", "1.2.3.4")).Accepted())

	mock.Add(500 * time.Millisecond)
	d := g.Admit(req("alice", "1.2.3.4"))
	assert.True(t, d.Rejected())
	assert.Equal(t, types.ReasonThrottled, d.Reason)
	assert.Equal(t, MsgThrottled, d.Message)

	// 被节流的请求不占用地址名额
	mock.Add(500 * time.Millisecond)
	assert.True(t, g.Admit(req("alice", "1.2.3.4")).Accepted())

	t.Log("✅ 重连冷却测试通过")
}

// TestGate_ScenarioA_PerIPCap 测试单地址并发尝试上限
func TestGate_ScenarioA_PerIPCap(t *testing.T) {
	g, _, _ := newTestGate(t, offPeak, func(c *Config) { c.MaxConnectionsPerIP = 3 })

	var wg sync.WaitGroup
	decisions := make([]types.Decision, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decisions[i] = g.Admit(req(fmt.Sprintf("p%d", i), "203.0.113.7"))
		}(i)
	}
	wg.Wait()

	var candidates, tooMany int
	for _, d := range decisions {
		switch {
		case d.Accepted() || d.Queued():
			candidates++
		case d.Reason == types.ReasonTooManyAttempts:
			tooMany++
			assert.Equal(t, MsgTooManyAttempts, d.Message)
		}
	}
	assert.Equal(t, 3, candidates)
	assert.Equal(t, 1, tooMany)

	t.Log("✅ 场景 A：单 IP 上限测试通过")
}

// TestGate_ScenarioB_QueueFull 测试队列已满时拒绝
func TestGate_ScenarioB_QueueFull(t *testing.T) {
	g, _, _ := newTestGate(t, offPeak, func(c *Config) {
		c.MaxConnectionsPerSecond = 1
		c.MaxQueueSize = 2
	})

	require.True(t, g.Admit(req("a", addrN(0))).Accepted(), "耗尽本周期容量")

	d := g.Admit(req("b", addrN(1)))
	require.True(t, d.Queued())
	assert.Equal(t, 1, d.Position)
	assert.Equal(t, QueueMessage(1, 2), d.Message)
	assert.Equal(t, "You have been placed in queue. Position: 1/2", d.Message)

	d = g.Admit(req("c", addrN(2)))
	require.True(t, d.Queued())
	assert.Equal(t, 2, d.Position)

	d = g.Admit(req("d", addrN(3)))
	assert.True(t, d.Rejected())
	assert.Equal(t, types.ReasonQueueFull, d.Reason)
	assert.Equal(t, MsgQueueFull, d.Message)
	assert.Equal(t, 2, g.QueueLen())

	t.Log("✅ 场景 B：队列已满测试通过")
}

// TestGate_ScenarioC_PeakCapacity 测试高峰时段容量倍增
func TestGate_ScenarioC_PeakCapacity(t *testing.T) {
	g, mock, _ := newTestGate(t, peak, func(c *Config) {
		c.MaxConnectionsPerSecond = 20
		c.PeakHourMultiplier = 2
		c.MaxQueueSize = 100
	})

	require.True(t, g.IsPeakHour(mock.Now()))
	require.Equal(t, 40, g.EffectiveCapacity(mock.Now()))

	// 本周期容量被立即放行耗尽
	for i := 0; i < 40; i++ {
		require.True(t, g.Admit(req(fmt.Sprintf("early%d", i), addrN(i))).Accepted())
	}
	for i := 0; i < 50; i++ {
		require.True(t, g.Admit(req(fmt.Sprintf("q%d", i), addrN(100+i))).Queued())
	}
	require.Equal(t, 50, g.QueueLen())

	mock.Add(time.Second)
	res := g.Drain(mock.Now())
	assert.Equal(t, 40, res.Capacity)
	assert.Equal(t, 40, res.Admitted)
	assert.Equal(t, 10, res.Remaining)

	t.Log("✅ 场景 C：高峰容量测试通过")
}

// TestGate_OffPeakCapacity 测试非高峰与时区
func TestGate_OffPeakCapacity(t *testing.T) {
	g, _, _ := newTestGate(t, offPeak, nil)

	assert.False(t, g.IsPeakHour(offPeak))
	assert.Equal(t, 20, g.EffectiveCapacity(offPeak))

	// UTC 10:00 在 UTC+8 是 18:00
	cfg := g.Config()
	cfg.Location = time.FixedZone("UTC+8", 8*3600)
	require.NoError(t, g.UpdateConfig(cfg))
	assert.True(t, g.IsPeakHour(offPeak))
	assert.Equal(t, 40, g.EffectiveCapacity(offPeak))

	t.Log("✅ 非高峰容量测试通过")
}

// TestGate_DrainNeverExceedsCapacity 测试单周期放行数不超过有效容量
func TestGate_DrainNeverExceedsCapacity(t *testing.T) {
	g, mock, _ := newTestGate(t, offPeak, func(c *Config) {
		c.MaxConnectionsPerSecond = 5
		c.MaxQueueSize = 1000
	})

	n := 0
	for cycle := 0; cycle < 8; cycle++ {
		mock.Add(time.Second)
		res := g.Drain(mock.Now())

		immediate := 0
		for i := 0; i < 7; i++ {
			n++
			if g.Admit(req(fmt.Sprintf("u%d", n), addrN(n))).Accepted() {
				immediate++
			}
		}
		assert.LessOrEqual(t, res.Admitted+immediate, res.Capacity, "cycle %d", cycle)
	}

	t.Log("✅ 单周期容量上限测试通过")
}

// TestGate_QueueExpiry 测试排队超时被无条件移除
func TestGate_QueueExpiry(t *testing.T) {
	g, mock, bus := newTestGate(t, offPeak, func(c *Config) {
		c.MaxConnectionsPerSecond = 1
		c.MaxConnectionsPerIP = 2
	})
	expiredSub := subscribe(t, bus, new(types.EvtQueueExpired))

	require.True(t, g.Admit(req("a", "198.51.100.1")).Accepted())
	d := g.Admit(req("b", "198.51.100.1"))
	require.True(t, d.Queued())

	// 同一地址的两个名额都被占用
	assert.Equal(t, types.ReasonTooManyAttempts, g.Admit(req("c", "198.51.100.1")).Reason)

	// 超时后即使有容量也先移除
	mock.Add(30 * time.Second)
	res := g.Drain(mock.Now())
	assert.Equal(t, 1, res.Expired)
	assert.Equal(t, 0, res.Admitted)
	assert.Equal(t, 0, g.QueueLen())

	select {
	case ev := <-expiredSub.Out():
		e := ev.(types.EvtQueueExpired)
		assert.Equal(t, types.Identity("b"), e.Request.Identity)
		assert.Equal(t, d.Ticket, e.Ticket)
	case <-time.After(time.Second):
		t.Fatal("未收到超时事件")
	}

	// 超时条目的名额已归还
	assert.True(t, g.Admit(req("c", "198.51.100.1")).Accepted())
	assert.Equal(t, uint64(1), g.Stats().Expired)

	t.Log("✅ 排队超时测试通过")
}

// TestGate_DrainFIFO 测试按到达顺序放行并通知位置变化
func TestGate_DrainFIFO(t *testing.T) {
	g, mock, bus := newTestGate(t, offPeak, func(c *Config) { c.MaxConnectionsPerSecond = 2 })
	admittedSub := subscribe(t, bus, new(types.EvtAdmitted))
	positionSub := subscribe(t, bus, new(types.EvtQueuePosition))

	require.True(t, g.Admit(req("x", addrN(0))).Accepted())
	require.True(t, g.Admit(req("y", addrN(1))).Accepted())
	for i, id := range []string{"a", "b", "c"} {
		d := g.Admit(req(id, addrN(10+i)))
		require.True(t, d.Queued())
		assert.Equal(t, i+1, d.Position)
	}

	mock.Add(time.Second)
	res := g.Drain(mock.Now())
	require.Equal(t, 2, res.Admitted)

	var order []types.Identity
	for i := 0; i < 2; i++ {
		ev := <-admittedSub.Out()
		e := ev.(types.EvtAdmitted)
		order = append(order, e.Request.Identity)
		assert.Equal(t, time.Second, e.Waited)
	}
	assert.Equal(t, []types.Identity{"a", "b"}, order)

	ev := <-positionSub.Out()
	pos := ev.(types.EvtQueuePosition)
	assert.Equal(t, types.Identity("c"), pos.Identity)
	assert.Equal(t, 1, pos.Position)
	assert.Equal(t, 1, g.Position("c"))

	t.Log("✅ FIFO 排空测试通过")
}

// TestGate_DuplicateQueuedIdentity 测试已排队身份再次请求返回原位置
func TestGate_DuplicateQueuedIdentity(t *testing.T) {
	g, _, _ := newTestGate(t, offPeak, func(c *Config) { c.MaxConnectionsPerSecond = 1 })

	require.True(t, g.Admit(req("x", addrN(0))).Accepted())
	first := g.Admit(req("a", addrN(1)))
	require.True(t, first.Queued())
	require.True(t, g.Admit(req("b", addrN(2))).Queued())

	again := g.Admit(req("a", addrN(1)))
	assert.True(t, again.Queued())
	assert.Equal(t, 1, again.Position)
	assert.Equal(t, first.Ticket, again.Ticket)
	assert.Equal(t, 2, g.QueueLen())

	snap := g.QueueSnapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, types.Identity("a"), snap[0].Identity)
	assert.Equal(t, 2, snap[1].Position)

	t.Log("✅ 重复排队测试通过")
}

// TestGate_DuplicateQueuedIdentityAtAddressCap 测试地址名额已满时重复请求仍返回队列位置
func TestGate_DuplicateQueuedIdentityAtAddressCap(t *testing.T) {
	g, _, _ := newTestGate(t, offPeak, func(c *Config) {
		c.MaxConnectionsPerSecond = 1
		c.MaxConnectionsPerIP = 3
	})
	const addr = "192.0.2.50"

	require.True(t, g.Admit(req("a", addr)).Accepted())
	require.True(t, g.Admit(req("b", addr)).Queued())
	first := g.Admit(req("c", addr))
	require.True(t, first.Queued())
	require.Equal(t, 2, first.Position)

	// 地址名额已满 (a 的预留 + b、c 的排队)
	again := g.Admit(req("c", addr))
	require.True(t, again.Queued(), "got %s", again)
	assert.Equal(t, 2, again.Position)
	assert.Equal(t, first.Ticket, again.Ticket)
	assert.Equal(t, 2, g.Position("c"))
	assert.Equal(t, 2, g.QueueLen())

	// 重复请求不占用也不释放名额
	assert.Equal(t, types.ReasonTooManyAttempts, g.Admit(req("d", addr)).Reason)

	t.Log("✅ 名额已满时重复排队测试通过")
}

// TestGate_ReservationRelease 测试预留到期释放
func TestGate_ReservationRelease(t *testing.T) {
	g, mock, _ := newTestGate(t, offPeak, func(c *Config) { c.MaxConnectionsPerIP = 1 })

	require.True(t, g.Admit(req("a", "192.0.2.1")).Accepted())
	assert.Equal(t, 1, g.CurrentConnections())
	assert.Equal(t, types.ReasonTooManyAttempts, g.Admit(req("b", "192.0.2.1")).Reason)

	mock.Add(4 * time.Minute)
	assert.Equal(t, 0, g.Sweep(mock.Now()).Released)

	mock.Add(time.Minute)
	res := g.Sweep(mock.Now())
	assert.Equal(t, 1, res.Released)
	assert.Equal(t, 1, res.AddressesDropped)
	assert.Equal(t, 0, g.CurrentConnections())

	assert.True(t, g.Admit(req("b", "192.0.2.1")).Accepted())

	t.Log("✅ 预留释放测试通过")
}

// TestGate_InvalidRequests 测试非法请求与关闭
func TestGate_InvalidRequests(t *testing.T) {
	g, _, _ := newTestGate(t, offPeak, nil)

	d := g.Admit(req("a", "not-an-ip"))
	assert.Equal(t, types.ReasonInvalidAddress, d.Reason)
	assert.Equal(t, MsgInvalidAddress, d.Message)

	assert.Equal(t, types.ReasonInvalidIdentity, g.Admit(req("", "1.1.1.1")).Reason)

	assert.True(t, g.Admit(req("v4port", "1.1.1.1:19132")).Accepted())
	assert.True(t, g.Admit(req("v6port", "[2001:db8::1]:19132")).Accepted())
	assert.True(t, g.Admit(req("v6", "2001:db8::2")).Accepted())

	require.NoError(t, g.Close())
	assert.Equal(t, types.ReasonUnavailable, g.Admit(req("late", "1.1.1.2")).Reason)
	assert.Equal(t, 0, g.CurrentConnections())
	assert.Equal(t, DrainResult{}, g.Drain(offPeak))

	t.Log("✅ 非法请求测试通过")
}

// TestGate_AdmitDuringClose 测试关闭与并发准入不会残留状态
func TestGate_AdmitDuringClose(t *testing.T) {
	g, _, _ := newTestGate(t, offPeak, func(c *Config) { c.MaxConnectionsPerSecond = 5 })

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			g.Admit(req(fmt.Sprintf("p%d", i), addrN(i)))
		}(i)
	}
	close(start)
	require.NoError(t, g.Close())
	wg.Wait()

	assert.Equal(t, 0, g.QueueLen())
	assert.Equal(t, 0, g.CurrentConnections())
	assert.Empty(t, g.QueueSnapshot())
	assert.Equal(t, types.ReasonUnavailable, g.Admit(req("late", addrN(99))).Reason)

	t.Log("✅ 关闭期间准入测试通过")
}

// TestGate_UpdateConfig 测试运行时更新配置
func TestGate_UpdateConfig(t *testing.T) {
	g, _, _ := newTestGate(t, offPeak, func(c *Config) { c.MaxConnectionsPerIP = 1 })

	require.True(t, g.Admit(req("a", "192.0.2.9")).Accepted())
	require.Equal(t, types.ReasonTooManyAttempts, g.Admit(req("b", "192.0.2.9")).Reason)

	cfg := g.Config()
	cfg.MaxConnectionsPerIP = 2
	require.NoError(t, g.UpdateConfig(cfg))
	assert.True(t, g.Admit(req("b", "192.0.2.9")).Accepted())

	cfg.MaxConnectionsPerSecond = 0
	assert.ErrorIs(t, g.UpdateConfig(cfg), ErrInvalidConfig)

	t.Log("✅ 配置更新测试通过")
}

// TestGate_StatsAndMetrics 测试统计与指标
func TestGate_StatsAndMetrics(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(offPeak)
	cfg := DefaultConfig()
	cfg.Location = time.UTC
	cfg.MaxConnectionsPerSecond = 1

	m := NewMetrics(prometheus.NewRegistry())
	g, err := New(cfg, mock, nil, m)
	require.NoError(t, err)
	defer g.Close()

	g.Admit(req("a", addrN(0)))
	g.Admit(req("b", addrN(1)))
	g.Admit(req("c", "bad"))

	s := g.Stats()
	assert.Equal(t, uint64(1), s.Accepted)
	assert.Equal(t, uint64(1), s.Queued)
	assert.Equal(t, uint64(1), s.Rejected["invalid_address"])
	assert.Equal(t, 1, s.QueueLength)
	assert.Equal(t, 1, s.CurrentConnections)
	assert.Equal(t, 1, s.EffectiveCapacity)
	assert.False(t, s.PeakHour)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.DecisionsTotal.WithLabelValues("accepted", "")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DecisionsTotal.WithLabelValues("rejected", "invalid_address")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.QueueLength))

	mock.Add(time.Second)
	g.Drain(mock.Now())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AdmittedFromQueue))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CurrentConnections))

	t.Log("✅ 统计与指标测试通过")
}

// TestParseAddr 测试地址解析
func TestParseAddr(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"127.0.0.1", true},
		{"127.0.0.1:80", true},
		{"::ffff:10.0.0.1", true},
		{"[::1]:80", true},
		{"", false},
		{"example.com", false},
		{"300.1.1.1", false},
	}
	for _, c := range cases {
		_, ok := parseAddr(c.in)
		assert.Equal(t, c.ok, ok, c.in)
	}

	a, _ := parseAddr("::ffff:10.0.0.1")
	b, _ := parseAddr("10.0.0.1")
	assert.Equal(t, a, b, "IPv4 映射地址与 IPv4 计入同一名额")

	t.Log("✅ 地址解析测试通过")
}
