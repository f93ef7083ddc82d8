// Package gate 实现连接准入门
//
// Admit 按顺序执行策略：
//  1. 单地址在途尝试上限（排队中与预留中的请求都占用名额）
//  2. 同一身份重连冷却
//  3. 队列为空且本周期仍有容量时立即放行，否则排队或因队列已满拒绝
//
// Drain 由调度器按固定间隔调用：先无条件移除超时条目，再按到达顺序放行，
// 单个周期放行总数（含周期内的立即放行）不超过有效容量。
// 放行会登记一个预留，ReservationGrace 后由 Sweep 自动释放。
//
// 按地址和按身份的状态放在 ratewindow.Table 中，各条目独立加锁或使用原子量；
// 只有 FIFO 队列本身由 queueMu 保护。
package gate

import (
	"container/list"
	"net"
	"net/netip"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/xbedrock/go-xgate/internal/core/eventbus"
	"github.com/xbedrock/go-xgate/internal/core/ratewindow"
	pkgif "github.com/xbedrock/go-xgate/pkg/interfaces"
	"github.com/xbedrock/go-xgate/pkg/lib/log"
	"github.com/xbedrock/go-xgate/pkg/types"
)

var logger = log.Logger("core/gate")

// identityRecord 单个身份的最近放行时间
type identityRecord struct {
	lastAdmit atomic.Int64
}

// Gate 连接准入门
type Gate struct {
	cfg     atomic.Pointer[Config]
	clk     clock.Clock
	metrics *Metrics

	attempts   *ratewindow.Table[netip.Addr, *ratewindow.Counter]
	identities *ratewindow.Table[types.Identity, *identityRecord]

	queueMu sync.Mutex
	queue   *list.List
	queued  map[types.Identity]*list.Element
	budget  int

	resMu        sync.Mutex
	reservations reservationHeap
	current      atomic.Int64

	closed atomic.Bool

	stats counters

	emitDecision pkgif.Emitter
	emitAdmitted pkgif.Emitter
	emitPosition pkgif.Emitter
	emitExpired  pkgif.Emitter
}

// New 创建准入门
//
// clk 为 nil 时使用系统时钟；bus 与 m 可为 nil。
func New(cfg Config, clk clock.Clock, bus pkgif.EventBus, m *Metrics) (*Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}

	g := &Gate{
		clk:        clk,
		metrics:    m,
		attempts:   ratewindow.NewTable[netip.Addr](ratewindow.NewCounter),
		identities: ratewindow.NewTable[types.Identity](func() *identityRecord { return &identityRecord{} }),
		queue:      list.New(),
		queued:     make(map[types.Identity]*list.Element),

		emitDecision: eventbus.EmitterOrNop(bus, new(types.EvtDecision)),
		emitAdmitted: eventbus.EmitterOrNop(bus, new(types.EvtAdmitted)),
		emitPosition: eventbus.EmitterOrNop(bus, new(types.EvtQueuePosition)),
		emitExpired:  eventbus.EmitterOrNop(bus, new(types.EvtQueueExpired)),
	}
	c := cfg.compile()
	g.cfg.Store(&c)
	g.budget = c.capacity(clk.Now())
	m.setCapacity(g.budget)

	logger.Info("准入门已创建",
		"rate", cfg.MaxConnectionsPerSecond,
		"queue", cfg.MaxQueueSize,
		"perIP", cfg.MaxConnectionsPerIP)
	return g, nil
}

// Config 返回当前配置
func (g *Gate) Config() Config {
	return *g.cfg.Load()
}

// UpdateConfig 原子替换配置
//
// 排空间隔的变化在下次启动时生效。
func (g *Gate) UpdateConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c := cfg.compile()
	g.cfg.Store(&c)
	logger.Info("准入门配置已更新",
		"rate", cfg.MaxConnectionsPerSecond,
		"queue", cfg.MaxQueueSize,
		"perIP", cfg.MaxConnectionsPerIP)
	return nil
}

// ============================================================================
//                              Admit
// ============================================================================

// Admit 对连接请求做出准入决策
func (g *Gate) Admit(req types.ConnectionRequest) types.Decision {
	now := g.clk.Now()
	if req.Timestamp.IsZero() {
		req.Timestamp = now
	}
	d := g.admit(req, now)

	g.stats.record(d)
	g.metrics.recordDecision(d)
	_ = g.emitDecision.Emit(types.EvtDecision{
		BaseEvent: types.NewBaseEvent(types.EventTypeDecision, now),
		Request:   req,
		Decision:  d,
	})
	logger.Debug("准入决策", "request", req.String(), "decision", d.String())
	return d
}

func (g *Gate) admit(req types.ConnectionRequest, now time.Time) types.Decision {
	cfg := g.cfg.Load()

	if g.closed.Load() {
		return reject(types.ReasonUnavailable)
	}
	if req.Identity.IsEmpty() {
		return reject(types.ReasonInvalidIdentity)
	}
	addr, ok := parseAddr(req.Address)
	if !ok {
		return reject(types.ReasonInvalidAddress)
	}

	// 已在队列中的身份直接返回当前位置，不再占用地址名额
	if d, ok := g.queuedLookup(req.Identity, cfg); ok {
		return d
	}

	slot, ok := g.acquireSlot(addr, cfg.MaxConnectionsPerIP, now)
	if !ok {
		return reject(types.ReasonTooManyAttempts)
	}

	if !g.cooldownPassed(req.Identity, now, cfg) {
		slot.Release()
		return reject(types.ReasonThrottled)
	}

	g.queueMu.Lock()

	if g.closed.Load() {
		g.queueMu.Unlock()
		slot.Release()
		return reject(types.ReasonUnavailable)
	}

	if el, ok := g.queued[req.Identity]; ok {
		e := el.Value.(*entry)
		pos := g.positionLocked(el)
		g.queueMu.Unlock()
		slot.Release()
		return queuedDecision(pos, cfg.MaxQueueSize, e.ticket)
	}

	if g.queue.Len() == 0 && g.budget > 0 {
		if !g.markAdmitted(req.Identity, now, cfg) {
			g.queueMu.Unlock()
			slot.Release()
			return reject(types.ReasonThrottled)
		}
		g.budget--
		g.queueMu.Unlock()
		if !g.book(slot, now, cfg) {
			return reject(types.ReasonUnavailable)
		}
		return types.Decision{Outcome: types.OutcomeAccepted}
	}

	if g.queue.Len() >= cfg.MaxQueueSize {
		g.queueMu.Unlock()
		slot.Release()
		return reject(types.ReasonQueueFull)
	}

	e := &entry{
		req:      req,
		slot:     slot,
		queuedAt: now,
		ticket:   uuid.NewString(),
	}
	e.position = g.queue.Len() + 1
	g.queued[req.Identity] = g.queue.PushBack(e)
	size := g.queue.Len()
	g.queueMu.Unlock()

	g.metrics.setQueueLength(size)
	return queuedDecision(e.position, cfg.MaxQueueSize, e.ticket)
}

// queuedLookup 查询身份是否已在队列中
func (g *Gate) queuedLookup(id types.Identity, cfg *Config) (types.Decision, bool) {
	g.queueMu.Lock()
	defer g.queueMu.Unlock()
	el, ok := g.queued[id]
	if !ok {
		return types.Decision{}, false
	}
	return queuedDecision(g.positionLocked(el), cfg.MaxQueueSize, el.Value.(*entry).ticket), true
}

// acquireSlot 占用地址的一个在途名额
func (g *Gate) acquireSlot(addr netip.Addr, limit int, now time.Time) (*ratewindow.Counter, bool) {
	for {
		c := g.attempts.LoadOrCreate(addr)
		acquired, alive := c.TryAcquire(limit, now)
		if alive {
			return c, acquired
		}
		// 计数器刚被清理回收，换一个新的
		g.attempts.CompareAndDelete(addr, c)
	}
}

// cooldownPassed 无锁预检查身份冷却
func (g *Gate) cooldownPassed(id types.Identity, now time.Time, cfg *Config) bool {
	rec, ok := g.identities.Load(id)
	if !ok {
		return true
	}
	last := rec.lastAdmit.Load()
	return last == 0 || now.Sub(time.Unix(0, last)) >= cfg.ReconnectCooldown
}

// markAdmitted 以 CAS 记录放行时间，冷却未过时返回 false
func (g *Gate) markAdmitted(id types.Identity, now time.Time, cfg *Config) bool {
	rec := g.identities.LoadOrCreate(id)
	for {
		last := rec.lastAdmit.Load()
		if last != 0 && now.Sub(time.Unix(0, last)) < cfg.ReconnectCooldown {
			return false
		}
		if rec.lastAdmit.CompareAndSwap(last, now.UnixNano()) {
			return true
		}
	}
}

// ============================================================================
//                              容量
// ============================================================================

// EffectiveCapacity 返回 now 时刻单个排空周期的有效容量
func (g *Gate) EffectiveCapacity(now time.Time) int {
	return g.cfg.Load().capacity(now)
}

// IsPeakHour 判断 now 是否处于高峰时段
func (g *Gate) IsPeakHour(now time.Time) bool {
	return g.cfg.Load().isPeak(now)
}

// ============================================================================
//                              关闭
// ============================================================================

// Close 关闭准入门并清空所有内存状态
//
// 关闭后 Admit 返回 ReasonUnavailable。
func (g *Gate) Close() error {
	if !g.closed.CompareAndSwap(false, true) {
		return nil
	}

	g.queueMu.Lock()
	dropped := g.queue.Len()
	g.queue.Init()
	g.queued = make(map[types.Identity]*list.Element)
	g.budget = 0
	g.queueMu.Unlock()

	g.resMu.Lock()
	g.reservations = nil
	g.current.Store(0)
	g.resMu.Unlock()

	g.attempts.Clear()
	g.identities.Clear()

	g.metrics.setQueueLength(0)
	g.metrics.setCurrent(0)
	logger.Info("准入门已关闭", "droppedQueued", dropped)
	return nil
}

// ============================================================================
//                              辅助函数
// ============================================================================

// parseAddr 解析来源地址，允许携带端口
func parseAddr(s string) (netip.Addr, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return netip.Addr{}, false
	}
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap.Addr().Unmap(), true
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	addr, err := netip.ParseAddr(strings.Trim(s, "[]"))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func reject(reason types.RejectReason) types.Decision {
	return types.Decision{
		Outcome: types.OutcomeRejected,
		Reason:  reason,
		Message: rejectMessage(reason),
	}
}

func rejectMessage(reason types.RejectReason) string {
	switch reason {
	case types.ReasonTooManyAttempts:
		return MsgTooManyAttempts
	case types.ReasonThrottled:
		return MsgThrottled
	case types.ReasonQueueFull:
		return MsgQueueFull
	case types.ReasonInvalidAddress:
		return MsgInvalidAddress
	case types.ReasonInvalidIdentity:
		return MsgInvalidIdentity
	default:
		return MsgUnavailable
	}
}

func queuedDecision(position, size int, ticket string) types.Decision {
	return types.Decision{
		Outcome:   types.OutcomeQueued,
		Position:  position,
		QueueSize: size,
		Ticket:    ticket,
		Message:   QueueMessage(position, size),
	}
}
