// Package guard 实现数据包守卫
//
// InspectPacket 对每个入站数据包运行全部检查：
//   - Oversized: 大小超过 MaxPacketSize
//   - Crasher: 已知崩溃形态类型且负载超过 CrasherPayloadLimit
//   - PacketRate: 连续过早到达次数超过 ViolationThreshold
//
// 任一检查命中即丢弃，每个命中类别计数加一。
// 某类别在 ViolationWindow 内达到 ViolationThreshold 时本次调用返回踢出，
// 并通过 Terminator 请求终止会话；之后该身份的数据包一律返回踢出，直到重新注册。
package guard

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/xbedrock/go-xgate/internal/core/eventbus"
	"github.com/xbedrock/go-xgate/internal/core/ratewindow"
	pkgif "github.com/xbedrock/go-xgate/pkg/interfaces"
	"github.com/xbedrock/go-xgate/pkg/lib/log"
	"github.com/xbedrock/go-xgate/pkg/types"
)

var logger = log.Logger("core/guard")

// KickMessagePrefix 踢出提示前缀
const KickMessagePrefix = "Security violation detected: "

// KickMessage 返回面向用户的踢出提示
func KickMessage(c types.Category) string {
	return KickMessagePrefix + string(c)
}

// state 单个身份的守卫状态
type state struct {
	mu      sync.Mutex
	removed bool
	spacing *ratewindow.Spacing
	windows map[types.Category]*ratewindow.Window
	flags   map[types.Flag]time.Time
}

// Guard 数据包守卫
type Guard struct {
	cfg     atomic.Pointer[Config]
	clk     clock.Clock
	metrics *Metrics
	term    pkgif.Terminator

	states *ratewindow.Table[types.Identity, *state]
	kicked *lru.Cache[types.Identity, types.Category]

	dropWarn rate.Sometimes
	closed   atomic.Bool

	stats counters

	emitViolation pkgif.Emitter
}

// New 创建数据包守卫
//
// term、bus 与 m 可为 nil。
func New(cfg Config, clk clock.Clock, term pkgif.Terminator, bus pkgif.EventBus, m *Metrics) (*Guard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	kicked, err := lru.New[types.Identity, types.Category](cfg.KickedCacheSize)
	if err != nil {
		return nil, err
	}

	g := &Guard{
		clk:           clk,
		metrics:       m,
		term:          term,
		kicked:        kicked,
		dropWarn:      rate.Sometimes{First: 5, Interval: 10 * time.Second},
		emitViolation: eventbus.EmitterOrNop(bus, new(types.EvtViolation)),
	}
	g.states = ratewindow.NewTable[types.Identity](g.newState)
	g.cfg.Store(&cfg)

	logger.Info("数据包守卫已创建",
		"maxPacketSize", cfg.MaxPacketSize,
		"threshold", cfg.ViolationThreshold,
		"window", cfg.ViolationWindow)
	return g, nil
}

func (g *Guard) newState() *state {
	return &state{
		spacing: ratewindow.NewSpacing(g.cfg.Load().PacketMinSpacing),
		windows: make(map[types.Category]*ratewindow.Window, len(types.Categories)),
		flags:   make(map[types.Flag]time.Time),
	}
}

// Config 返回当前配置
func (g *Guard) Config() Config {
	return *g.cfg.Load()
}

// UpdateConfig 原子替换配置，已有会话的间隔与窗口立即按新值计算
func (g *Guard) UpdateConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	g.cfg.Store(&cfg)
	g.kicked.Resize(cfg.KickedCacheSize)

	g.states.Range(func(_ types.Identity, st *state) bool {
		st.mu.Lock()
		st.spacing.SetSpacing(cfg.PacketMinSpacing)
		for _, w := range st.windows {
			w.SetSize(cfg.ViolationWindow)
		}
		st.mu.Unlock()
		return true
	})

	logger.Info("守卫配置已更新",
		"maxPacketSize", cfg.MaxPacketSize,
		"threshold", cfg.ViolationThreshold)
	return nil
}

// ============================================================================
//                              Inspect
// ============================================================================

// Inspect 检查数据包，负载长度按原始大小计
func (g *Guard) Inspect(identity types.Identity, kind string, size int) types.Verdict {
	return g.InspectPacket(identity, types.Packet{Kind: kind, Size: size, PayloadLen: size})
}

// hit 一次命中的类别及计数
type hit struct {
	category types.Category
	count    int
}

// InspectPacket 检查数据包
func (g *Guard) InspectPacket(identity types.Identity, p types.Packet) types.Verdict {
	if g.closed.Load() {
		return types.Pass()
	}
	if identity.IsEmpty() {
		return types.Verdict{Action: types.ActionDrop}
	}

	cfg := g.cfg.Load()
	now := g.clk.Now()

	if cfg.LogPackets {
		logger.Debug("数据包", "identity", identity.ShortString(), "kind", p.Kind, "size", p.Size, "payload", p.PayloadLen)
	}

	if reason, ok := g.kicked.Get(identity); ok {
		v := types.Verdict{Action: types.ActionKick, Reason: reason}
		g.record(v)
		return v
	}

	var hits []hit
	for {
		st := g.states.LoadOrCreate(identity)
		st.mu.Lock()
		if st.removed {
			st.mu.Unlock()
			g.states.CompareAndDelete(identity, st)
			continue
		}
		hits = g.check(st, cfg, p, now)
		st.mu.Unlock()
		break
	}

	if len(hits) == 0 {
		v := types.Pass()
		g.record(v)
		return v
	}

	v := types.Verdict{Action: types.ActionDrop, Violations: make([]types.Category, 0, len(hits))}
	for _, h := range hits {
		v.Violations = append(v.Violations, h.category)
		if v.Action != types.ActionKick && h.count >= cfg.ViolationThreshold {
			v.Action = types.ActionKick
			v.Reason = h.category
		}
	}

	for _, h := range hits {
		_ = g.emitViolation.Emit(types.EvtViolation{
			BaseEvent: types.NewBaseEvent(types.EventTypeViolation, now),
			Identity:  identity,
			Category:  h.category,
			Count:     h.count,
			Kind:      p.Kind,
			Size:      p.Size,
			Action:    v.Action,
		})
	}

	if v.Action == types.ActionKick {
		g.kick(identity, v.Reason)
	} else {
		g.dropWarn.Do(func() {
			logger.Warn("丢弃违规数据包",
				"identity", identity.ShortString(),
				"kind", p.Kind,
				"size", p.Size,
				"violations", v.Violations)
		})
	}
	g.record(v)
	return v
}

// check 运行全部检查，调用方持有 st.mu
func (g *Guard) check(st *state, cfg *Config, p types.Packet, now time.Time) []hit {
	var hits []hit
	add := func(c types.Category) {
		w, ok := st.windows[c]
		if !ok {
			w = ratewindow.NewWindow(cfg.ViolationWindow)
			st.windows[c] = w
		}
		n, _ := w.Hit(now)
		hits = append(hits, hit{category: c, count: n})
	}

	if p.Size > cfg.MaxPacketSize {
		add(types.CategoryOversized)
	}
	if cfg.isCrasherKind(p.Kind) && p.PayloadLen > cfg.CrasherPayloadLimit {
		add(types.CategoryCrasher)
	}
	if st.spacing.Observe(now) > cfg.ViolationThreshold {
		add(types.CategoryPacketRate)
	}

	if cfg.isPrinterKind(p.Kind) && p.Face == types.FaceUp {
		st.flags[types.FlagPrinter] = now.Add(cfg.FlagTTL)
	}
	return hits
}

// kick 记录踢出并请求终止会话
//
// 先写入踢出缓存，再调用 Terminator，会话关闭钩子清理状态时不会丢失踢出标记。
func (g *Guard) kick(identity types.Identity, c types.Category) {
	if already, _ := g.kicked.ContainsOrAdd(identity, c); already {
		return
	}
	g.metrics.kicked(c)
	g.stats.kicks.Add(1)

	logger.Warn("因安全违规踢出会话", "identity", identity.ShortString(), "category", c)
	if g.term != nil {
		g.term.Terminate(identity, KickMessage(c))
	}
}

func (g *Guard) record(v types.Verdict) {
	g.stats.record(v)
	g.metrics.inspected(v)
	g.metrics.setTracked(g.states.Len())
}

// ============================================================================
//                              标记
// ============================================================================

// HasFlag 身份是否带有未过期的标记
func (g *Guard) HasFlag(identity types.Identity, f types.Flag) bool {
	st, ok := g.states.Load(identity)
	if !ok {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	until, ok := st.flags[f]
	return ok && g.clk.Now().Before(until)
}

// ClearFlag 清除标记
func (g *Guard) ClearFlag(identity types.Identity, f types.Flag) {
	st, ok := g.states.Load(identity)
	if !ok {
		return
	}
	st.mu.Lock()
	delete(st.flags, f)
	st.mu.Unlock()
}

// ============================================================================
//                              窗口与状态
// ============================================================================

// Violations 返回身份当前窗口内各类别的计数
func (g *Guard) Violations(identity types.Identity) map[types.Category]int {
	out := make(map[types.Category]int)
	st, ok := g.states.Load(identity)
	if !ok {
		return out
	}
	now := g.clk.Now()
	st.mu.Lock()
	defer st.mu.Unlock()
	for c, w := range st.windows {
		if n := w.Count(now); n > 0 {
			out[c] = n
		}
	}
	return out
}

// IsKicked 身份是否处于踢出状态
func (g *Guard) IsKicked(identity types.Identity) bool {
	return g.kicked.Contains(identity)
}

// ResetResult 一次窗口重置的结果
type ResetResult struct {
	WindowsReset int `json:"windows_reset"`
	FlagsExpired int `json:"flags_expired"`
	StatesPruned int `json:"states_pruned"`
}

// ResetWindows 清除已过期的违规窗口和标记，回收空闲身份的状态
func (g *Guard) ResetWindows(now time.Time) ResetResult {
	var res ResetResult
	if g.closed.Load() {
		return res
	}
	cfg := g.cfg.Load()

	res.StatesPruned = g.states.Sweep(func(_ types.Identity, st *state) bool {
		st.mu.Lock()
		defer st.mu.Unlock()

		for c, w := range st.windows {
			if w.Expired(now) {
				delete(st.windows, c)
				res.WindowsReset++
			}
		}
		for f, until := range st.flags {
			if !now.Before(until) {
				delete(st.flags, f)
				res.FlagsExpired++
			}
		}

		idle := len(st.windows) == 0 && len(st.flags) == 0 &&
			now.Sub(st.spacing.Last()) > cfg.ViolationWindow
		if idle {
			st.removed = true
		}
		return idle
	})

	if res.StatesPruned > 0 {
		g.metrics.setTracked(g.states.Len())
	}
	if res.WindowsReset > 0 {
		logger.Debug("违规窗口已重置", "windows", res.WindowsReset, "pruned", res.StatesPruned)
	}
	return res
}

// Forget 丢弃身份的违规、间隔与标记状态（会话结束）
//
// 踢出标记保留，直到 Readmit。
func (g *Guard) Forget(identity types.Identity) {
	st, ok := g.states.Delete(identity)
	if !ok {
		return
	}
	st.mu.Lock()
	st.removed = true
	st.mu.Unlock()
	g.metrics.setTracked(g.states.Len())
}

// Readmit 丢弃身份的全部状态，包括踢出标记（重新注册）
func (g *Guard) Readmit(identity types.Identity) {
	g.Forget(identity)
	g.kicked.Remove(identity)
}

// Close 关闭守卫并清空所有状态
func (g *Guard) Close() error {
	if !g.closed.CompareAndSwap(false, true) {
		return nil
	}
	g.states.Clear()
	g.kicked.Purge()
	g.metrics.setTracked(0)
	logger.Info("数据包守卫已关闭")
	return nil
}
