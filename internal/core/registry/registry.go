// Package registry 实现会话注册表
//
// 每个身份至多一个活跃会话。会话条目各自持锁，注册表不使用全局互斥锁；
// 对外只返回会话副本。
//
// 会话结束时注册表负责：
//   - 将会话合并进持久化记录（SessionStore，由后台队列异步写入）
//   - 写入最近断开历史（LRU）
//   - 发布 EvtSessionClosed 并执行关闭钩子
package registry

import (
	"context"
	"fmt"
	"sort"
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

var logger = log.Logger("core/registry")

// Hook 会话生命周期回调
type Hook func(s types.Session)

// Dependencies 注册表协作方，均可为 nil
type Dependencies struct {
	Store        pkgif.SessionStore
	Ping         pkgif.PingReader
	Disconnector pkgif.Disconnector
	Bus          pkgif.EventBus
	Metrics      *Metrics
}

// entry 单个身份的会话槽
//
// removed 置位后条目不再复用，Register 会换一个新条目。
type entry struct {
	mu       sync.Mutex
	live     bool
	removed  bool
	s        types.Session
	lastSeen time.Time
}

// Registry 会话注册表
type Registry struct {
	cfg     Config
	clk     clock.Clock
	deps    Dependencies
	metrics *Metrics

	sessions *ratewindow.Table[types.Identity, *entry]
	devices  *ratewindow.Table[string, types.Identity]
	recent   *lru.Cache[types.Identity, types.Session]
	count    atomic.Int64

	hooksMu       sync.RWMutex
	registerHooks []Hook
	closeHooks    []Hook

	pingWarn    rate.Sometimes
	persistWarn rate.Sometimes

	// lifeMu 读锁覆盖注册与移除的状态变更，Close 持写锁
	lifeMu sync.RWMutex
	closed atomic.Bool

	persister *persister

	emitOpened     pkgif.Emitter
	emitClosed     pkgif.Emitter
	emitDisconnect pkgif.Emitter
}

var _ pkgif.Terminator = (*Registry)(nil)

// New 创建会话注册表
func New(cfg Config, clk clock.Clock, deps Dependencies) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	recent, err := lru.New[types.Identity, types.Session](cfg.RecentHistorySize)
	if err != nil {
		return nil, fmt.Errorf("registry: create history: %w", err)
	}

	r := &Registry{
		cfg:      cfg,
		clk:      clk,
		deps:     deps,
		metrics:  deps.Metrics,
		sessions: ratewindow.NewTable[types.Identity](func() *entry { return &entry{} }),
		devices:  ratewindow.NewTable[string, types.Identity](nil),
		recent:   recent,

		pingWarn:    rate.Sometimes{First: 3, Interval: 30 * time.Second},
		persistWarn: rate.Sometimes{First: 3, Interval: 30 * time.Second},

		emitOpened:     eventbus.EmitterOrNop(deps.Bus, new(types.EvtSessionOpened)),
		emitClosed:     eventbus.EmitterOrNop(deps.Bus, new(types.EvtSessionClosed)),
		emitDisconnect: eventbus.EmitterOrNop(deps.Bus, new(types.EvtDisconnect)),
	}

	size := cfg.PersistQueueSize
	if size <= 0 {
		size = DefaultConfig().PersistQueueSize
	}
	r.persister = newPersister(r, size)

	logger.Info("会话注册表已创建",
		"pingInterval", cfg.PingInterval,
		"positionInterval", cfg.PositionUpdateInterval)
	return r, nil
}

// Config 返回配置
func (r *Registry) Config() Config {
	return r.cfg
}

// ============================================================================
//                              注册
// ============================================================================

// Register 注册会话
//
// 身份已有活跃会话时返回 ErrDuplicateSession。
func (r *Registry) Register(identity types.Identity, displayName, address string, device types.DeviceInfo) (types.Session, error) {
	if r.closed.Load() {
		return types.Session{}, ErrClosed
	}
	if identity.IsEmpty() {
		return types.Session{}, ErrEmptyIdentity
	}

	now := r.clk.Now()
	device = device.Normalize()

	var s types.Session
	r.lifeMu.RLock()
	if r.closed.Load() {
		r.lifeMu.RUnlock()
		return types.Session{}, ErrClosed
	}
	for {
		e := r.sessions.LoadOrCreate(identity)
		e.mu.Lock()
		if e.removed {
			e.mu.Unlock()
			r.sessions.CompareAndDelete(identity, e)
			continue
		}
		if e.live {
			e.mu.Unlock()
			r.lifeMu.RUnlock()
			return types.Session{}, fmt.Errorf("%w: %s", ErrDuplicateSession, identity.ShortString())
		}
		e.live = true
		e.lastSeen = time.Time{}
		e.s = types.Session{
			Identity:       identity,
			DisplayName:    displayName,
			Address:        address,
			Device:         device,
			ConnectionTime: now,
			Ping:           types.PingUnknown,
		}
		s = e.s
		e.mu.Unlock()
		break
	}

	if device.DeviceID != types.UnknownDeviceValue {
		r.devices.Store(device.DeviceID, identity)
	}
	active := int(r.count.Add(1))
	r.lifeMu.RUnlock()
	r.metrics.opened(active)

	_ = r.emitOpened.Emit(types.EvtSessionOpened{
		BaseEvent: types.NewBaseEvent(types.EventTypeSessionOpened, now),
		Session:   s,
	})
	r.runHooks(r.snapshotHooks(true), s)

	logger.Info("会话已注册",
		"identity", identity.ShortString(),
		"name", displayName,
		"model", device.Model,
		"os", device.OS)
	return s, nil
}

// RegisterFrom 从设备信息能力接口读取元数据并注册会话
//
// src 为 nil、返回错误或 panic 时使用缺省设备信息。
func (r *Registry) RegisterFrom(identity types.Identity, displayName, address string, src types.DeviceInfoSource) (types.Session, error) {
	return r.Register(identity, displayName, address, readDevice(identity, src))
}

func readDevice(identity types.Identity, src types.DeviceInfoSource) (info types.DeviceInfo) {
	if src == nil {
		return types.UnknownDeviceInfo()
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Warn("读取设备信息 panic", "identity", identity.ShortString(), "panic", p)
			info = types.UnknownDeviceInfo()
		}
	}()
	d, err := src.DeviceInfo()
	if err != nil {
		logger.Debug("设备信息不可用", "identity", identity.ShortString(), "error", err)
		return types.UnknownDeviceInfo()
	}
	return d.Normalize()
}

// Activate 标记会话已进入（加入世界），重置连接时间
func (r *Registry) Activate(identity types.Identity) (types.Session, error) {
	e, ok := r.sessions.Load(identity)
	if !ok {
		return types.Session{}, ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.live {
		return types.Session{}, ErrSessionNotFound
	}
	e.s.Connected = true
	e.s.ConnectionTime = r.clk.Now()
	return e.s, nil
}

// ============================================================================
//                              位置
// ============================================================================

// Touch 以当前时间更新位置
func (r *Registry) Touch(identity types.Identity, pos types.Position, orient types.Orientation) bool {
	return r.TouchAt(identity, r.clk.Now(), pos, orient)
}

// TouchAt 以指定时间更新位置
//
// 距上次生效的更新不足 PositionUpdateInterval 时不生效；
// 早于已观察到的时间戳的更新被拒绝。
func (r *Registry) TouchAt(identity types.Identity, at time.Time, pos types.Position, orient types.Orientation) bool {
	e, ok := r.sessions.Load(identity)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.live || at.Before(e.lastSeen) {
		return false
	}
	e.lastSeen = at

	last := e.s.LastPositionUpdate
	if !last.IsZero() && at.Sub(last) < r.cfg.PositionUpdateInterval {
		return false
	}
	e.s.Position = pos
	e.s.Orientation = orient
	e.s.LastPositionUpdate = at
	return true
}

// ============================================================================
//                              移除
// ============================================================================

// Unregister 移除会话并返回其最终快照
func (r *Registry) Unregister(identity types.Identity) (types.Session, bool) {
	return r.remove(identity, causeUnregister)
}

// Terminate 强制终止会话
//
// 无论会话是否存在都会下发断开指令；返回值表示是否移除了活跃会话。
func (r *Registry) Terminate(identity types.Identity, reason string) bool {
	_, ok := r.remove(identity, causeTerminate)

	if d := r.deps.Disconnector; d != nil {
		if err := d.Disconnect(identity, reason); err != nil {
			logger.Warn("断开连接失败", "identity", identity.ShortString(), "error", err)
		}
	}
	_ = r.emitDisconnect.Emit(types.EvtDisconnect{
		BaseEvent: types.NewBaseEvent(types.EventTypeDisconnect, r.clk.Now()),
		Identity:  identity,
		Reason:    reason,
	})

	logger.Warn("会话被终止", "identity", identity.ShortString(), "reason", reason, "hadSession", ok)
	return ok
}

func (r *Registry) remove(identity types.Identity, cause string) (types.Session, bool) {
	r.lifeMu.RLock()
	s, ok := r.detach(identity)
	if !ok {
		r.lifeMu.RUnlock()
		return types.Session{}, false
	}
	active := int(r.count.Add(-1))
	r.recent.Add(s.Identity, s)
	r.lifeMu.RUnlock()

	r.metrics.closed(cause, active)
	r.finish(s, r.clk.Now())
	logger.Info("会话已移除", "identity", identity.ShortString(), "cause", cause)
	return s, true
}

// detach 将会话标记为已移除并从索引中删除，调用方持有 lifeMu 读锁
func (r *Registry) detach(identity types.Identity) (types.Session, bool) {
	e, ok := r.sessions.Load(identity)
	if !ok {
		return types.Session{}, false
	}

	e.mu.Lock()
	if !e.live {
		e.mu.Unlock()
		return types.Session{}, false
	}
	e.live = false
	e.removed = true
	e.s.Connected = false
	s := e.s
	e.mu.Unlock()

	r.sessions.CompareAndDelete(identity, e)
	r.devices.CompareAndDelete(s.Device.DeviceID, identity)
	return s, true
}

// finish 会话结束后的收尾：提交持久化、发布事件、执行钩子
func (r *Registry) finish(s types.Session, end time.Time) {
	r.persister.enqueue(s, end)

	_ = r.emitClosed.Emit(types.EvtSessionClosed{
		BaseEvent: types.NewBaseEvent(types.EventTypeSessionClosed, end),
		Session:   s,
	})
	r.runHooks(r.snapshotHooks(false), s)
}

// Flush 等待已结束会话的记录全部写入存储
func (r *Registry) Flush(ctx context.Context) error {
	return r.persister.flush(ctx)
}

// persist 将会话合并进持久化记录，失败只记录日志
func (r *Registry) persist(s types.Session, end time.Time) {
	store := r.deps.Store
	if store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.PersistTimeout)
	defer cancel()

	rec, _, err := store.Load(ctx, s.Identity)
	if err == nil {
		err = store.Save(ctx, rec.Merge(s, end))
	}
	if err != nil {
		r.metrics.persistFailed()
		r.persistWarn.Do(func() {
			logger.Error("保存会话记录失败", "identity", s.Identity.ShortString(), "error", err)
		})
	}
}

// ============================================================================
//                              查询
// ============================================================================

// Session 返回会话快照
func (r *Registry) Session(identity types.Identity) (types.Session, bool) {
	e, ok := r.sessions.Load(identity)
	if !ok {
		return types.Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.live {
		return types.Session{}, false
	}
	return e.s, true
}

// Sessions 返回所有活跃会话，按连接时间排序
func (r *Registry) Sessions() []types.Session {
	out := make([]types.Session, 0, r.Count())
	r.sessions.Range(func(_ types.Identity, e *entry) bool {
		e.mu.Lock()
		if e.live {
			out = append(out, e.s)
		}
		e.mu.Unlock()
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ConnectionTime.Equal(out[j].ConnectionTime) {
			return out[i].ConnectionTime.Before(out[j].ConnectionTime)
		}
		return out[i].Identity < out[j].Identity
	})
	return out
}

// Count 返回活跃会话数
func (r *Registry) Count() int {
	return int(r.count.Load())
}

// LookupDevice 按设备 ID 查找会话
func (r *Registry) LookupDevice(deviceID string) (types.Session, bool) {
	if deviceID == "" || deviceID == types.UnknownDeviceValue {
		return types.Session{}, false
	}
	id, ok := r.devices.Load(deviceID)
	if !ok {
		return types.Session{}, false
	}
	return r.Session(id)
}

// Recent 返回最近断开的会话，最新的在前
func (r *Registry) Recent() []types.Session {
	vals := r.recent.Values()
	out := make([]types.Session, len(vals))
	for i, v := range vals {
		out[len(vals)-1-i] = v
	}
	return out
}

// ============================================================================
//                              钩子
// ============================================================================

// OnRegister 添加会话注册回调
func (r *Registry) OnRegister(h Hook) {
	r.hooksMu.Lock()
	r.registerHooks = append(r.registerHooks, h)
	r.hooksMu.Unlock()
}

// OnClose 添加会话结束回调
func (r *Registry) OnClose(h Hook) {
	r.hooksMu.Lock()
	r.closeHooks = append(r.closeHooks, h)
	r.hooksMu.Unlock()
}

func (r *Registry) snapshotHooks(register bool) []Hook {
	r.hooksMu.RLock()
	defer r.hooksMu.RUnlock()
	if register {
		return append([]Hook(nil), r.registerHooks...)
	}
	return append([]Hook(nil), r.closeHooks...)
}

func (r *Registry) runHooks(hooks []Hook, s types.Session) {
	for _, h := range hooks {
		func() {
			defer func() {
				if p := recover(); p != nil {
					logger.Error("会话钩子 panic", "identity", s.Identity.ShortString(), "panic", p)
				}
			}()
			h(s)
		}()
	}
}

// ============================================================================
//                              关闭
// ============================================================================

// Close 关闭注册表
//
// 剩余的活跃会话以关闭时间作为结束时间写入持久化记录，然后清空所有状态。
func (r *Registry) Close() error {
	r.lifeMu.Lock()
	if r.closed.Load() {
		r.lifeMu.Unlock()
		return nil
	}
	r.closed.Store(true)

	now := r.clk.Now()
	var flushed []types.Session
	r.sessions.Range(func(_ types.Identity, e *entry) bool {
		e.mu.Lock()
		if e.live {
			e.live = false
			e.removed = true
			e.s.Connected = false
			flushed = append(flushed, e.s)
		}
		e.mu.Unlock()
		return true
	})

	r.sessions.Clear()
	r.devices.Clear()
	r.recent.Purge()
	r.count.Store(0)
	r.lifeMu.Unlock()

	// 先写完队列中的记录，再同步写入剩余会话
	r.persister.close()
	for _, s := range flushed {
		r.persist(s, now)
	}
	if r.metrics != nil {
		r.metrics.ClosedTotal.WithLabelValues(causeShutdown).Add(float64(len(flushed)))
		r.metrics.ActiveSessions.Set(0)
	}

	logger.Info("会话注册表已关闭", "flushed", len(flushed))
	return nil
}
