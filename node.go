package xgate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/xbedrock/go-xgate/config"
	"github.com/xbedrock/go-xgate/internal/admin"
	"github.com/xbedrock/go-xgate/internal/core/eventbus"
	"github.com/xbedrock/go-xgate/internal/core/gate"
	"github.com/xbedrock/go-xgate/internal/core/guard"
	"github.com/xbedrock/go-xgate/internal/core/registry"
	"github.com/xbedrock/go-xgate/internal/core/reload"
	"github.com/xbedrock/go-xgate/internal/core/scheduler"
	"github.com/xbedrock/go-xgate/internal/core/storage"
	pkgif "github.com/xbedrock/go-xgate/pkg/interfaces"
	"github.com/xbedrock/go-xgate/pkg/lib/log"
	"github.com/xbedrock/go-xgate/pkg/types"
)

var logger = log.Logger("xgate")

// ════════════════════════════════════════════════════════════════════════════
//                              节点状态
// ════════════════════════════════════════════════════════════════════════════

// NodeState 节点状态
type NodeState int

const (
	// StateIdle 已创建，未启动
	StateIdle NodeState = iota

	// StateStarting 启动中
	StateStarting

	// StateRunning 运行中
	StateRunning

	// StateStopping 停止中
	StateStopping

	// StateStopped 已停止
	StateStopped
)

// String 返回状态的字符串表示
func (s NodeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const (
	// startTimeout Fx App 启动超时
	startTimeout = 30 * time.Second

	// stopTimeout Fx App 停止超时
	stopTimeout = 15 * time.Second
)

// Node xgate 节点
//
// Node 是上层代理与 xgate 交互的主入口，聚合准入门、会话注册表和数据包守卫。
// 除 Start/Close 外的方法都可以并发调用。
type Node struct {
	config *nodeConfig
	app    *fx.App

	// 由 Fx 注入
	gate      *gate.Gate
	registry  *registry.Registry
	guard     *guard.Guard
	bus       *eventbus.Bus
	reload    *reload.Manager
	scheduler *scheduler.Scheduler
	admin     *admin.Server
	store     *storage.Store

	mu      sync.RWMutex
	state   NodeState
	started bool
	closed  bool
}

// New 创建节点
//
// 组件在此时构造完成，周期任务要到 Start 后才开始运行。
func New(opts ...Option) (*Node, error) {
	cfg := newNodeConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	node := &Node{config: cfg}

	var err error
	node.app, err = buildFxApp(cfg, node)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	return node, nil
}

// Start 快捷启动函数，等价于 New() + Start()
func Start(ctx context.Context, opts ...Option) (*Node, error) {
	node, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := node.Start(ctx); err != nil {
		_ = node.Close()
		return nil, fmt.Errorf("start node: %w", err)
	}
	return node, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期
// ════════════════════════════════════════════════════════════════════════════

// Start 启动节点
//
// 启动存储 GC、管理 API 和调度器。
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrNodeClosed
	}
	if n.started {
		return ErrAlreadyStarted
	}

	n.state = StateStarting
	logger.Info("正在启动节点", "version", Version)

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := n.app.Start(startCtx); err != nil {
		n.state = StateIdle
		logger.Error("节点启动失败", "error", err)
		return fmt.Errorf("start failed: %w", err)
	}

	n.started = true
	n.state = StateRunning
	logger.Info("节点已启动", "admin", n.AdminAddr())
	return nil
}

// Close 关闭节点
//
// 已启动时按 Fx 生命周期逆序停止；未启动时直接关闭已构造的组件。
// 剩余的活跃会话会被写入持久化记录。重复调用是安全的。
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true
	n.state = StateStopping
	logger.Info("正在关闭节点")

	var err error
	if n.started {
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		err = n.app.Stop(ctx)
	} else {
		err = n.closeComponents()
	}

	n.started = false
	n.state = StateStopped
	if err != nil {
		logger.Warn("节点关闭时出现错误", "error", err)
		return err
	}
	logger.Info("节点已关闭")
	return nil
}

// closeComponents 关闭未经 Fx 启动的组件，顺序与 Fx 停止顺序一致
func (n *Node) closeComponents() error {
	var err error
	if n.guard != nil {
		err = multierr.Append(err, n.guard.Close())
	}
	if n.registry != nil {
		err = multierr.Append(err, n.registry.Close())
	}
	if n.gate != nil {
		err = multierr.Append(err, n.gate.Close())
	}
	if n.store != nil {
		err = multierr.Append(err, n.store.Close())
	}
	if n.bus != nil {
		err = multierr.Append(err, n.bus.Close())
	}
	return err
}

// State 返回节点状态
func (n *Node) State() NodeState {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

// IsRunning 节点是否运行中
func (n *Node) IsRunning() bool {
	return n.State() == StateRunning
}

// AdminAddr 返回管理 API 实际监听地址，未启用时为空
func (n *Node) AdminAddr() string {
	if n.admin == nil {
		return ""
	}
	return n.admin.Addr()
}

// ════════════════════════════════════════════════════════════════════════════
//                              准入
// ════════════════════════════════════════════════════════════════════════════

// Admit 对连接请求做出准入决策
//
// 节点关闭后返回 ReasonUnavailable 拒绝。
func (n *Node) Admit(req types.ConnectionRequest) types.Decision {
	return n.gate.Admit(req)
}

// QueuePosition 返回排队位置（从 1 开始），不在队列中时返回 0
func (n *Node) QueuePosition(identity types.Identity) int {
	return n.gate.Position(identity)
}

// ════════════════════════════════════════════════════════════════════════════
//                              会话
// ════════════════════════════════════════════════════════════════════════════

// Register 登记新会话
func (n *Node) Register(identity types.Identity, displayName, address string, device types.DeviceInfo) (types.Session, error) {
	return n.registry.Register(identity, displayName, address, device)
}

// RegisterFrom 登记新会话，设备信息从 src 读取，读取失败时使用缺省值
func (n *Node) RegisterFrom(identity types.Identity, displayName, address string, src types.DeviceInfoSource) (types.Session, error) {
	return n.registry.RegisterFrom(identity, displayName, address, src)
}

// Activate 标记会话进入游戏
func (n *Node) Activate(identity types.Identity) (types.Session, error) {
	return n.registry.Activate(identity)
}

// Touch 更新会话位置与朝向
func (n *Node) Touch(identity types.Identity, pos types.Position, orient types.Orientation) bool {
	return n.registry.Touch(identity, pos, orient)
}

// Unregister 结束会话
func (n *Node) Unregister(identity types.Identity) (types.Session, bool) {
	return n.registry.Unregister(identity)
}

// FlushSessions 等待已结束会话的记录写入存储
//
// 会话记录在后台异步写入；需要立即读取存储时先调用本方法。
func (n *Node) FlushSessions(ctx context.Context) error {
	return n.registry.Flush(ctx)
}

// Kick 断开会话
//
// 断开指令总会发出；返回值表示是否移除了一个活跃会话。
func (n *Node) Kick(identity types.Identity, reason string) bool {
	return n.registry.Terminate(identity, reason)
}

// Session 返回会话快照
func (n *Node) Session(identity types.Identity) (types.Session, bool) {
	return n.registry.Session(identity)
}

// Sessions 返回所有活跃会话，按连接时间排序
func (n *Node) Sessions() []types.Session {
	return n.registry.Sessions()
}

// RecentSessions 返回最近结束的会话，最新的在前
func (n *Node) RecentSessions() []types.Session {
	return n.registry.Recent()
}

// ════════════════════════════════════════════════════════════════════════════
//                              数据包
// ════════════════════════════════════════════════════════════════════════════

// Inspect 检查一个入站数据包
func (n *Node) Inspect(identity types.Identity, kind string, size int) types.Verdict {
	return n.guard.Inspect(identity, kind, size)
}

// InspectPacket 检查一个携带详细字段的入站数据包
func (n *Node) InspectPacket(identity types.Identity, p types.Packet) types.Verdict {
	return n.guard.InspectPacket(identity, p)
}

// HasFlag 会话是否带有指定的启发式标记
func (n *Node) HasFlag(identity types.Identity, f types.Flag) bool {
	return n.guard.HasFlag(identity, f)
}

// ════════════════════════════════════════════════════════════════════════════
//                              观测与配置
// ════════════════════════════════════════════════════════════════════════════

// Stats 节点统计快照
type Stats struct {
	State    string         `json:"state"`
	Gate     gate.Stats     `json:"gate"`
	Guard    guard.Stats    `json:"guard"`
	Sessions int            `json:"sessions"`
	Storage  *storage.Stats `json:"storage,omitempty"`
}

// Stats 返回统计快照
func (n *Node) Stats() Stats {
	s := Stats{
		State:    n.State().String(),
		Gate:     n.gate.Stats(),
		Guard:    n.guard.Stats(),
		Sessions: n.registry.Count(),
	}
	if n.store != nil {
		st := n.store.Stats()
		s.Storage = &st
	}
	return s
}

// Subscribe 订阅事件
//
// eventType 以指针形式传入，例如 new(types.EvtDisconnect)。
func (n *Node) Subscribe(eventType interface{}, opts ...pkgif.SubscriptionOpt) (pkgif.Subscription, error) {
	return n.bus.Subscribe(eventType, opts...)
}

// EventBus 返回事件总线
func (n *Node) EventBus() pkgif.EventBus {
	return n.bus
}

// Config 返回当前生效配置的副本
func (n *Node) Config() *config.Config {
	return n.reload.Current()
}

// Reload 热更新配置
//
// 准入门与守卫的限制立即生效；返回需要重启才能生效的配置段。
func (n *Node) Reload(cfg *config.Config) ([]string, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	return n.reload.Apply(cfg)
}

// Tasks 返回周期任务状态
func (n *Node) Tasks() []scheduler.TaskInfo {
	return n.scheduler.Tasks()
}
