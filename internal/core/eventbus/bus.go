// Package eventbus 实现类型化事件总线
//
// 事件按 reflect.Type 分组，每种类型一个节点，节点上挂订阅者列表。
// Emit 从不阻塞：订阅者缓冲区满时事件被丢弃，并按速率限制记录慢消费者告警。
// 准入门、注册表和守卫通过它发布决策、断开指令与违规通知。
package eventbus

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	pkgif "github.com/xbedrock/go-xgate/pkg/interfaces"
	"github.com/xbedrock/go-xgate/pkg/lib/log"
)

var logger = log.Logger("core/eventbus")

// DefaultBufSize 默认订阅缓冲区大小
const DefaultBufSize = 64

var (
	// ErrClosed 事件总线已关闭
	ErrClosed = errors.New("eventbus: closed")
	// ErrInvalidEventType 无效的事件类型
	ErrInvalidEventType = errors.New("eventbus: invalid event type")
	// ErrNonPointerType 非指针类型
	ErrNonPointerType = errors.New("eventbus: event type must be a pointer")
	// ErrEmitterClosed 发射器已关闭
	ErrEmitterClosed = errors.New("eventbus: emitter closed")
)

// Bus 事件总线
type Bus struct {
	mu     sync.RWMutex
	nodes  map[reflect.Type]*node
	closed atomic.Bool

	metrics *Metrics
}

// node 单个事件类型的订阅者集合
type node struct {
	lk        sync.Mutex
	typ       reflect.Type
	name      string
	sinks     []*Subscription
	nEmitters atomic.Int32
	keepLast  bool
	last      interface{}

	dropped   atomic.Int64
	dropWarn  rate.Sometimes
	emitCount atomic.Int64
}

// NewBus 创建事件总线，m 可为 nil
func NewBus(m *Metrics) *Bus {
	return &Bus{
		nodes:   make(map[reflect.Type]*node),
		metrics: m,
	}
}

// Subscribe 订阅事件
//
//	sub, _ := bus.Subscribe(new(types.EvtDisconnect))
func (b *Bus) Subscribe(eventType interface{}, opts ...pkgif.SubscriptionOpt) (pkgif.Subscription, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	elem, err := elemType(eventType)
	if err != nil {
		return nil, err
	}

	settings := pkgif.SubscriptionSettings{Buffer: DefaultBufSize}
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.Buffer < 0 {
		settings.Buffer = 0
	}

	sub := &Subscription{
		bus: b,
		typ: elem,
		out: make(chan interface{}, settings.Buffer),
	}

	b.withNode(elem, func(n *node) {
		n.sinks = append(n.sinks, sub)
		if n.keepLast && n.last != nil {
			select {
			case sub.out <- n.last:
			default:
			}
		}
	})

	return sub, nil
}

// Emitter 获取发射器
func (b *Bus) Emitter(eventType interface{}, opts ...pkgif.EmitterOpt) (pkgif.Emitter, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	elem, err := elemType(eventType)
	if err != nil {
		return nil, err
	}

	var settings pkgif.EmitterSettings
	for _, opt := range opts {
		opt(&settings)
	}

	var n *node
	b.withNode(elem, func(nd *node) {
		n = nd
		n.nEmitters.Add(1)
		if settings.Stateful {
			n.keepLast = true
		}
	})

	return &Emitter{bus: b, node: n, typ: elem}, nil
}

// GetAllEventTypes 返回所有已注册的事件类型（零值实例）
func (b *Bus) GetAllEventTypes() []interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]interface{}, 0, len(b.nodes))
	for typ := range b.nodes {
		out = append(out, reflect.Zero(typ).Interface())
	}
	return out
}

// Close 关闭总线并关闭所有订阅
func (b *Bus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	b.mu.Lock()
	var subs []*Subscription
	for _, n := range b.nodes {
		n.lk.Lock()
		subs = append(subs, n.sinks...)
		n.lk.Unlock()
	}
	b.mu.Unlock()

	for _, s := range subs {
		_ = s.Close()
	}

	b.mu.Lock()
	b.nodes = make(map[reflect.Type]*node)
	b.mu.Unlock()
	return nil
}

// Dropped 返回指定事件类型的累计丢弃数
func (b *Bus) Dropped(eventType interface{}) int64 {
	elem, err := elemType(eventType)
	if err != nil {
		return 0
	}
	b.mu.RLock()
	n, ok := b.nodes[elem]
	b.mu.RUnlock()
	if !ok {
		return 0
	}
	return n.dropped.Load()
}

// ============================================================================
//                              内部方法
// ============================================================================

func elemType(eventType interface{}) (reflect.Type, error) {
	if eventType == nil {
		return nil, ErrInvalidEventType
	}
	typ := reflect.TypeOf(eventType)
	if typ.Kind() != reflect.Ptr {
		return nil, ErrNonPointerType
	}
	return typ.Elem(), nil
}

// withNode 在节点锁内执行回调，节点不存在时创建
func (b *Bus) withNode(typ reflect.Type, cb func(*node)) {
	b.mu.Lock()
	n, ok := b.nodes[typ]
	if !ok {
		n = &node{
			typ:      typ,
			name:     typ.Name(),
			dropWarn: rate.Sometimes{First: 1, Interval: 10 * time.Second},
		}
		b.nodes[typ] = n
	}
	n.lk.Lock()
	b.mu.Unlock()

	cb(n)
	n.lk.Unlock()
}

// tryDropNode 没有订阅者和发射器时删除节点
func (b *Bus) tryDropNode(typ reflect.Type) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, ok := b.nodes[typ]
	if !ok {
		return
	}
	n.lk.Lock()
	empty := len(n.sinks) == 0 && n.nEmitters.Load() == 0 && !n.keepLast
	n.lk.Unlock()
	if empty {
		delete(b.nodes, typ)
	}
}

// removeSub 移除订阅
func (b *Bus) removeSub(sub *Subscription) {
	b.mu.Lock()
	n, ok := b.nodes[sub.typ]
	if !ok {
		b.mu.Unlock()
		return
	}
	n.lk.Lock()
	b.mu.Unlock()

	for i, s := range n.sinks {
		if s == sub {
			n.sinks = append(n.sinks[:i], n.sinks[i+1:]...)
			break
		}
	}
	shouldDrop := len(n.sinks) == 0 && n.nEmitters.Load() == 0
	n.lk.Unlock()

	if shouldDrop {
		b.tryDropNode(sub.typ)
	}
}

// emit 非阻塞地投递到所有订阅者
func (n *node) emit(event interface{}, m *Metrics) {
	n.lk.Lock()
	defer n.lk.Unlock()

	if n.keepLast {
		n.last = event
	}
	n.emitCount.Add(1)
	m.recordEmit(n.name)

	for _, sub := range n.sinks {
		select {
		case sub.out <- event:
		default:
			dropped := n.dropped.Add(1)
			m.recordDrop(n.name)
			n.dropWarn.Do(func() {
				logger.Warn("慢消费者，事件被丢弃",
					"type", n.name,
					"dropped", dropped)
			})
		}
	}
}
