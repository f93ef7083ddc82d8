package eventbus

import (
	"reflect"
	"sync"
	"sync/atomic"

	pkgif "github.com/xbedrock/go-xgate/pkg/interfaces"
)

// ============================================================================
//                              Subscription
// ============================================================================

// Subscription 订阅
type Subscription struct {
	bus       *Bus
	typ       reflect.Type
	out       chan interface{}
	closeOnce sync.Once
}

// Out 返回事件通道，Close 后通道被关闭
func (s *Subscription) Out() <-chan interface{} {
	return s.out
}

// Close 取消订阅，可重复调用
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		// 移除后 emit 不会再向 out 写入
		s.bus.removeSub(s)
		close(s.out)
	})
	return nil
}

// ============================================================================
//                              Emitter
// ============================================================================

// Emitter 事件发射器
type Emitter struct {
	bus       *Bus
	node      *node
	typ       reflect.Type
	closed    atomic.Bool
	closeOnce sync.Once
}

// Emit 发射事件
func (e *Emitter) Emit(event interface{}) error {
	if e.closed.Load() {
		return ErrEmitterClosed
	}
	if e.bus.closed.Load() {
		return ErrClosed
	}
	e.node.emit(event, e.bus.metrics)
	return nil
}

// Close 关闭发射器
func (e *Emitter) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		if e.node.nEmitters.Add(-1) == 0 {
			e.bus.tryDropNode(e.typ)
		}
	})
	return nil
}

// ============================================================================
//                              NopEmitter
// ============================================================================

// nopEmitter 未配置总线时使用的空发射器
type nopEmitter struct{}

func (nopEmitter) Emit(interface{}) error { return nil }
func (nopEmitter) Close() error           { return nil }

// EmitterOrNop 获取发射器，bus 为 nil 或获取失败时返回空发射器
//
// 组件在构造时调用，保证后续 Emit 调用无需判空。
func EmitterOrNop(bus pkgif.EventBus, eventType interface{}, opts ...pkgif.EmitterOpt) pkgif.Emitter {
	if bus == nil {
		return nopEmitter{}
	}
	em, err := bus.Emitter(eventType, opts...)
	if err != nil {
		logger.Warn("获取事件发射器失败", "type", reflect.TypeOf(eventType), "error", err)
		return nopEmitter{}
	}
	return em
}
