package interfaces

import (
	"context"
	"errors"

	"github.com/xbedrock/go-xgate/pkg/types"
)

// ErrSubscriptionClosed 订阅已关闭
var ErrSubscriptionClosed = errors.New("subscription closed")

// EventBus 准入门、注册表与守卫共用的事件总线
//
// 事件类型以指针形式传入，例如 Subscribe(new(types.EvtDisconnect))；
// 核心发布的全部类型见 EventTypes。
type EventBus interface {
	// Subscribe 订阅指定类型的事件
	Subscribe(eventType interface{}, opts ...SubscriptionOpt) (Subscription, error)

	// Emitter 获取指定事件类型的发射器
	Emitter(eventType interface{}, opts ...EmitterOpt) (Emitter, error)

	// GetAllEventTypes 返回当前已有订阅或发射器的事件类型
	GetAllEventTypes() []interface{}
}

// Subscription 事件订阅
type Subscription interface {
	// Out 返回接收事件的通道，订阅关闭后通道关闭
	Out() <-chan interface{}

	// Close 取消订阅
	Close() error
}

// Emitter 事件发射器
type Emitter interface {
	// Emit 发射事件，订阅者缓冲区满时丢弃而不阻塞
	Emit(event interface{}) error

	// Close 关闭发射器
	Close() error
}

// EventTypes 返回核心发布的全部事件类型
//
//   - 准入门：EvtDecision、EvtAdmitted、EvtQueuePosition、EvtQueueExpired
//   - 注册表：EvtSessionOpened、EvtSessionClosed、EvtDisconnect
//   - 守卫：EvtViolation
func EventTypes() []interface{} {
	return []interface{}{
		new(types.EvtDecision),
		new(types.EvtAdmitted),
		new(types.EvtQueuePosition),
		new(types.EvtQueueExpired),
		new(types.EvtSessionOpened),
		new(types.EvtSessionClosed),
		new(types.EvtDisconnect),
		new(types.EvtViolation),
	}
}

// SubscribeTo 订阅 E 类型的事件
//
//	sub, err := interfaces.SubscribeTo[types.EvtDisconnect](bus, interfaces.BufSize(64))
func SubscribeTo[E any](bus EventBus, opts ...SubscriptionOpt) (Subscription, error) {
	return bus.Subscribe(new(E), opts...)
}

// Next 读取订阅中下一个 E 类型事件，其他类型的事件被跳过
func Next[E any](ctx context.Context, sub Subscription) (E, error) {
	var zero E
	for {
		select {
		case e, ok := <-sub.Out():
			if !ok {
				return zero, ErrSubscriptionClosed
			}
			if evt, ok := e.(E); ok {
				return evt, nil
			}
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Consume 把 E 类型事件逐个交给 fn，直到 ctx 结束或订阅关闭
//
// 返回前关闭订阅。
func Consume[E any](ctx context.Context, sub Subscription, fn func(E)) {
	defer sub.Close()
	for {
		evt, err := Next[E](ctx, sub)
		if err != nil {
			return
		}
		fn(evt)
	}
}

// SubscriptionOpt 订阅选项函数类型
type SubscriptionOpt func(*SubscriptionSettings)

// EmitterOpt 发射器选项函数类型
type EmitterOpt func(*EmitterSettings)

// SubscriptionSettings 订阅设置
type SubscriptionSettings struct {
	Buffer int
}

// EmitterSettings 发射器设置
type EmitterSettings struct {
	Stateful bool
}

// BufSize 设置订阅缓冲区大小
func BufSize(size int) SubscriptionOpt {
	return func(s *SubscriptionSettings) {
		s.Buffer = size
	}
}

// Stateful 设置发射器为有状态模式
//
// 有状态发射器会把最后一个事件回放给新订阅者。
func Stateful() EmitterOpt {
	return func(s *EmitterSettings) {
		s.Stateful = true
	}
}
