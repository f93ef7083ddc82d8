package testutil

import (
	"context"
	"testing"
	"time"

	pkgif "github.com/xbedrock/go-xgate/pkg/interfaces"
)

// WaitForCondition 等待条件满足或超时
//
// 返回条件是否满足（超时返回 false）。
func WaitForCondition(t *testing.T, timeout time.Duration, interval time.Duration, condition func() bool) bool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// 立即检查一次
	if condition() {
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if condition() {
				return true
			}
		}
	}
}

// Eventually 在指定时间内重试条件检查，超时则 fail 测试
//
// 使用默认间隔 10ms。
//
// 示例:
//
//	testutil.Eventually(t, time.Second, func() bool {
//	    return node.QueuePosition("b") == 0
//	}, "队列应被排空")
func Eventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	t.Helper()
	if !WaitForCondition(t, timeout, 10*time.Millisecond, condition) {
		t.Fatalf("等待超时: %s", msg)
	}
}

// WaitForEvent 从订阅中读取下一个事件，超时则 fail 测试
//
// 示例:
//
//	evt := testutil.WaitForEvent[types.EvtAdmitted](t, sub, time.Second)
func WaitForEvent[E any](t *testing.T, sub pkgif.Subscription, timeout time.Duration) E {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	evt, err := pkgif.Next[E](ctx, sub)
	if err != nil {
		t.Fatalf("等待事件 %T 失败: %v", evt, err)
	}
	return evt
}

// DrainEvents 读出订阅中当前已缓冲的全部事件
func DrainEvents[E any](sub pkgif.Subscription) []E {
	var out []E
	for {
		select {
		case e, ok := <-sub.Out():
			if !ok {
				return out
			}
			if evt, ok := e.(E); ok {
				out = append(out, evt)
			}
		default:
			return out
		}
	}
}
