package ratewindow

import (
	"sync/atomic"
	"time"
)

// retired 标记已被清理回收的计数器
const retired = -1

// Counter 无锁在途计数器
//
// 通过 CAS 实现 TryAcquire，不持有任何锁。
// 计数归零且空闲的计数器可以被 Retire 回收，回收后 TryAcquire 返回 alive=false，
// 调用方应从 Table 重新获取新的计数器。
type Counter struct {
	n        atomic.Int64
	lastUsed atomic.Int64
}

// NewCounter 创建计数器
func NewCounter() *Counter {
	return &Counter{}
}

// TryAcquire 在未达到 limit 时占用一个名额
func (c *Counter) TryAcquire(limit int, now time.Time) (acquired, alive bool) {
	for {
		cur := c.n.Load()
		if cur == retired {
			return false, false
		}
		if cur >= int64(limit) {
			return false, true
		}
		if c.n.CompareAndSwap(cur, cur+1) {
			c.lastUsed.Store(now.UnixNano())
			return true, true
		}
	}
}

// Release 归还一个名额
func (c *Counter) Release() {
	for {
		cur := c.n.Load()
		if cur <= 0 {
			return
		}
		if c.n.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// Load 返回当前占用数
func (c *Counter) Load() int {
	n := c.n.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}

// LastUsed 返回最后一次成功占用的时间
func (c *Counter) LastUsed() time.Time {
	return time.Unix(0, c.lastUsed.Load())
}

// Retire 在计数为零时回收计数器
func (c *Counter) Retire() bool {
	return c.n.CompareAndSwap(0, retired)
}
