package ratewindow

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// TestWindow_Hit 测试固定窗口计数与重置
func TestWindow_Hit(t *testing.T) {
	w := NewWindow(time.Second)

	n, reset := w.Hit(t0)
	assert.Equal(t, 1, n)
	assert.True(t, reset, "首次命中开启新窗口")

	n, reset = w.Hit(t0.Add(500 * time.Millisecond))
	assert.Equal(t, 2, n)
	assert.False(t, reset)

	// 恰好等于窗口大小时不重置
	n, _ = w.Hit(t0.Add(time.Second))
	assert.Equal(t, 3, n)

	// 超过窗口后重置一次
	n, reset = w.Hit(t0.Add(time.Second + time.Nanosecond))
	assert.Equal(t, 1, n)
	assert.True(t, reset)

	assert.Equal(t, 0, w.Count(t0.Add(10*time.Second)))
	assert.True(t, w.Expired(t0.Add(10*time.Second)))

	w.Reset()
	assert.Equal(t, 0, w.Count(t0))

	t.Log("✅ Window.Hit 测试通过")
}

// TestSpacing_Observe 测试最小间隔跟踪
func TestSpacing_Observe(t *testing.T) {
	s := NewSpacing(time.Second)

	assert.Equal(t, 0, s.Observe(t0), "第一个包不计数")
	assert.Equal(t, 1, s.Observe(t0.Add(100*time.Millisecond)))
	assert.Equal(t, t0.Add(100*time.Millisecond), s.WindowStart())
	assert.Equal(t, 2, s.Observe(t0.Add(200*time.Millisecond)))

	// 与上一个包间隔 >= spacing 时归零
	assert.Equal(t, 0, s.Observe(t0.Add(1200*time.Millisecond)))
	assert.True(t, s.WindowStart().IsZero())
	assert.Equal(t, t0.Add(1200*time.Millisecond), s.Last())

	// 持续密集到达时 last 每次刷新，计数持续增长
	for i := 1; i <= 5; i++ {
		assert.Equal(t, i, s.Observe(t0.Add(1200*time.Millisecond+time.Duration(i)*900*time.Millisecond)))
	}
	assert.Equal(t, 5, s.Count())

	t.Log("✅ Spacing.Observe 测试通过")
}

// TestCounter_TryAcquire 测试在途计数器
func TestCounter_TryAcquire(t *testing.T) {
	c := NewCounter()

	for i := 0; i < 3; i++ {
		ok, alive := c.TryAcquire(3, t0)
		require.True(t, ok)
		require.True(t, alive)
	}
	ok, alive := c.TryAcquire(3, t0)
	assert.False(t, ok)
	assert.True(t, alive)
	assert.Equal(t, 3, c.Load())

	assert.False(t, c.Retire(), "非零计数不可回收")

	c.Release()
	c.Release()
	c.Release()
	c.Release() // 多余的释放不会变为负数
	assert.Equal(t, 0, c.Load())

	assert.True(t, c.Retire())
	ok, alive = c.TryAcquire(3, t0)
	assert.False(t, ok)
	assert.False(t, alive, "回收后的计数器不可再用")

	t.Log("✅ Counter.TryAcquire 测试通过")
}

// TestCounter_Concurrent 测试并发占用不会超过上限
func TestCounter_Concurrent(t *testing.T) {
	c := NewCounter()
	var acquired atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := c.TryAcquire(3, t0); ok {
				acquired.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(3), acquired.Load())
	assert.Equal(t, 3, c.Load())

	t.Log("✅ Counter 并发测试通过")
}

// TestTable 测试按键存储
func TestTable(t *testing.T) {
	tbl := NewTable[string, *Counter](NewCounter)

	a := tbl.LoadOrCreate("a")
	assert.Same(t, a, tbl.LoadOrCreate("a"))
	tbl.LoadOrCreate("b")
	assert.Equal(t, 2, tbl.Len())

	got, ok := tbl.Load("a")
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = tbl.Load("missing")
	assert.False(t, ok)

	a.TryAcquire(1, t0)
	removed := tbl.Sweep(func(_ string, c *Counter) bool { return c.Retire() })
	assert.Equal(t, 1, removed, "只回收空闲条目")
	assert.Equal(t, 1, tbl.Len())

	assert.False(t, tbl.CompareAndDelete("a", NewCounter()))
	assert.True(t, tbl.CompareAndDelete("a", a))
	assert.Equal(t, 0, tbl.Len())

	tbl.Store("c", NewCounter())
	tbl.Store("c", NewCounter())
	assert.Equal(t, 1, tbl.Len())

	_, ok = tbl.Delete("c")
	assert.True(t, ok)
	_, ok = tbl.Delete("c")
	assert.False(t, ok)

	tbl.LoadOrCreate("x")
	tbl.LoadOrCreate("y")
	tbl.Clear()
	assert.Equal(t, 0, tbl.Len())

	t.Log("✅ Table 测试通过")
}
