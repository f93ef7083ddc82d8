package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitRun(t *testing.T, ch <-chan time.Time) time.Time {
	t.Helper()
	select {
	case now := <-ch:
		return now
	case <-time.After(2 * time.Second):
		t.Fatal("任务未按时运行")
		return time.Time{}
	}
}

// TestScheduler_Every 测试周期任务按虚拟时钟运行
func TestScheduler_Every(t *testing.T) {
	mock := clock.NewMock()
	s := New(mock, Options{})

	runs := make(chan time.Time, 16)
	require.NoError(t, s.Every("tick", time.Second, func(now time.Time) { runs <- now }))
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	start := mock.Now()
	for i := 1; i <= 3; i++ {
		mock.Add(time.Second)
		now := waitRun(t, runs)
		assert.Equal(t, start.Add(time.Duration(i)*time.Second), now)
	}

	// 运行统计在任务返回后更新
	assert.Eventually(t, func() bool {
		tasks := s.Tasks()
		return len(tasks) == 1 && tasks[0].Runs == 3
	}, time.Second, 5*time.Millisecond)

	tasks := s.Tasks()
	assert.Equal(t, "tick", tasks[0].Name)
	assert.Equal(t, time.Second, tasks[0].Interval)

	t.Log("✅ Scheduler.Every 测试通过")
}

// TestScheduler_MultipleIntervals 测试不同间隔的任务共享一个驱动
func TestScheduler_MultipleIntervals(t *testing.T) {
	mock := clock.NewMock()
	s := New(mock, Options{})

	fast := make(chan time.Time, 16)
	slow := make(chan time.Time, 16)
	require.NoError(t, s.Every("fast", time.Second, func(now time.Time) { fast <- now }))
	require.NoError(t, s.Every("slow", 2*time.Second, func(now time.Time) { slow <- now }))
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	mock.Add(time.Second)
	waitRun(t, fast)
	assert.Len(t, slow, 0)

	mock.Add(time.Second)
	waitRun(t, fast)
	waitRun(t, slow)

	t.Log("✅ 多间隔任务测试通过")
}

// TestScheduler_PanicRecovered 测试 panic 不影响其他任务
func TestScheduler_PanicRecovered(t *testing.T) {
	mock := clock.NewMock()
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	s := New(mock, Options{Metrics: m})

	runs := make(chan time.Time, 16)
	require.NoError(t, s.Every("a-bad", time.Second, func(time.Time) { panic("boom") }))
	require.NoError(t, s.Every("b-good", time.Second, func(now time.Time) { runs <- now }))
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	mock.Add(time.Second)
	waitRun(t, runs)
	mock.Add(time.Second)
	waitRun(t, runs)

	var bad TaskInfo
	for _, info := range s.Tasks() {
		if info.Name == "a-bad" {
			bad = info
		}
	}
	assert.Equal(t, uint64(2), bad.Panics)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.PanicsTotal.WithLabelValues("a-bad")))
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.RunsTotal.WithLabelValues("b-good")) == 2
	}, time.Second, 5*time.Millisecond)

	t.Log("✅ panic 恢复测试通过")
}

// TestScheduler_Stop 测试停止后不再运行任务
func TestScheduler_Stop(t *testing.T) {
	mock := clock.NewMock()
	s := New(mock, Options{})

	runs := make(chan time.Time, 16)
	require.NoError(t, s.Every("tick", time.Second, func(now time.Time) { runs <- now }))
	require.NoError(t, s.Start(context.Background()))

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop(), "Stop 幂等")

	mock.Add(5 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, runs, 0)
	assert.Equal(t, 0, s.Len())

	assert.ErrorIs(t, s.Every("late", time.Second, func(time.Time) {}), ErrClosed)
	assert.ErrorIs(t, s.Start(context.Background()), ErrClosed)

	t.Log("✅ Scheduler.Stop 测试通过")
}

// TestScheduler_Errors 测试注册错误
func TestScheduler_Errors(t *testing.T) {
	s := New(clock.NewMock(), Options{})

	err := s.Every("zero", 0, func(time.Time) {})
	assert.True(t, errors.Is(err, ErrInvalidInterval))

	require.NoError(t, s.Every("x", time.Second, func(time.Time) {}))
	assert.ErrorIs(t, s.Every("x", time.Second, func(time.Time) {}), ErrDuplicateTask)

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)
	require.NoError(t, s.Stop())

	t.Log("✅ 注册错误测试通过")
}

// TestScheduler_EveryAfterStart 测试启动后注册任务
func TestScheduler_EveryAfterStart(t *testing.T) {
	mock := clock.NewMock()
	s := New(mock, Options{})
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	runs := make(chan time.Time, 16)
	require.NoError(t, s.Every("late", time.Second, func(now time.Time) { runs <- now }))

	// 等待驱动处理唤醒后再推进时钟
	time.Sleep(20 * time.Millisecond)
	mock.Add(time.Second)
	waitRun(t, runs)

	t.Log("✅ 启动后注册测试通过")
}
