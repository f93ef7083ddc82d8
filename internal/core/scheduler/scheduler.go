// Package scheduler 实现周期任务驱动
//
// 准入门排空、延迟采样、违规窗口重置和预留释放扫描都注册到同一个 Scheduler：
//   - 单个驱动 goroutine，按下次运行时间维护最小堆
//   - 只挂一个 clock.Timer，指向最早的截止时间
//   - 任务在驱动 goroutine 上顺序执行，panic 会被恢复并记录
//   - Stop 开始后不再运行任何任务
package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/xbedrock/go-xgate/pkg/lib/log"
)

var logger = log.Logger("core/scheduler")

// idleDelay 没有任务时的空转间隔
const idleDelay = time.Hour

// TaskFunc 周期任务函数
//
// now 为本轮调度时刻。任务不得执行阻塞 I/O。
type TaskFunc func(now time.Time)

// TaskInfo 任务状态快照
type TaskInfo struct {
	Name         string        `json:"name"`
	Interval     time.Duration `json:"interval"`
	Runs         uint64        `json:"runs"`
	Panics       uint64        `json:"panics"`
	LastRun      time.Time     `json:"last_run"`
	LastDuration time.Duration `json:"last_duration"`
	NextRun      time.Time     `json:"next_run"`
}

// task 已注册任务
type task struct {
	name     string
	interval time.Duration
	fn       TaskFunc

	next      time.Time
	heapIndex int

	runs         atomic.Uint64
	panics       atomic.Uint64
	lastRun      atomic.Int64
	lastDuration atomic.Int64
}

// taskQueue 任务队列（按 next 的最小堆）
type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if !q[i].next.Equal(q[j].next) {
		return q[i].next.Before(q[j].next)
	}
	return q[i].name < q[j].name
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].heapIndex = i
	q[j].heapIndex = j
}

func (q *taskQueue) Push(x interface{}) {
	t := x.(*task)
	t.heapIndex = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.heapIndex = -1
	*q = old[:n-1]
	return t
}

// Options 调度器选项
type Options struct {
	// SlowTaskThreshold 单次执行超过此时长时告警，0 表示不告警
	SlowTaskThreshold time.Duration

	// Metrics 指标，可为 nil
	Metrics *Metrics
}

// Scheduler 周期任务驱动
type Scheduler struct {
	clk  clock.Clock
	opts Options

	mu    sync.Mutex
	queue taskQueue
	tasks map[string]*task

	wake    chan struct{}
	started atomic.Bool
	closed  atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New 创建调度器
func New(clk clock.Clock, opts Options) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{
		clk:   clk,
		opts:  opts,
		tasks: make(map[string]*task),
		wake:  make(chan struct{}, 1),
	}
}

// Every 注册周期任务
//
// 启动前后都可以注册；首次运行在注册后一个 interval。
func (s *Scheduler) Every(name string, interval time.Duration, fn TaskFunc) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, name)
	}
	if s.closed.Load() {
		return ErrClosed
	}

	s.mu.Lock()
	if _, ok := s.tasks[name]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateTask, name)
	}
	t := &task{
		name:     name,
		interval: interval,
		fn:       fn,
		next:     s.clk.Now().Add(interval),
	}
	s.tasks[name] = t
	heap.Push(&s.queue, t)
	s.mu.Unlock()

	s.notify()
	logger.Debug("注册周期任务", "task", name, "interval", interval)
	return nil
}

// Start 启动驱动 goroutine
func (s *Scheduler) Start(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	// 定时器在启动时同步创建，避免虚拟时钟推进早于驱动 goroutine 就绪
	timer := s.clk.Timer(s.nextDelay())

	s.wg.Add(1)
	go s.loop(ctx, timer)

	logger.Info("调度器已启动", "tasks", s.Len())
	return nil
}

// Stop 停止调度器
//
// 幂等；返回后不再有任务运行，所有任务被清除。
func (s *Scheduler) Stop() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	s.mu.Lock()
	s.queue = nil
	s.tasks = make(map[string]*task)
	s.mu.Unlock()

	logger.Info("调度器已停止")
	return nil
}

// Len 返回任务数
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Tasks 返回任务状态快照
func (s *Scheduler) Tasks() []TaskInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TaskInfo, 0, len(s.tasks))
	for _, t := range s.queue {
		info := TaskInfo{
			Name:         t.name,
			Interval:     t.interval,
			Runs:         t.runs.Load(),
			Panics:       t.panics.Load(),
			LastDuration: time.Duration(t.lastDuration.Load()),
			NextRun:      t.next,
		}
		if ns := t.lastRun.Load(); ns != 0 {
			info.LastRun = time.Unix(0, ns)
		}
		out = append(out, info)
	}
	return out
}

// ============================================================================
//                              驱动循环
// ============================================================================

func (s *Scheduler) loop(ctx context.Context, timer *clock.Timer) {
	defer s.wg.Done()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
			timer.Reset(s.nextDelay())
		case <-timer.C:
			due := s.collectDue(s.clk.Now())
			// 先重新挂定时器再运行任务
			timer.Reset(s.nextDelay())
			for _, t := range due {
				if s.closed.Load() || ctx.Err() != nil {
					return
				}
				s.run(t)
			}
		}
	}
}

// collectDue 取出到期任务并安排下次运行
func (s *Scheduler) collectDue(now time.Time) []*task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*task
	for s.queue.Len() > 0 && !s.queue[0].next.After(now) {
		t := s.queue[0]
		due = append(due, t)
		// 落后多个周期时只补跑一次
		t.next = t.next.Add(t.interval)
		if !t.next.After(now) {
			t.next = now.Add(t.interval)
		}
		heap.Fix(&s.queue, 0)
	}
	return due
}

// nextDelay 距最早截止时间的间隔
func (s *Scheduler) nextDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.Len() == 0 {
		return idleDelay
	}
	d := s.queue[0].next.Sub(s.clk.Now())
	if d < 0 {
		d = 0
	}
	return d
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// run 执行单个任务，恢复 panic
func (s *Scheduler) run(t *task) {
	start := s.clk.Now()
	defer func() {
		elapsed := s.clk.Since(start)
		t.runs.Add(1)
		t.lastRun.Store(start.UnixNano())
		t.lastDuration.Store(int64(elapsed))

		if r := recover(); r != nil {
			t.panics.Add(1)
			s.opts.Metrics.recordPanic(t.name)
			logger.Error("周期任务 panic", "task", t.name, "panic", r)
		}
		s.opts.Metrics.recordRun(t.name, elapsed)

		if th := s.opts.SlowTaskThreshold; th > 0 && elapsed > th {
			logger.Warn("周期任务执行过慢", "task", t.name, "elapsed", elapsed, "threshold", th)
		}
	}()

	t.fn(start)
}
