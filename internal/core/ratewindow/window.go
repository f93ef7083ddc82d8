package ratewindow

import (
	"sync"
	"time"
)

// ============================================================================
//                              Window - 固定窗口
// ============================================================================

// Window 固定时间窗口计数器
//
// now - start > size 时重置；窗口内计数单调递增。
type Window struct {
	mu    sync.Mutex
	size  time.Duration
	start time.Time
	count int
}

// NewWindow 创建窗口
func NewWindow(size time.Duration) *Window {
	return &Window{size: size}
}

// Hit 记录一次事件
//
// 返回记录后的计数，以及本次是否开启了新窗口。
func (w *Window) Hit(now time.Time) (count int, reset bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.expiredLocked(now) {
		w.start = now
		w.count = 0
		reset = true
	}
	w.count++
	return w.count, reset
}

// Count 返回当前窗口内的计数，窗口已过期时返回 0
func (w *Window) Count(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.expiredLocked(now) {
		return 0
	}
	return w.count
}

// Expired 窗口是否已过期
func (w *Window) Expired(now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.expiredLocked(now)
}

// Reset 立即重置
func (w *Window) Reset() {
	w.mu.Lock()
	w.start = time.Time{}
	w.count = 0
	w.mu.Unlock()
}

// SetSize 更新窗口大小，对当前窗口立即生效
func (w *Window) SetSize(d time.Duration) {
	w.mu.Lock()
	w.size = d
	w.mu.Unlock()
}

func (w *Window) expiredLocked(now time.Time) bool {
	return w.start.IsZero() || now.Sub(w.start) > w.size
}

// ============================================================================
//                              Spacing - 最小间隔
// ============================================================================

// Spacing 最小到达间隔跟踪器
//
// 与上一次到达间隔小于 spacing 的到达使计数加一；
// 间隔不小于 spacing 时计数归零。每次到达都会刷新 last。
type Spacing struct {
	mu      sync.Mutex
	spacing time.Duration
	last    time.Time
	start   time.Time
	early   int
}

// NewSpacing 创建间隔跟踪器
func NewSpacing(spacing time.Duration) *Spacing {
	return &Spacing{spacing: spacing}
}

// Observe 记录一次到达，返回连续过早到达的次数
func (s *Spacing) Observe(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.last.IsZero() && now.Sub(s.last) < s.spacing {
		if s.early == 0 {
			s.start = now
		}
		s.early++
	} else {
		s.early = 0
		s.start = time.Time{}
	}
	s.last = now
	return s.early
}

// Count 返回当前连续过早到达次数
func (s *Spacing) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.early
}

// Last 返回上一次到达时间
func (s *Spacing) Last() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// WindowStart 返回本轮过早到达的起点，未处于过早状态时为零值
func (s *Spacing) WindowStart() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.start
}

// SetSpacing 更新最小间隔
func (s *Spacing) SetSpacing(d time.Duration) {
	s.mu.Lock()
	s.spacing = d
	s.mu.Unlock()
}
