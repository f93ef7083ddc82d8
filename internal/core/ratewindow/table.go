package ratewindow

import (
	"sync"
	"sync/atomic"
)

// Table 按键存储
//
// 不同键的条目互不影响，不存在跨键的全局锁。
// V 通常是指针类型（*Window、*Spacing、*Counter 或组件自定义记录）。
type Table[K comparable, V any] struct {
	m     sync.Map
	n     atomic.Int64
	newFn func() V
}

// NewTable 创建按键存储，newFn 用于惰性创建条目
func NewTable[K comparable, V any](newFn func() V) *Table[K, V] {
	return &Table[K, V]{newFn: newFn}
}

// LoadOrCreate 获取或创建条目
func (t *Table[K, V]) LoadOrCreate(key K) V {
	if v, ok := t.m.Load(key); ok {
		return v.(V)
	}
	actual, loaded := t.m.LoadOrStore(key, t.newFn())
	if !loaded {
		t.n.Add(1)
	}
	return actual.(V)
}

// Load 获取条目
func (t *Table[K, V]) Load(key K) (V, bool) {
	v, ok := t.m.Load(key)
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// Store 写入条目
func (t *Table[K, V]) Store(key K, v V) {
	if _, loaded := t.m.Swap(key, v); !loaded {
		t.n.Add(1)
	}
}

// Delete 删除条目
func (t *Table[K, V]) Delete(key K) (V, bool) {
	v, loaded := t.m.LoadAndDelete(key)
	if !loaded {
		var zero V
		return zero, false
	}
	t.n.Add(-1)
	return v.(V), true
}

// CompareAndDelete 仅当键仍对应 old 时删除
func (t *Table[K, V]) CompareAndDelete(key K, old V) bool {
	if t.m.CompareAndDelete(key, old) {
		t.n.Add(-1)
		return true
	}
	return false
}

// Range 遍历所有条目，fn 返回 false 时停止
func (t *Table[K, V]) Range(fn func(key K, v V) bool) {
	t.m.Range(func(k, v any) bool {
		return fn(k.(K), v.(V))
	})
}

// Len 返回条目数
func (t *Table[K, V]) Len() int {
	return int(t.n.Load())
}

// Sweep 删除满足 pred 的条目，返回删除数量
//
// 只有条目在判定后未被替换时才会删除。
func (t *Table[K, V]) Sweep(pred func(key K, v V) bool) int {
	removed := 0
	t.m.Range(func(k, v any) bool {
		if pred(k.(K), v.(V)) && t.m.CompareAndDelete(k, v) {
			t.n.Add(-1)
			removed++
		}
		return true
	})
	return removed
}

// Clear 清空所有条目
func (t *Table[K, V]) Clear() {
	t.m.Range(func(k, v any) bool {
		if t.m.CompareAndDelete(k, v) {
			t.n.Add(-1)
		}
		return true
	})
}
