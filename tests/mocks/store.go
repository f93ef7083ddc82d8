package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/xbedrock/go-xgate/pkg/interfaces"
	"github.com/xbedrock/go-xgate/pkg/types"
)

var _ interfaces.SessionStore = (*MockSessionStore)(nil)

// MockSessionStore 内存会话存储
type MockSessionStore struct {
	mu      sync.Mutex
	records map[types.Identity]types.SessionRecord

	// SaveErr 非 nil 时 Save 返回该错误
	SaveErr error
	// LoadErr 非 nil 时 Load 返回该错误
	LoadErr error
	// SaveBlock 非 nil 时 Save 在写入前等待其关闭
	SaveBlock chan struct{}

	// 调用记录
	SaveCalls int
	LoadCalls int
}

// NewMockSessionStore 创建 MockSessionStore
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{records: make(map[types.Identity]types.SessionRecord)}
}

// Save 实现 SessionStore
func (m *MockSessionStore) Save(_ context.Context, rec types.SessionRecord) error {
	if m.SaveBlock != nil {
		<-m.SaveBlock
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.records[rec.Identity] = rec
	return nil
}

// Load 实现 SessionStore
func (m *MockSessionStore) Load(_ context.Context, identity types.Identity) (types.SessionRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LoadCalls++
	if m.LoadErr != nil {
		return types.SessionRecord{}, false, m.LoadErr
	}
	rec, ok := m.records[identity]
	return rec, ok, nil
}

// Delete 实现 SessionStore
func (m *MockSessionStore) Delete(_ context.Context, identity types.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, identity)
	return nil
}

// List 实现 SessionStore
func (m *MockSessionStore) List(_ context.Context, limit int) ([]types.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.SessionRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Record 返回已保存的记录
func (m *MockSessionStore) Record(identity types.Identity) (types.SessionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[identity]
	return rec, ok
}
