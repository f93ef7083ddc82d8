package mocks

import (
	"sync"

	"github.com/xbedrock/go-xgate/pkg/interfaces"
	"github.com/xbedrock/go-xgate/pkg/types"
)

var _ interfaces.Terminator = (*MockTerminator)(nil)

// TerminateCall 一次终止调用
type TerminateCall struct {
	Identity types.Identity
	Reason   string
}

// MockTerminator 模拟会话终止
type MockTerminator struct {
	mu    sync.Mutex
	calls []TerminateCall

	// TerminateFunc 覆盖默认行为，默认返回 true
	TerminateFunc func(identity types.Identity, reason string) bool
}

// NewMockTerminator 创建 MockTerminator
func NewMockTerminator() *MockTerminator {
	return &MockTerminator{}
}

// Terminate 实现 Terminator
func (m *MockTerminator) Terminate(identity types.Identity, reason string) bool {
	m.mu.Lock()
	m.calls = append(m.calls, TerminateCall{Identity: identity, Reason: reason})
	fn := m.TerminateFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(identity, reason)
	}
	return true
}

// Calls 返回调用记录副本
func (m *MockTerminator) Calls() []TerminateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TerminateCall(nil), m.calls...)
}
