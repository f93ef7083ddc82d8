package mocks

import (
	"sync"

	"github.com/xbedrock/go-xgate/pkg/interfaces"
	"github.com/xbedrock/go-xgate/pkg/types"
)

var (
	_ interfaces.PingReader   = (*MockPingReader)(nil)
	_ interfaces.Disconnector = (*MockDisconnector)(nil)
	_ types.DeviceInfoSource  = (*MockDeviceInfoSource)(nil)
)

// ============================================================================
//                              MockPingReader
// ============================================================================

// MockPingReader 模拟延迟读取
type MockPingReader struct {
	mu     sync.Mutex
	pings  map[types.Identity]int
	errs   map[types.Identity]error
	panics map[types.Identity]bool

	// PingFunc 覆盖默认行为
	PingFunc func(identity types.Identity) (int, error)

	// 调用记录
	Calls int
}

// NewMockPingReader 创建 MockPingReader
func NewMockPingReader() *MockPingReader {
	return &MockPingReader{
		pings:  make(map[types.Identity]int),
		errs:   make(map[types.Identity]error),
		panics: make(map[types.Identity]bool),
	}
}

// Set 设置身份的延迟
func (m *MockPingReader) Set(identity types.Identity, ms int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pings[identity] = ms
	delete(m.errs, identity)
	delete(m.panics, identity)
}

// Fail 设置身份读取失败
func (m *MockPingReader) Fail(identity types.Identity, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[identity] = err
}

// Panic 设置身份读取时 panic
func (m *MockPingReader) Panic(identity types.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panics[identity] = true
}

// Ping 实现 PingReader
func (m *MockPingReader) Ping(identity types.Identity) (int, error) {
	m.mu.Lock()
	m.Calls++
	fn := m.PingFunc
	ms, ok := m.pings[identity]
	err := m.errs[identity]
	shouldPanic := m.panics[identity]
	m.mu.Unlock()

	if fn != nil {
		return fn(identity)
	}
	if shouldPanic {
		panic("mock ping reader panic")
	}
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, types.ErrPingUnavailable
	}
	return ms, nil
}

// ============================================================================
//                              MockDisconnector
// ============================================================================

// DisconnectCall 一次断开调用
type DisconnectCall struct {
	Identity types.Identity
	Reason   string
}

// MockDisconnector 模拟断开能力
type MockDisconnector struct {
	mu    sync.Mutex
	calls []DisconnectCall

	// DisconnectFunc 覆盖默认行为
	DisconnectFunc func(identity types.Identity, reason string) error
}

// NewMockDisconnector 创建 MockDisconnector
func NewMockDisconnector() *MockDisconnector {
	return &MockDisconnector{}
}

// Disconnect 实现 Disconnector
func (m *MockDisconnector) Disconnect(identity types.Identity, reason string) error {
	m.mu.Lock()
	m.calls = append(m.calls, DisconnectCall{Identity: identity, Reason: reason})
	fn := m.DisconnectFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(identity, reason)
	}
	return nil
}

// Calls 返回调用记录副本
func (m *MockDisconnector) Calls() []DisconnectCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DisconnectCall(nil), m.calls...)
}

// ============================================================================
//                              MockDeviceInfoSource
// ============================================================================

// MockDeviceInfoSource 模拟设备信息能力接口
type MockDeviceInfoSource struct {
	Info  types.DeviceInfo
	Err   error
	Panic bool
}

// DeviceInfo 实现 DeviceInfoSource
func (m *MockDeviceInfoSource) DeviceInfo() (types.DeviceInfo, error) {
	if m.Panic {
		panic("mock device info panic")
	}
	return m.Info, m.Err
}
