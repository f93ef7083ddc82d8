// Package mocks 提供协作方的测试 Mock 实现
//
// # 传输层 Mock
//
//   - MockPingReader: 模拟 interfaces.PingReader，可按身份设置延迟、错误或 panic
//   - MockDisconnector: 模拟 interfaces.Disconnector，记录断开调用
//   - MockDeviceInfoSource: 模拟 types.DeviceInfoSource
//
// # 持久化 Mock
//
//   - MockSessionStore: 内存实现的 interfaces.SessionStore，可注入错误
//
// # 守卫协作 Mock
//
//   - MockTerminator: 模拟 interfaces.Terminator，记录终止调用
//
// 所有 Mock 都支持 XxxFunc 字段覆盖默认行为，并发安全。
package mocks
