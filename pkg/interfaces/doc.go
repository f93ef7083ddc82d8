// Package interfaces 定义 xgate 的公共接口
//
// 分为两类：
//
//   - 协作方接口：由外部传输层/持久化层实现，核心只通过接口调用
//     （PingReader、Disconnector、SessionStore）
//   - 组件接口：核心组件之间的依赖（EventBus、Terminator）
//
// 核心不拥有任何线协议，所有 I/O 都经由这些接口发生。
package interfaces
