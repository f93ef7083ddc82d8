// Package types 定义 xgate 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他 xgate 内部包。
// 所有类型都是纯值类型，用于在准入门、会话注册表、数据包守卫
// 以及外部协作方（传输层、持久化层）之间传递数据。
//
// # 文件组织
//
//   - ids.go        - Identity 身份标识
//   - enums.go      - Outcome, RejectReason, Action, Category
//   - connection.go - ConnectionRequest, Decision
//   - session.go    - DeviceInfo, Session, SessionRecord, Position
//   - packet.go     - Packet, Verdict
//   - events.go     - 事件总线上流转的事件类型
//   - errors.go     - 公共错误定义
package types
