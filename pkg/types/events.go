package types

import "time"

// ============================================================================
//                              Event - 事件接口
// ============================================================================

// Event 基础事件接口
type Event interface {
	// Type 返回事件类型
	Type() string

	// Timestamp 返回事件时间戳
	Timestamp() time.Time
}

// BaseEvent 基础事件实现
type BaseEvent struct {
	EventType string
	Time      time.Time
}

// Type 返回事件类型
func (e BaseEvent) Type() string { return e.EventType }

// Timestamp 返回事件时间戳
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// NewBaseEvent 创建基础事件
func NewBaseEvent(eventType string, at time.Time) BaseEvent {
	return BaseEvent{EventType: eventType, Time: at}
}

// 事件类型常量
const (
	EventTypeAdmitted      = "gate.admitted"
	EventTypeQueuePosition = "gate.queue_position"
	EventTypeQueueExpired  = "gate.queue_expired"
	EventTypeDecision      = "gate.decision"
	EventTypeSessionOpened = "registry.session_opened"
	EventTypeSessionClosed = "registry.session_closed"
	EventTypeDisconnect    = "registry.disconnect"
	EventTypeViolation     = "guard.violation"
)

// ============================================================================
//                              准入门事件
// ============================================================================

// EvtDecision 每次 Admit 的决策
type EvtDecision struct {
	BaseEvent
	Request  ConnectionRequest
	Decision Decision
}

// EvtAdmitted 排队请求在排空周期中被放行
type EvtAdmitted struct {
	BaseEvent
	Request ConnectionRequest
	Ticket  string
	Waited  time.Duration
}

// EvtQueuePosition 排队位置变化（信息性通知）
type EvtQueuePosition struct {
	BaseEvent
	Identity Identity
	Ticket   string
	Position int
	Size     int
}

// EvtQueueExpired 排队请求超时被静默移除
type EvtQueueExpired struct {
	BaseEvent
	Request ConnectionRequest
	Ticket  string
}

// ============================================================================
//                              会话事件
// ============================================================================

// EvtSessionOpened 会话注册成功
type EvtSessionOpened struct {
	BaseEvent
	Session Session
}

// EvtSessionClosed 会话已移除
type EvtSessionClosed struct {
	BaseEvent
	Session Session
}

// EvtDisconnect 断开指令
//
// 传输层协作方订阅此事件并以 Reason 作为面向用户的提示断开连接。
type EvtDisconnect struct {
	BaseEvent
	Identity Identity
	Reason   string
}

// ============================================================================
//                              守卫事件
// ============================================================================

// EvtViolation 一次违规记录
type EvtViolation struct {
	BaseEvent
	Identity Identity
	Category Category
	Count    int
	Kind     string
	Size     int
	Action   Action
}
