package types

// ============================================================================
//                              Outcome - 准入结果
// ============================================================================

// Outcome 准入决策结果
type Outcome int

const (
	// OutcomeAccepted 立即放行
	OutcomeAccepted Outcome = iota
	// OutcomeQueued 进入等待队列
	OutcomeQueued
	// OutcomeRejected 拒绝
	OutcomeRejected
)

// String 返回结果的字符串表示
func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeQueued:
		return "queued"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// ============================================================================
//                              RejectReason - 拒绝原因
// ============================================================================

// RejectReason 拒绝原因
type RejectReason int

const (
	// ReasonNone 未拒绝
	ReasonNone RejectReason = iota
	// ReasonTooManyAttempts 同一地址的在途尝试过多
	ReasonTooManyAttempts
	// ReasonThrottled 同一身份重连过快
	ReasonThrottled
	// ReasonQueueFull 队列已满
	ReasonQueueFull
	// ReasonInvalidAddress 来源地址无法解析
	ReasonInvalidAddress
	// ReasonUnavailable 准入门已关闭
	ReasonUnavailable
	// ReasonInvalidIdentity 身份为空
	ReasonInvalidIdentity
)

// String 返回原因的字符串表示
func (r RejectReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonTooManyAttempts:
		return "too_many_attempts"
	case ReasonThrottled:
		return "throttled"
	case ReasonQueueFull:
		return "queue_full"
	case ReasonInvalidAddress:
		return "invalid_address"
	case ReasonUnavailable:
		return "unavailable"
	case ReasonInvalidIdentity:
		return "invalid_identity"
	default:
		return "unknown"
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (r RejectReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ============================================================================
//                              Action - 数据包处置
// ============================================================================

// Action 数据包检查后的处置动作
type Action int

const (
	// ActionPass 放行
	ActionPass Action = iota
	// ActionDrop 丢弃（不断开会话）
	ActionDrop
	// ActionKick 强制断开会话
	ActionKick
)

// String 返回动作的字符串表示
func (a Action) String() string {
	switch a {
	case ActionPass:
		return "pass"
	case ActionDrop:
		return "drop"
	case ActionKick:
		return "kick"
	default:
		return "unknown"
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// ============================================================================
//                              Category - 违规类别
// ============================================================================

// Category 违规类别
//
// 各类别独立计数，一个类别达到阈值不影响其他类别。
type Category string

const (
	// CategoryOversized 数据包超过大小上限
	CategoryOversized Category = "Oversized"
	// CategoryCrasher 已知崩溃形态的数据包（超长 payload）
	CategoryCrasher Category = "Crasher"
	// CategoryPacketRate 数据包间隔过短
	CategoryPacketRate Category = "PacketRate"
)

// Categories 所有计数类别
var Categories = []Category{CategoryOversized, CategoryCrasher, CategoryPacketRate}

// String 返回类别名
func (c Category) String() string {
	return string(c)
}

// Flag 会话上的限时启发式标记
//
// 标记不会丢弃数据包，只供下游协作方查询。
type Flag string

const (
	// FlagPrinter 疑似快速放置方块（"打印机"）
	FlagPrinter Flag = "printer"
)
