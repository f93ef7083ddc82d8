package types

import (
	"fmt"
	"time"
)

// ============================================================================
//                              ConnectionRequest - 连接请求
// ============================================================================

// ConnectionRequest 传输层提交的连接请求
//
// 创建后不可变；只在准入门内部存活，直到放行、拒绝或超时。
type ConnectionRequest struct {
	// Identity 稳定身份
	Identity Identity

	// DisplayName 显示名称
	DisplayName string

	// Address 来源地址（IP，可带端口）
	Address string

	// Timestamp 到达时间；零值时由准入门填充当前时间
	Timestamp time.Time
}

// String 返回用于日志的描述
func (r ConnectionRequest) String() string {
	return fmt.Sprintf("%s(%s)@%s", r.DisplayName, r.Identity.ShortString(), r.Address)
}

// ============================================================================
//                              Decision - 准入决策
// ============================================================================

// Decision 准入决策
type Decision struct {
	// Outcome 结果
	Outcome Outcome `json:"outcome"`

	// Reason 拒绝原因，仅 Outcome == OutcomeRejected 时有效
	Reason RejectReason `json:"reason"`

	// Position 队列位置（从 1 开始），仅 Outcome == OutcomeQueued 时有效
	Position int `json:"position,omitempty"`

	// QueueSize 队列容量上限
	QueueSize int `json:"queue_size,omitempty"`

	// Ticket 排队凭证
	Ticket string `json:"ticket,omitempty"`

	// Message 面向用户的提示文本
	Message string `json:"message,omitempty"`
}

// Accepted 是否放行
func (d Decision) Accepted() bool { return d.Outcome == OutcomeAccepted }

// Queued 是否排队
func (d Decision) Queued() bool { return d.Outcome == OutcomeQueued }

// Rejected 是否拒绝
func (d Decision) Rejected() bool { return d.Outcome == OutcomeRejected }

// String 返回用于日志的描述
func (d Decision) String() string {
	switch d.Outcome {
	case OutcomeQueued:
		return fmt.Sprintf("queued(%d/%d)", d.Position, d.QueueSize)
	case OutcomeRejected:
		return "rejected(" + d.Reason.String() + ")"
	default:
		return d.Outcome.String()
	}
}
