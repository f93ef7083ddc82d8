package types

// ============================================================================
//                              Packet - 入站数据包
// ============================================================================

// Face 方块面
type Face string

// FaceUp 顶面
const FaceUp Face = "UP"

// Packet 传输层上报的入站数据包摘要
type Packet struct {
	// Kind 数据包类型标签（如 "CustomPayload"、"BlockPlace"）
	Kind string

	// Size 原始字节数
	Size int

	// PayloadLen 负载长度（字符串/数组等可变字段的长度）
	PayloadLen int

	// Face 放置方块时点击的面，其他类型为空
	Face Face
}

// ============================================================================
//                              Verdict - 检查结论
// ============================================================================

// Verdict 数据包检查结论
type Verdict struct {
	// Action 处置动作
	Action Action `json:"action"`

	// Violations 本次检查命中的违规类别
	Violations []Category `json:"violations,omitempty"`

	// Reason 踢出原因（Action == ActionKick 时为触发类别）
	Reason Category `json:"reason,omitempty"`
}

// Pass 放行结论
func Pass() Verdict { return Verdict{Action: ActionPass} }

// IsPass 是否放行
func (v Verdict) IsPass() bool { return v.Action == ActionPass }

// IsDrop 是否丢弃
func (v Verdict) IsDrop() bool { return v.Action == ActionDrop }

// IsKick 是否踢出
func (v Verdict) IsKick() bool { return v.Action == ActionKick }

// String 返回用于日志的描述
func (v Verdict) String() string {
	if v.Action == ActionKick {
		return "kick(" + string(v.Reason) + ")"
	}
	return v.Action.String()
}
