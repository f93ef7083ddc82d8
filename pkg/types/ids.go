package types

import (
	"strings"

	"github.com/google/uuid"
)

// ============================================================================
//                              Identity - 身份标识
// ============================================================================

// Identity 连接方的稳定身份标识
//
// 对核心而言是不透明字符串；桥接客户端通常使用 UUID。
type Identity string

// NewIdentity 生成随机身份（主要用于测试和演示）
func NewIdentity() Identity {
	return Identity(uuid.NewString())
}

// ParseIdentity 解析身份字符串
//
// UUID 形式的输入会被规范化为小写带连字符格式，
// 使 "ABCD..." 与 "abcd..." 落到同一个会话上。
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyIdentity
	}
	if u, err := uuid.Parse(s); err == nil {
		return Identity(u.String()), nil
	}
	return Identity(s), nil
}

// String 返回字符串表示
func (id Identity) String() string {
	return string(id)
}

// ShortString 返回用于日志的短格式
func (id Identity) ShortString() string {
	if len(id) <= 8 {
		return string(id)
	}
	return string(id[:8])
}

// IsEmpty 是否为空
func (id Identity) IsEmpty() bool {
	return id == ""
}
