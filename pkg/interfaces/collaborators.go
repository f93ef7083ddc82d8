package interfaces

import (
	"context"

	"github.com/xbedrock/go-xgate/pkg/types"
)

// PingReader 传输层提供的延迟读取回调
//
// 由健康采样器周期调用，实现不得阻塞。
// 暂时不可用时返回 types.ErrPingUnavailable。
type PingReader interface {
	Ping(identity types.Identity) (int, error)
}

// PingReaderFunc 函数适配器
type PingReaderFunc func(identity types.Identity) (int, error)

// Ping 实现 PingReader
func (f PingReaderFunc) Ping(identity types.Identity) (int, error) { return f(identity) }

// Disconnector 传输层提供的断开能力
//
// reason 是面向用户的提示文本。守卫踢出时在数据包路径上同步调用，
// 实现应只投递断开指令，不得等待连接真正关闭。
type Disconnector interface {
	Disconnect(identity types.Identity, reason string) error
}

// DisconnectorFunc 函数适配器
type DisconnectorFunc func(identity types.Identity, reason string) error

// Disconnect 实现 Disconnector
func (f DisconnectorFunc) Disconnect(identity types.Identity, reason string) error {
	return f(identity, reason)
}

// SessionStore 会话持久化协作方
type SessionStore interface {
	// Save 保存会话记录
	Save(ctx context.Context, rec types.SessionRecord) error

	// Load 加载会话记录，不存在时返回 (零值, false, nil)
	Load(ctx context.Context, identity types.Identity) (types.SessionRecord, bool, error)

	// Delete 删除会话记录
	Delete(ctx context.Context, identity types.Identity) error

	// List 列出最多 limit 条记录，limit <= 0 表示不限
	List(ctx context.Context, limit int) ([]types.SessionRecord, error)
}

// Terminator 强制终止会话
//
// 数据包守卫通过它请求注册表断开会话。
type Terminator interface {
	Terminate(identity types.Identity, reason string) bool
}

// TerminatorFunc 函数适配器
type TerminatorFunc func(identity types.Identity, reason string) bool

// Terminate 实现 Terminator
func (f TerminatorFunc) Terminate(identity types.Identity, reason string) bool {
	return f(identity, reason)
}
