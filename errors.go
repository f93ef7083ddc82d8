package xgate

import (
	"errors"

	"github.com/xbedrock/go-xgate/internal/core/registry"
)

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 节点生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotStarted 节点未启动
	ErrNotStarted = errors.New("node not started")

	// ErrAlreadyStarted 节点已启动
	ErrAlreadyStarted = errors.New("node already started")

	// ErrNodeClosed 节点已关闭
	ErrNodeClosed = errors.New("node closed")

	// ErrNilConfig 配置为空
	ErrNilConfig = errors.New("nil config")

	// ────────────────────────────────────────────────────────────────────────
	// 会话相关错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrDuplicateSession 身份已有活跃会话
	ErrDuplicateSession = registry.ErrDuplicateSession

	// ErrSessionNotFound 会话不存在
	ErrSessionNotFound = registry.ErrSessionNotFound
)
