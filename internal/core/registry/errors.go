package registry

import "errors"

var (
	// ErrDuplicateSession 身份已有活跃会话
	ErrDuplicateSession = errors.New("registry: duplicate session")

	// ErrSessionNotFound 会话不存在
	ErrSessionNotFound = errors.New("registry: session not found")

	// ErrEmptyIdentity 身份为空
	ErrEmptyIdentity = errors.New("registry: empty identity")

	// ErrClosed 注册表已关闭
	ErrClosed = errors.New("registry: closed")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("registry: invalid config")
)
