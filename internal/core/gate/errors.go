package gate

import "errors"

var (
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("gate: invalid config")

	// ErrClosed 准入门已关闭
	ErrClosed = errors.New("gate: closed")
)
