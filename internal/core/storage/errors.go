package storage

import "errors"

var (
	// ErrClosed 存储已关闭
	ErrClosed = errors.New("storage: closed")

	// ErrEmptyIdentity 身份为空
	ErrEmptyIdentity = errors.New("storage: empty identity")

	// ErrCorrupted 记录无法解码
	ErrCorrupted = errors.New("storage: corrupted record")
)
