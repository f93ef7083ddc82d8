package scheduler

import "errors"

var (
	// ErrClosed 调度器已关闭
	ErrClosed = errors.New("scheduler: closed")

	// ErrAlreadyStarted 调度器已启动
	ErrAlreadyStarted = errors.New("scheduler: already started")

	// ErrInvalidInterval 任务间隔无效
	ErrInvalidInterval = errors.New("scheduler: interval must be positive")

	// ErrDuplicateTask 任务名重复
	ErrDuplicateTask = errors.New("scheduler: duplicate task")
)
