package types

import "errors"

// 公共错误定义
var (
	// ErrEmptyIdentity 身份为空
	ErrEmptyIdentity = errors.New("empty identity")

	// ErrPingUnavailable 传输层暂时无法提供延迟
	ErrPingUnavailable = errors.New("ping unavailable")

	// ErrDeviceInfoUnavailable 传输层无法提供设备信息
	ErrDeviceInfoUnavailable = errors.New("device info unavailable")
)
