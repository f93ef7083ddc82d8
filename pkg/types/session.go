package types

import "time"

// ============================================================================
//                              设备信息
// ============================================================================

// 设备信息缺省值
const (
	// UnknownDeviceValue 无法获取时的占位值
	UnknownDeviceValue = "unknown"

	// DefaultLanguage 默认语言
	DefaultLanguage = "en_US"
)

// DeviceInfo 握手成功时由传输层提供的设备元数据
type DeviceInfo struct {
	DeviceID      string `json:"device_id"`
	Model         string `json:"model"`
	OS            string `json:"os"`
	ClientVersion string `json:"client_version"`
	Language      string `json:"language"`
	Premium       bool   `json:"premium"`
}

// UnknownDeviceInfo 返回全部字段为缺省值的设备信息
func UnknownDeviceInfo() DeviceInfo {
	return DeviceInfo{
		DeviceID:      UnknownDeviceValue,
		Model:         UnknownDeviceValue,
		OS:            UnknownDeviceValue,
		ClientVersion: UnknownDeviceValue,
		Language:      DefaultLanguage,
	}
}

// Normalize 用缺省值填充空字段
func (d DeviceInfo) Normalize() DeviceInfo {
	if d.DeviceID == "" {
		d.DeviceID = UnknownDeviceValue
	}
	if d.Model == "" {
		d.Model = UnknownDeviceValue
	}
	if d.OS == "" {
		d.OS = UnknownDeviceValue
	}
	if d.ClientVersion == "" {
		d.ClientVersion = UnknownDeviceValue
	}
	if d.Language == "" {
		d.Language = DefaultLanguage
	}
	return d
}

// DeviceInfoSource 传输层在握手时提供的设备信息能力接口
type DeviceInfoSource interface {
	// DeviceInfo 返回连接的设备信息
	DeviceInfo() (DeviceInfo, error)
}

// DeviceInfoFunc 函数适配器
type DeviceInfoFunc func() (DeviceInfo, error)

// DeviceInfo 实现 DeviceInfoSource
func (f DeviceInfoFunc) DeviceInfo() (DeviceInfo, error) { return f() }

// ============================================================================
//                              位置
// ============================================================================

// Position 世界坐标
type Position struct {
	World string  `json:"world"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

// Orientation 朝向
type Orientation struct {
	Yaw   float32 `json:"yaw"`
	Pitch float32 `json:"pitch"`
}

// ============================================================================
//                              Session - 会话
// ============================================================================

// PingUnknown 延迟未知
const PingUnknown = -1

// Session 活跃会话的快照
//
// 注册表只对外返回副本，调用方修改不会影响注册表内部状态。
type Session struct {
	Identity           Identity    `json:"identity"`
	DisplayName        string      `json:"display_name"`
	Address            string      `json:"address"`
	Device             DeviceInfo  `json:"device"`
	Connected          bool        `json:"connected"`
	ConnectionTime     time.Time   `json:"connection_time"`
	Ping               int         `json:"ping"`
	Position           Position    `json:"position"`
	Orientation        Orientation `json:"orientation"`
	LastPositionUpdate time.Time   `json:"last_position_update"`
}

// Duration 返回截至 now 的连接时长
func (s Session) Duration(now time.Time) time.Duration {
	if s.ConnectionTime.IsZero() || now.Before(s.ConnectionTime) {
		return 0
	}
	return now.Sub(s.ConnectionTime)
}

// SessionRecord 持久化的会话记录
//
// 会话结束时交给持久化协作方，跨会话累计在线时长。
type SessionRecord struct {
	Identity      Identity      `json:"identity"`
	DisplayName   string        `json:"display_name"`
	LastAddress   string        `json:"last_address"`
	Device        DeviceInfo    `json:"device"`
	LastLogin     time.Time     `json:"last_login"`
	LastLogout    time.Time     `json:"last_logout"`
	LastPosition  Position      `json:"last_position"`
	TotalPlayTime time.Duration `json:"total_play_time"`
	Sessions      int           `json:"sessions"`
}

// Merge 将一次结束的会话合并进已有记录
func (r SessionRecord) Merge(s Session, end time.Time) SessionRecord {
	r.Identity = s.Identity
	r.DisplayName = s.DisplayName
	r.LastAddress = s.Address
	r.Device = s.Device
	r.LastLogin = s.ConnectionTime
	r.LastLogout = end
	r.LastPosition = s.Position
	r.TotalPlayTime += s.Duration(end)
	r.Sessions++
	return r
}
