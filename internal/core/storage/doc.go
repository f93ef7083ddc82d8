// Package storage 提供会话持久化协作方的 BadgerDB 实现
//
// 会话结束时注册表把会话交给 SessionStore，记录按身份合并：
// 最后登录/登出时间、最后位置、设备信息以及跨会话累计的在线时长。
//
// 键布局：
//
//	s/<identity>  ->  JSON(types.SessionRecord)
//
// storage.enable=false 时使用 NopStore，记录被直接丢弃。
package storage
