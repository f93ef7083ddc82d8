package gate

import "fmt"

// 面向用户的提示文本
const (
	MsgQueueFull       = "Server is full. Please try again later."
	MsgTooManyAttempts = "Too many connection attempts. Please try again later."
	MsgThrottled       = "Reconnecting too quickly. Please wait a moment."
	MsgInvalidAddress  = "Invalid connection address."
	MsgInvalidIdentity = "Invalid player identity."
	MsgUnavailable     = "Server is not accepting connections right now."
)

// QueueMessage 排队提示
func QueueMessage(position, size int) string {
	return fmt.Sprintf("You have been placed in queue. Position: %d/%d", position, size)
}
