// Package ratewindow 提供按键计数的时间窗口原语
//
// 准入门与数据包守卫共用这些原语：
//
//   - Window:  固定窗口计数器，窗口到期后恰好重置一次
//   - Spacing: 最小到达间隔跟踪器，间隔过短的到达累加计数
//   - Counter: 无锁在途计数器（CAS），用于单 IP 尝试上限
//   - Table:   基于 sync.Map 的按键存储，每个条目自带锁或原子量
//
// 所有原语都不读取系统时钟，调用方传入 now，便于用虚拟时钟测试。
package ratewindow
