// Package log 提供 xgate 统一日志接口
//
// 基于 Go 标准库 log/slog 封装，每个组件通过 Logger("core/gate") 获取
// 带组件名的懒加载 logger，运行时切换输出目标或级别后立即生效。
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// 日志级别常量（从 slog 导出，方便使用）
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format 日志输出格式
type Format string

const (
	// FormatText 文本格式（默认）
	FormatText Format = "text"

	// FormatJSON JSON 格式
	FormatJSON Format = "json"
)

var (
	mu     sync.Mutex
	output io.Writer = os.Stderr
	level            = new(slog.LevelVar)
	format           = FormatText
)

// Default 返回默认 logger
func Default() *slog.Logger {
	return slog.Default()
}

// SetDefault 设置默认 logger
func SetDefault(l *slog.Logger) {
	slog.SetDefault(l)
}

// SetOutput 设置日志输出目标
//
// 重新创建默认 logger，保持当前级别与格式。
func SetOutput(w io.Writer) {
	mu.Lock()
	output = w
	mu.Unlock()
	rebuild()
}

// SetLevel 设置日志级别
//
// 级别通过 LevelVar 共享，已创建的 handler 立即生效。
func SetLevel(l slog.Level) {
	level.Set(l)
}

// SetFormat 设置日志格式
func SetFormat(f Format) {
	mu.Lock()
	format = f
	mu.Unlock()
	rebuild()
}

// SetOutputWithLevel 同时设置日志输出目标和级别
//
// 示例：
//
//	file, _ := os.OpenFile("xgate.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
//	log.SetOutputWithLevel(file, slog.LevelDebug)
func SetOutputWithLevel(w io.Writer, l slog.Level) {
	level.Set(l)
	SetOutput(w)
}

// ParseLevel 解析日志级别字符串
//
// 支持 debug / info / warn / warning / error（大小写不敏感）。
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// rebuild 根据当前输出、级别与格式重建默认 logger
func rebuild() {
	mu.Lock()
	defer mu.Unlock()

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if format == FormatJSON {
		h = slog.NewJSONHandler(output, opts)
	} else {
		h = slog.NewTextHandler(output, opts)
	}
	slog.SetDefault(slog.New(h))
}

// ============================================================================
//                              LazyLogger
// ============================================================================

// LazyLogger 懒加载 logger
//
// 每次日志调用时都从 slog.Default() 获取最新的 handler。
//
//	var logger = log.Logger("core/gate")
//	logger.Info("准入队列已排空", "admitted", n)
type LazyLogger struct {
	component string
}

// Logger 返回带组件名的 LazyLogger
func Logger(component string) *LazyLogger {
	return &LazyLogger{component: component}
}

func (l *LazyLogger) base() *slog.Logger {
	return slog.Default().With("component", l.component)
}

// Debug 输出 Debug 级别日志
func (l *LazyLogger) Debug(msg string, args ...any) { l.base().Debug(msg, args...) }

// Info 输出 Info 级别日志
func (l *LazyLogger) Info(msg string, args ...any) { l.base().Info(msg, args...) }

// Warn 输出 Warn 级别日志
func (l *LazyLogger) Warn(msg string, args ...any) { l.base().Warn(msg, args...) }

// Error 输出 Error 级别日志
func (l *LazyLogger) Error(msg string, args ...any) { l.base().Error(msg, args...) }

// DebugContext 带 context 的 Debug 日志
func (l *LazyLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.base().DebugContext(ctx, msg, args...)
}

// WarnContext 带 context 的 Warn 日志
func (l *LazyLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.base().WarnContext(ctx, msg, args...)
}

// Enabled 报告给定级别是否会输出
//
// 用于跳过高频路径（如逐包日志）上的参数构造。
func (l *LazyLogger) Enabled(lvl slog.Level) bool {
	return slog.Default().Enabled(context.Background(), lvl)
}

// With 添加额外的属性
func (l *LazyLogger) With(args ...any) *slog.Logger {
	return l.base().With(args...)
}

// ============================================================================
//                              工具函数
// ============================================================================

// TruncateID 安全截取 ID 用于日志显示
func TruncateID(id string, maxLen int) string {
	if len(id) <= maxLen {
		return id
	}
	return id[:maxLen]
}

func init() {
	level.Set(slog.LevelInfo)
	rebuild()
}
