// Package main 提供 xgate 守护进程入口
//
// 守护进程本身不接入任何代理传输层，只运行准入门、注册表、守卫、
// 调度器和管理 API，并把事件总线上的决策、踢出和违规写入日志。
// SIGHUP 触发从配置文件重新加载可热更新的限制。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/xbedrock/go-xgate"
	"github.com/xbedrock/go-xgate/config"
	"github.com/xbedrock/go-xgate/pkg/lib/log"
)

var logger = log.Logger("xgate/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
// 配置优先级（从高到低）：命令行参数 > 环境变量（XGATE_*）> 配置文件 > 默认值
//
// ═══════════════════════════════════════════════════════════════════════════
var (
	configFile  = flag.String("config", "", "配置文件路径")
	dataDir     = flag.String("data-dir", "", "数据目录（默认: ./data）")
	adminAddr   = flag.String("admin", "", "管理 API 监听地址（设置即启用）")
	logFile     = flag.String("log", "", "日志文件路径")
	logLevel    = flag.String("log-level", "", "日志级别 (debug/info/warn/error)")
	showVersion = flag.Bool("version", false, "显示版本信息")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *showVersion {
		fmt.Println(xgate.VersionInfo())
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	closer, err := setupLogging(cfg.Log)
	if err != nil {
		return fmt.Errorf("日志设置失败: %w", err)
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("📦 %s\n", xgate.VersionInfo())
	logger.Info("启动 xgate", "version", xgate.Version, "commit", xgate.GitCommit, "buildDate", xgate.BuildDate)

	node, err := xgate.Start(ctx, xgate.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() { _ = node.Close() }()

	if addr := node.AdminAddr(); addr != "" {
		fmt.Printf("管理 API: http://%s\n", addr)
	}
	fmt.Println("xgate 已启动，按 Ctrl+C 退出")

	g, gctx := errgroup.WithContext(ctx)
	if err := watchEvents(gctx, g, node); err != nil {
		return err
	}
	g.Go(func() error {
		return watchReload(gctx, node)
	})
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err = g.Wait()
	fmt.Println("\n正在关闭 xgate...")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// loadConfig 合并配置文件、环境变量与命令行参数
func loadConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	path := *configFile
	if path == "" {
		path = os.Getenv(envPrefix + envConfigFile)
	}
	if path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return nil, fmt.Errorf("加载配置文件失败: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg, os.Getenv); err != nil {
		return nil, err
	}
	applyFlagOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlagOverrides 应用显式设置的命令行参数
func applyFlagOverrides(cfg *config.Config) {
	if isFlagSet("data-dir") && *dataDir != "" {
		cfg.Storage = cfg.Storage.WithDataDir(*dataDir).WithEnable(true)
	}
	if isFlagSet("admin") && *adminAddr != "" {
		cfg.Admin = cfg.Admin.WithListen(*adminAddr)
	}
	if isFlagSet("log") {
		cfg.Log.File = *logFile
	}
	if isFlagSet("log-level") && *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
}

// isFlagSet 检查命令行参数是否被显式设置
func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// setupLogging 设置日志输出，返回需要在退出时关闭的文件
func setupLogging(c config.LogConfig) (io.Closer, error) {
	lvl, err := log.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	if c.Format == string(log.FormatJSON) {
		log.SetFormat(log.FormatJSON)
	}

	if c.File == "" {
		log.SetLevel(lvl)
		return nil, nil
	}
	f, err := os.OpenFile(c.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // G304: 用户指定的日志路径
	if err != nil {
		return nil, err
	}
	log.SetOutputWithLevel(f, lvl)
	return f, nil
}

// watchReload 收到 SIGHUP 时重新加载配置文件
func watchReload(ctx context.Context, node *xgate.Node) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			cfg, err := loadConfig()
			if err != nil {
				logger.Warn("重新加载配置失败", "error", err)
				continue
			}
			pending, err := node.Reload(cfg)
			if err != nil {
				logger.Warn("应用配置失败", "error", err)
				continue
			}
			logger.Info("配置已重新加载", "pendingRestart", pending)
		}
	}
}
