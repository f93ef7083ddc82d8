// Package admin 提供本地管理 HTTP API
//
// 只读接口暴露准入门、注册表、守卫和调度器的状态；
// 写接口支持踢出会话和热更新配置。所有请求共享一个令牌桶限速。
package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/xbedrock/go-xgate/config"
	"github.com/xbedrock/go-xgate/internal/core/gate"
	"github.com/xbedrock/go-xgate/internal/core/guard"
	"github.com/xbedrock/go-xgate/internal/core/registry"
	"github.com/xbedrock/go-xgate/internal/core/scheduler"
	"github.com/xbedrock/go-xgate/pkg/lib/log"
)

var logger = log.Logger("admin")

// Reloader 配置热更新能力
type Reloader interface {
	Current() *config.Config
	Apply(cfg *config.Config) ([]string, error)
}

// Deps 管理 API 依赖
type Deps struct {
	Gate      *gate.Gate
	Registry  *registry.Registry
	Guard     *guard.Guard
	Scheduler *scheduler.Scheduler
	Reloader  Reloader
	Gatherer  prometheus.Gatherer
	Clock     clock.Clock
}

// Server 管理 API 服务器
type Server struct {
	cfg     config.AdminConfig
	deps    Deps
	limiter *rate.Limiter
	handler http.Handler

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	done     chan struct{}
}

// New 创建管理 API 服务器
func New(cfg config.AdminConfig, deps Deps) (*Server, error) {
	if deps.Gate == nil || deps.Registry == nil || deps.Guard == nil {
		return nil, errors.New("admin: gate, registry and guard are required")
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	s := &Server{
		cfg:     cfg,
		deps:    deps,
		limiter: newLimiter(cfg.RequestsPerSecond, cfg.Burst),
	}
	s.handler = s.routes()
	return s, nil
}

// Handler 返回 HTTP 处理器
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start 监听并在后台提供服务
//
// 监听失败时同步返回错误。
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return errors.New("admin: already started")
	}

	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("admin: listen %s: %w", s.cfg.Listen, err)
	}
	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.done = make(chan struct{})

	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("管理 API 服务异常退出", "error", err)
		}
	}(s.srv, s.done)

	logger.Info("管理 API 已启动", "addr", ln.Addr().String())
	return nil
}

// Addr 返回实际监听地址，未启动时为空
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop 优雅关闭
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.srv, s.listener = nil, nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	err := srv.Shutdown(ctx)
	select {
	case <-done:
	case <-ctx.Done():
	}
	logger.Info("管理 API 已关闭")
	return err
}

func (s *Server) now() time.Time {
	return s.deps.Clock.Now().UTC()
}
