package admin

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// routes 构建路由
//
//   - GET    /healthz
//   - GET    /api/v1/status
//   - GET    /api/v1/queue
//   - GET    /api/v1/sessions[?recent=true]
//   - GET    /api/v1/sessions/{identity}
//   - DELETE /api/v1/sessions/{identity}[?reason=...]
//   - GET    /api/v1/sessions/{identity}/violations
//   - GET    /api/v1/scheduler
//   - POST   /api/v1/reload
//   - GET    /metrics
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.limit)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/queue", s.handleQueue)
		r.Get("/scheduler", s.handleScheduler)
		r.Post("/reload", s.handleReload)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleSessions)
			r.Get("/{identity}", s.handleSession)
			r.Delete("/{identity}", s.handleKick)
			r.Get("/{identity}/violations", s.handleViolations)
		})
	})

	if s.deps.Gatherer != nil && s.cfg.EnableMetrics {
		r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// limit 全局请求速率限制
func (s *Server) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			s.fail(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// requestLogger 请求日志
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		args := []any{
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		}
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" || r.Method == http.MethodGet {
			logger.Debug("管理请求", args...)
			return
		}
		logger.Info("管理请求", args...)
	})
}
