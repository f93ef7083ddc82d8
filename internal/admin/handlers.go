package admin

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xbedrock/go-xgate/internal/core/gate"
	"github.com/xbedrock/go-xgate/internal/core/guard"
	"github.com/xbedrock/go-xgate/internal/core/scheduler"
	"github.com/xbedrock/go-xgate/pkg/types"
)

// DefaultKickReason 未指定原因时的踢出提示
const DefaultKickReason = "You have been disconnected by an administrator."

// maxReloadBody 热更新请求体上限
const maxReloadBody = 1 << 20

// StatusView /api/v1/status 响应
type StatusView struct {
	Gate     gate.Stats  `json:"gate"`
	Guard    guard.Stats `json:"guard"`
	Sessions int         `json:"sessions"`
}

// ViolationsView /api/v1/sessions/{identity}/violations 响应
type ViolationsView struct {
	Identity   types.Identity         `json:"identity"`
	Violations map[types.Category]int `json:"violations"`
	Kicked     bool                   `json:"kicked"`
	Flags      map[types.Flag]bool    `json:"flags"`
}

// KickView 踢出响应
type KickView struct {
	Identity   types.Identity `json:"identity"`
	Reason     string         `json:"reason"`
	Terminated bool           `json:"terminated"`
}

// ReloadView 热更新响应
type ReloadView struct {
	PendingRestart []string `json:"pending_restart"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.ok(w, map[string]int{"sessions": s.deps.Registry.Count()})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.ok(w, StatusView{
		Gate:     s.deps.Gate.Stats(),
		Guard:    s.deps.Guard.Stats(),
		Sessions: s.deps.Registry.Count(),
	})
}

func (s *Server) handleQueue(w http.ResponseWriter, _ *http.Request) {
	s.ok(w, s.deps.Gate.QueueSnapshot())
}

func (s *Server) handleScheduler(w http.ResponseWriter, _ *http.Request) {
	var tasks []scheduler.TaskInfo
	if s.deps.Scheduler != nil {
		tasks = s.deps.Scheduler.Tasks()
	}
	s.ok(w, tasks)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if recent, _ := strconv.ParseBool(r.URL.Query().Get("recent")); recent {
		s.ok(w, s.deps.Registry.Recent())
		return
	}
	s.ok(w, s.deps.Registry.Sessions())
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := types.Identity(chi.URLParam(r, "identity"))
	sess, ok := s.deps.Registry.Session(id)
	if !ok {
		s.fail(w, http.StatusNotFound, "session not found")
		return
	}
	s.ok(w, sess)
}

func (s *Server) handleKick(w http.ResponseWriter, r *http.Request) {
	id := types.Identity(chi.URLParam(r, "identity"))
	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = DefaultKickReason
	}

	if !s.deps.Registry.Terminate(id, reason) {
		s.fail(w, http.StatusNotFound, "session not found")
		return
	}
	logger.Info("管理员踢出会话", "identity", id.ShortString(), "reason", reason)
	s.ok(w, KickView{Identity: id, Reason: reason, Terminated: true})
}

func (s *Server) handleViolations(w http.ResponseWriter, r *http.Request) {
	id := types.Identity(chi.URLParam(r, "identity"))
	s.ok(w, ViolationsView{
		Identity:   id,
		Violations: s.deps.Guard.Violations(id),
		Kicked:     s.deps.Guard.IsKicked(id),
		Flags: map[types.Flag]bool{
			types.FlagPrinter: s.deps.Guard.HasFlag(id, types.FlagPrinter),
		},
	})
}

// handleReload 以当前配置为底合并请求体中的字段后热更新
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.deps.Reloader == nil {
		s.fail(w, http.StatusNotImplemented, "reload not supported")
		return
	}

	cfg := s.deps.Reloader.Current()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxReloadBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		s.fail(w, http.StatusBadRequest, "invalid config: "+err.Error())
		return
	}

	pending, err := s.deps.Reloader.Apply(cfg)
	if err != nil {
		s.fail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if pending == nil {
		pending = []string{}
	}
	s.ok(w, ReloadView{PendingRestart: pending})
}
