package registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/xbedrock/go-xgate/pkg/types"
)

// SampleResult 一次延迟采样的结果
type SampleResult struct {
	Sampled int `json:"sampled"`
	Failed  int `json:"failed"`
}

// SamplePings 刷新所有活跃会话的延迟
//
// 单个会话读取失败或 panic 时保留旧值，不影响其他会话。
// 读取在会话锁之外进行。
func (r *Registry) SamplePings(now time.Time) SampleResult {
	var res SampleResult
	reader := r.deps.Ping
	if reader == nil || r.closed.Load() {
		return res
	}

	r.sessions.Range(func(id types.Identity, e *entry) bool {
		e.mu.Lock()
		live := e.live
		e.mu.Unlock()
		if !live {
			return true
		}

		ms, err := readPing(reader.Ping, id)
		if err != nil {
			res.Failed++
			r.metrics.pingFailed()
			if !errors.Is(err, types.ErrPingUnavailable) {
				r.pingWarn.Do(func() {
					logger.Warn("延迟采样失败", "identity", id.ShortString(), "error", err)
				})
			}
			return true
		}
		if ms < 0 {
			ms = 0
		}

		e.mu.Lock()
		if e.live {
			e.s.Ping = ms
			res.Sampled++
		}
		e.mu.Unlock()
		r.metrics.pingSampled(ms)
		return true
	})

	if res.Failed > 0 {
		logger.Debug("延迟采样完成", "sampled", res.Sampled, "failed", res.Failed, "at", now)
	}
	return res
}

// readPing 调用延迟回调并将 panic 转为错误
func readPing(fn func(types.Identity) (int, error), id types.Identity) (ms int, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("ping reader panic: %v", p)
		}
	}()
	return fn(id)
}
