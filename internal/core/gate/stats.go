package gate

import (
	"sync/atomic"

	"github.com/xbedrock/go-xgate/pkg/types"
)

// counters 决策累计计数
type counters struct {
	accepted  atomic.Uint64
	queued    atomic.Uint64
	expired   atomic.Uint64
	fromQueue atomic.Uint64
	rejected  [types.ReasonInvalidIdentity + 1]atomic.Uint64
}

func (c *counters) record(d types.Decision) {
	switch d.Outcome {
	case types.OutcomeAccepted:
		c.accepted.Add(1)
	case types.OutcomeQueued:
		c.queued.Add(1)
	case types.OutcomeRejected:
		if int(d.Reason) < len(c.rejected) {
			c.rejected[d.Reason].Add(1)
		}
	}
}

// Stats 准入门统计
type Stats struct {
	QueueLength        int               `json:"queue_length"`
	MaxQueueSize       int               `json:"max_queue_size"`
	CurrentConnections int               `json:"current_connections"`
	TrackedAddresses   int               `json:"tracked_addresses"`
	EffectiveCapacity  int               `json:"effective_capacity"`
	PeakHour           bool              `json:"peak_hour"`
	Accepted           uint64            `json:"accepted"`
	Queued             uint64            `json:"queued"`
	AdmittedFromQueue  uint64            `json:"admitted_from_queue"`
	Expired            uint64            `json:"expired"`
	Rejected           map[string]uint64 `json:"rejected"`
}

// Stats 返回统计快照
func (g *Gate) Stats() Stats {
	now := g.clk.Now()
	cfg := g.cfg.Load()

	s := Stats{
		QueueLength:        g.QueueLen(),
		MaxQueueSize:       cfg.MaxQueueSize,
		CurrentConnections: g.CurrentConnections(),
		TrackedAddresses:   g.attempts.Len(),
		EffectiveCapacity:  cfg.capacity(now),
		PeakHour:           cfg.isPeak(now),
		Accepted:           g.stats.accepted.Load(),
		Queued:             g.stats.queued.Load(),
		AdmittedFromQueue:  g.stats.fromQueue.Load(),
		Expired:            g.stats.expired.Load(),
		Rejected:           make(map[string]uint64),
	}
	for i := range g.stats.rejected {
		if n := g.stats.rejected[i].Load(); n > 0 {
			s.Rejected[types.RejectReason(i).String()] = n
		}
	}
	return s
}
