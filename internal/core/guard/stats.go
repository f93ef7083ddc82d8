package guard

import (
	"sync/atomic"

	"github.com/xbedrock/go-xgate/pkg/types"
)

// counters 检查累计计数
type counters struct {
	inspected  atomic.Uint64
	passed     atomic.Uint64
	dropped    atomic.Uint64
	kickVerd   atomic.Uint64
	kicks      atomic.Uint64
	oversized  atomic.Uint64
	crasher    atomic.Uint64
	packetRate atomic.Uint64
}

func (c *counters) record(v types.Verdict) {
	c.inspected.Add(1)
	switch v.Action {
	case types.ActionPass:
		c.passed.Add(1)
	case types.ActionDrop:
		c.dropped.Add(1)
	case types.ActionKick:
		c.kickVerd.Add(1)
	}
	for _, cat := range v.Violations {
		switch cat {
		case types.CategoryOversized:
			c.oversized.Add(1)
		case types.CategoryCrasher:
			c.crasher.Add(1)
		case types.CategoryPacketRate:
			c.packetRate.Add(1)
		}
	}
}

// Stats 守卫统计
type Stats struct {
	Tracked    int               `json:"tracked"`
	Kicked     int               `json:"kicked"`
	Inspected  uint64            `json:"inspected"`
	Passed     uint64            `json:"passed"`
	Dropped    uint64            `json:"dropped"`
	KickVerds  uint64            `json:"kick_verdicts"`
	Kicks      uint64            `json:"kicks"`
	Violations map[string]uint64 `json:"violations"`
}

// Stats 返回统计快照
func (g *Guard) Stats() Stats {
	return Stats{
		Tracked:   g.states.Len(),
		Kicked:    g.kicked.Len(),
		Inspected: g.stats.inspected.Load(),
		Passed:    g.stats.passed.Load(),
		Dropped:   g.stats.dropped.Load(),
		KickVerds: g.stats.kickVerd.Load(),
		Kicks:     g.stats.kicks.Load(),
		Violations: map[string]uint64{
			string(types.CategoryOversized):  g.stats.oversized.Load(),
			string(types.CategoryCrasher):    g.stats.crasher.Load(),
			string(types.CategoryPacketRate): g.stats.packetRate.Load(),
		},
	}
}
