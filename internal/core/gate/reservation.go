package gate

import (
	"container/heap"
	"net/netip"
	"time"

	"github.com/xbedrock/go-xgate/internal/core/ratewindow"
	"github.com/xbedrock/go-xgate/pkg/types"
)

// reservation 放行后登记的预留
//
// 占用当前连接计数和地址名额，到期后由 Sweep 释放，与会话何时断开无关。
type reservation struct {
	expires time.Time
	slot    *ratewindow.Counter
}

// reservationHeap 按到期时间的最小堆
type reservationHeap []reservation

func (h reservationHeap) Len() int           { return len(h) }
func (h reservationHeap) Less(i, j int) bool { return h[i].expires.Before(h[j].expires) }
func (h reservationHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *reservationHeap) Push(x interface{}) {
	*h = append(*h, x.(reservation))
}

func (h *reservationHeap) Pop() interface{} {
	old := *h
	n := len(old)
	r := old[n-1]
	old[n-1] = reservation{}
	*h = old[:n-1]
	return r
}

// book 登记预留
//
// 准入门已关闭时释放名额并返回 false。
func (g *Gate) book(slot *ratewindow.Counter, now time.Time, cfg *Config) bool {
	g.resMu.Lock()
	if g.closed.Load() {
		g.resMu.Unlock()
		slot.Release()
		return false
	}
	heap.Push(&g.reservations, reservation{expires: now.Add(cfg.ReservationGrace), slot: slot})
	current := g.current.Add(1)
	g.resMu.Unlock()

	g.metrics.setCurrent(int(current))
	return true
}

// SweepResult 一次扫描的结果
type SweepResult struct {
	Released         int `json:"released"`
	AddressesDropped int `json:"addresses_dropped"`
	IdentitiesPruned int `json:"identities_pruned"`
}

// Sweep 释放到期预留，回收空闲的地址计数器与过期的身份记录
func (g *Gate) Sweep(now time.Time) SweepResult {
	var res SweepResult
	if g.closed.Load() {
		return res
	}
	cfg := g.cfg.Load()

	var due []reservation
	g.resMu.Lock()
	for g.reservations.Len() > 0 && !g.reservations[0].expires.After(now) {
		due = append(due, heap.Pop(&g.reservations).(reservation))
	}
	current := g.current.Add(-int64(len(due)))
	g.resMu.Unlock()

	for _, r := range due {
		r.slot.Release()
	}
	res.Released = len(due)
	if len(due) > 0 {
		g.metrics.setCurrent(int(current))
	}

	res.AddressesDropped = g.attempts.Sweep(func(_ netip.Addr, c *ratewindow.Counter) bool {
		return c.Retire()
	})

	// 与 markAdmitted 共用 queueMu，避免刚写入的放行时间被回收
	g.queueMu.Lock()
	res.IdentitiesPruned = g.identities.Sweep(func(id types.Identity, rec *identityRecord) bool {
		if _, queued := g.queued[id]; queued {
			return false
		}
		last := rec.lastAdmit.Load()
		return last == 0 || now.Sub(time.Unix(0, last)) >= cfg.ReconnectCooldown
	})
	g.queueMu.Unlock()

	if res.Released > 0 {
		logger.Debug("预留已释放", "released", res.Released, "current", g.current.Load())
	}
	return res
}

// CurrentConnections 返回未释放的预留数
func (g *Gate) CurrentConnections() int {
	return int(g.current.Load())
}
