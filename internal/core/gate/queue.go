package gate

import (
	"container/list"
	"time"

	"github.com/xbedrock/go-xgate/internal/core/ratewindow"
	"github.com/xbedrock/go-xgate/pkg/types"
)

// entry 排队条目
type entry struct {
	req      types.ConnectionRequest
	slot     *ratewindow.Counter
	queuedAt time.Time
	ticket   string
	position int
}

// QueueEntryInfo 排队条目快照
type QueueEntryInfo struct {
	Ticket      string         `json:"ticket"`
	Identity    types.Identity `json:"identity"`
	DisplayName string         `json:"display_name"`
	Address     string         `json:"address"`
	Position    int            `json:"position"`
	QueuedAt    time.Time      `json:"queued_at"`
	Waited      time.Duration  `json:"waited"`
}

// DrainResult 一次排空的结果
type DrainResult struct {
	Capacity  int `json:"capacity"`
	Admitted  int `json:"admitted"`
	Expired   int `json:"expired"`
	Remaining int `json:"remaining"`
}

// positionMove 位置变化
type positionMove struct {
	id       types.Identity
	ticket   string
	position int
}

// Drain 执行一个排空周期
//
// 先移除所有超时条目（不占容量），再按到达顺序放行至多 Capacity 个仍满足冷却的条目。
// 本周期剩余容量可被 Admit 的立即放行继续使用。
func (g *Gate) Drain(now time.Time) DrainResult {
	if g.closed.Load() {
		return DrainResult{}
	}
	cfg := g.cfg.Load()
	capacity := cfg.capacity(now)

	var (
		expired  []*entry
		admitted []*entry
		moves    []positionMove
	)

	g.queueMu.Lock()
	if g.closed.Load() {
		g.queueMu.Unlock()
		return DrainResult{}
	}
	g.budget = capacity

	for el := g.queue.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry)
		if now.Sub(e.queuedAt) >= cfg.QueueEntryTimeout {
			g.removeLocked(el)
			expired = append(expired, e)
		}
		el = next
	}

	for el := g.queue.Front(); el != nil && g.budget > 0; {
		next := el.Next()
		e := el.Value.(*entry)
		if g.markAdmitted(e.req.Identity, now, cfg) {
			g.removeLocked(el)
			admitted = append(admitted, e)
			g.budget--
		}
		el = next
	}

	pos := 0
	for el := g.queue.Front(); el != nil; el = el.Next() {
		pos++
		e := el.Value.(*entry)
		if e.position != pos {
			e.position = pos
			moves = append(moves, positionMove{id: e.req.Identity, ticket: e.ticket, position: pos})
		}
	}
	remaining := g.queue.Len()
	g.queueMu.Unlock()

	for _, e := range expired {
		e.slot.Release()
		_ = g.emitExpired.Emit(types.EvtQueueExpired{
			BaseEvent: types.NewBaseEvent(types.EventTypeQueueExpired, now),
			Request:   e.req,
			Ticket:    e.ticket,
		})
	}
	for _, e := range admitted {
		if !g.book(e.slot, now, cfg) {
			continue
		}
		_ = g.emitAdmitted.Emit(types.EvtAdmitted{
			BaseEvent: types.NewBaseEvent(types.EventTypeAdmitted, now),
			Request:   e.req,
			Ticket:    e.ticket,
			Waited:    now.Sub(e.queuedAt),
		})
	}
	for _, mv := range moves {
		_ = g.emitPosition.Emit(types.EvtQueuePosition{
			BaseEvent: types.NewBaseEvent(types.EventTypeQueuePosition, now),
			Identity:  mv.id,
			Ticket:    mv.ticket,
			Position:  mv.position,
			Size:      cfg.MaxQueueSize,
		})
	}

	g.stats.expired.Add(uint64(len(expired)))
	g.stats.fromQueue.Add(uint64(len(admitted)))
	g.metrics.recordDrain(len(admitted), len(expired), remaining, capacity)

	if len(admitted) > 0 || len(expired) > 0 {
		logger.Debug("队列排空",
			"admitted", len(admitted),
			"expired", len(expired),
			"remaining", remaining,
			"capacity", capacity)
	}

	return DrainResult{
		Capacity:  capacity,
		Admitted:  len(admitted),
		Expired:   len(expired),
		Remaining: remaining,
	}
}

// QueueLen 返回队列长度
func (g *Gate) QueueLen() int {
	g.queueMu.Lock()
	defer g.queueMu.Unlock()
	return g.queue.Len()
}

// Position 返回身份在队列中的位置，不在队列中时返回 0
func (g *Gate) Position(id types.Identity) int {
	g.queueMu.Lock()
	defer g.queueMu.Unlock()
	el, ok := g.queued[id]
	if !ok {
		return 0
	}
	return g.positionLocked(el)
}

// QueueSnapshot 返回按到达顺序排列的队列快照
func (g *Gate) QueueSnapshot() []QueueEntryInfo {
	now := g.clk.Now()

	g.queueMu.Lock()
	defer g.queueMu.Unlock()

	out := make([]QueueEntryInfo, 0, g.queue.Len())
	pos := 0
	for el := g.queue.Front(); el != nil; el = el.Next() {
		pos++
		e := el.Value.(*entry)
		out = append(out, QueueEntryInfo{
			Ticket:      e.ticket,
			Identity:    e.req.Identity,
			DisplayName: e.req.DisplayName,
			Address:     e.req.Address,
			Position:    pos,
			QueuedAt:    e.queuedAt,
			Waited:      now.Sub(e.queuedAt),
		})
	}
	return out
}

// removeLocked 从队列移除条目，调用方持有 queueMu
func (g *Gate) removeLocked(el *list.Element) {
	e := g.queue.Remove(el).(*entry)
	delete(g.queued, e.req.Identity)
}

// positionLocked 计算条目位置（从 1 开始），调用方持有 queueMu
func (g *Gate) positionLocked(target *list.Element) int {
	pos := 0
	for el := g.queue.Front(); el != nil; el = el.Next() {
		pos++
		if el == target {
			return pos
		}
	}
	return 0
}
