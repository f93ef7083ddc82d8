package main

import (
	"context"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/xbedrock/go-xgate"
	pkgif "github.com/xbedrock/go-xgate/pkg/interfaces"
	"github.com/xbedrock/go-xgate/pkg/types"
)

// eventBufSize 每个订阅的缓冲区，满时事件被丢弃
const eventBufSize = 256

// watchEvents 订阅事件总线并写入日志
//
// 每种事件一个订阅，ctx 结束时关闭订阅。
func watchEvents(ctx context.Context, g *errgroup.Group, node *xgate.Node) error {
	bus := node.EventBus()
	return multierr.Combine(
		watch(ctx, g, bus, logDecision),
		watch(ctx, g, bus, logAdmitted),
		watch(ctx, g, bus, logExpired),
		watch(ctx, g, bus, logDisconnect),
		watch(ctx, g, bus, logViolation),
	)
}

func watch[E any](ctx context.Context, g *errgroup.Group, bus pkgif.EventBus, fn func(E)) error {
	sub, err := pkgif.SubscribeTo[E](bus, pkgif.BufSize(eventBufSize))
	if err != nil {
		return err
	}
	g.Go(func() error {
		pkgif.Consume(ctx, sub, fn)
		return nil
	})
	return nil
}

func logDecision(evt types.EvtDecision) {
	if evt.Decision.Accepted() {
		return
	}
	if evt.Decision.Queued() {
		logger.Info("连接进入队列",
			"identity", evt.Request.Identity.ShortString(),
			"addr", evt.Request.Address,
			"position", evt.Decision.Position)
		return
	}
	logger.Info("拒绝连接",
		"identity", evt.Request.Identity.ShortString(),
		"addr", evt.Request.Address,
		"reason", evt.Decision.Reason.String())
}

func logAdmitted(evt types.EvtAdmitted) {
	logger.Info("排队连接已放行", "identity", evt.Request.Identity.ShortString(), "waited", evt.Waited)
}

func logExpired(evt types.EvtQueueExpired) {
	logger.Info("排队超时", "identity", evt.Request.Identity.ShortString(), "ticket", evt.Ticket)
}

func logDisconnect(evt types.EvtDisconnect) {
	logger.Info("断开会话", "identity", evt.Identity.ShortString(), "reason", evt.Reason)
}

func logViolation(evt types.EvtViolation) {
	if evt.Action == types.ActionKick {
		logger.Warn("违规达到阈值",
			"identity", evt.Identity.ShortString(),
			"category", evt.Category,
			"count", evt.Count,
			"kind", evt.Kind)
	}
}
