package registry

import (
	"context"
	"sync"
	"time"

	"github.com/xbedrock/go-xgate/pkg/types"
)

// persistJob 待写入的会话记录
//
// flush 非 nil 时为屏障，处理到它时关闭 flush。
type persistJob struct {
	s     types.Session
	end   time.Time
	flush chan struct{}
}

// persister 单 goroutine 的异步持久化队列
//
// 会话结束发生在数据包与断开路径上，存储 I/O 不能阻塞调用方。
// 队列满时丢弃并计入失败；关闭后退回同步写入。
type persister struct {
	r *Registry

	mu     sync.RWMutex
	closed bool
	jobs   chan persistJob
	done   chan struct{}
}

func newPersister(r *Registry, size int) *persister {
	p := &persister{
		r:    r,
		jobs: make(chan persistJob, size),
		done: make(chan struct{}),
	}
	go p.loop()
	return p
}

func (p *persister) loop() {
	defer close(p.done)
	for job := range p.jobs {
		if job.flush != nil {
			close(job.flush)
			continue
		}
		p.r.persist(job.s, job.end)
	}
}

// enqueue 提交一条记录，不阻塞
func (p *persister) enqueue(s types.Session, end time.Time) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		p.r.persist(s, end)
		return
	}
	select {
	case p.jobs <- persistJob{s: s, end: end}:
		p.mu.RUnlock()
	default:
		p.mu.RUnlock()
		p.r.metrics.persistFailed()
		p.r.persistWarn.Do(func() {
			logger.Error("持久化队列已满，丢弃会话记录", "identity", s.Identity.ShortString())
		})
	}
}

// flush 等待此前提交的记录全部写完
func (p *persister) flush(ctx context.Context) error {
	ch := make(chan struct{})

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil
	}
	select {
	case p.jobs <- persistJob{flush: ch}:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close 停止接收并等待队列写完
func (p *persister) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	<-p.done
}
