package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/xbedrock/go-xgate/pkg/interfaces"
	"github.com/xbedrock/go-xgate/pkg/lib/log"
	"github.com/xbedrock/go-xgate/pkg/types"
)

var logger = log.Logger("core/storage")

// sessionPrefix 会话记录键前缀
var sessionPrefix = []byte("s/")

var _ interfaces.SessionStore = (*Store)(nil)

// Options Store 选项
type Options struct {
	// Path 数据库目录
	Path string

	// SyncWrites 每次写入同步落盘
	SyncWrites bool

	// GCInterval Value Log GC 间隔，0 表示不运行
	GCInterval time.Duration

	// GCDiscardRatio GC 丢弃比例
	GCDiscardRatio float64
}

// Stats 存储统计
type Stats struct {
	Reads   int64 `json:"reads"`
	Writes  int64 `json:"writes"`
	Deletes int64 `json:"deletes"`
	GCRuns  int64 `json:"gc_runs"`
}

// Store 基于 BadgerDB 的会话存储
type Store struct {
	db     *badger.DB
	opts   Options
	closed atomic.Bool

	reads   atomic.Int64
	writes  atomic.Int64
	deletes atomic.Int64
	gcRuns  atomic.Int64

	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
}

// Open 打开（必要时创建）会话存储
func Open(opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, errors.New("storage: empty path")
	}
	if err := os.MkdirAll(opts.Path, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create dir: %w", err)
	}

	bopts := badger.DefaultOptions(opts.Path).
		WithSyncWrites(opts.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("storage: open badger: %w", err)
	}

	logger.Info("会话存储已打开", "path", opts.Path)
	return &Store{db: db, opts: opts}, nil
}

// Start 启动后台 GC
func (s *Store) Start() error {
	if s.closed.Load() {
		return ErrClosed
	}
	if s.opts.GCInterval <= 0 || s.gcCancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.gcCancel = cancel
	s.gcWg.Add(1)
	go func() {
		defer s.gcWg.Done()
		ticker := time.NewTicker(s.opts.GCInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runGC()
			}
		}
	}()
	return nil
}

// runGC 运行 Value Log GC 直到没有可回收空间
func (s *Store) runGC() {
	ratio := s.opts.GCDiscardRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.5
	}
	for !s.closed.Load() {
		if err := s.db.RunValueLogGC(ratio); err != nil {
			break
		}
	}
	s.gcRuns.Add(1)
}

// Save 保存会话记录
func (s *Store) Save(ctx context.Context, rec types.SessionRecord) error {
	if err := s.check(ctx, rec.Identity); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("storage: encode record: %w", err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(rec.Identity), data)
	}); err != nil {
		return fmt.Errorf("storage: save %s: %w", rec.Identity, err)
	}
	s.writes.Add(1)
	return nil
}

// Load 加载会话记录
func (s *Store) Load(ctx context.Context, identity types.Identity) (types.SessionRecord, bool, error) {
	var rec types.SessionRecord
	if err := s.check(ctx, identity); err != nil {
		return rec, false, err
	}

	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(identity))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(v []byte) error {
			return decode(v, &rec)
		})
	})
	s.reads.Add(1)
	if err != nil {
		return types.SessionRecord{}, false, err
	}
	return rec, found, nil
}

// Delete 删除会话记录
func (s *Store) Delete(ctx context.Context, identity types.Identity) error {
	if err := s.check(ctx, identity); err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey(identity))
	}); err != nil {
		return fmt.Errorf("storage: delete %s: %w", identity, err)
	}
	s.deletes.Add(1)
	return nil
}

// List 列出会话记录，limit <= 0 表示不限
func (s *Store) List(ctx context.Context, limit int) ([]types.SessionRecord, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var out []types.SessionRecord
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			PrefetchValues: true,
			PrefetchSize:   100,
			Prefix:         sessionPrefix,
		})
		defer it.Close()

		for it.Seek(sessionPrefix); it.ValidForPrefix(sessionPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec types.SessionRecord
			if err := it.Item().Value(func(v []byte) error {
				return decode(v, &rec)
			}); err != nil {
				return err
			}
			out = append(out, rec)
			if limit > 0 && len(out) >= limit {
				return nil
			}
		}
		return nil
	})
	s.reads.Add(1)
	return out, err
}

// Stats 返回统计信息
func (s *Store) Stats() Stats {
	return Stats{
		Reads:   s.reads.Load(),
		Writes:  s.writes.Load(),
		Deletes: s.deletes.Load(),
		GCRuns:  s.gcRuns.Load(),
	}
}

// Close 停止 GC 并关闭数据库
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.gcCancel != nil {
		s.gcCancel()
	}
	s.gcWg.Wait()
	logger.Info("会话存储已关闭")
	return s.db.Close()
}

func (s *Store) check(ctx context.Context, identity types.Identity) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if identity.IsEmpty() {
		return ErrEmptyIdentity
	}
	return ctx.Err()
}

func sessionKey(identity types.Identity) []byte {
	return append(append([]byte(nil), sessionPrefix...), identity...)
}

func decode(v []byte, rec *types.SessionRecord) error {
	if err := json.Unmarshal(v, rec); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return nil
}

// ============================================================================
//                              badger 日志适配
// ============================================================================

// badgerLogger 把 badger 日志转到组件 logger
type badgerLogger struct{}

var badgerLog = log.Logger("storage/badger")

func (badgerLogger) Errorf(format string, args ...interface{}) {
	badgerLog.Error(fmt.Sprintf(format, args...))
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	badgerLog.Warn(fmt.Sprintf(format, args...))
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	badgerLog.Debug(fmt.Sprintf(format, args...))
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	badgerLog.Debug(fmt.Sprintf(format, args...))
}
