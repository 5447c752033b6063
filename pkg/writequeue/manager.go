// Package writequeue serializes database writes per key.
// Package writequeue 按 key 串行化数据库写操作，避免 SQLite "database is locked"
//
// Each key (a table or an aggregate such as "history") gets one FIFO queue and
// one worker goroutine. Writes for different keys run concurrently.
package writequeue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrWriteQueueFull 当写队列已满时返回
	ErrWriteQueueFull = errors.New("write queue is full")
	// ErrWriteQueueClosed 当写队列管理器已关闭时返回
	ErrWriteQueueClosed = errors.New("write queue is closed")
	// ErrWriteTimeout 当写操作超时时返回
	ErrWriteTimeout = errors.New("write operation timeout")
)

// Config 写队列配置
type Config struct {
	// QueueCapacity 每个 key 的队列容量
	QueueCapacity int
	// WriteTimeout 写操作超时时间
	WriteTimeout time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		QueueCapacity: 100,
		WriteTimeout:  30 * time.Second,
	}
}

type writeOp struct {
	ctx    context.Context
	fn     func() error
	result chan error
}

type keyQueue struct {
	key string
	ch  chan writeOp
}

// Manager 管理所有 key 的写队列
type Manager struct {
	config Config
	logger *zap.Logger

	mu     sync.Mutex
	queues map[string]*keyQueue
	closed bool

	workerWg sync.WaitGroup
}

// New 创建写队列管理器
func New(cfg *Config, logger *zap.Logger) *Manager {
	c := DefaultConfig()
	if cfg != nil {
		if cfg.QueueCapacity > 0 {
			c.QueueCapacity = cfg.QueueCapacity
		}
		if cfg.WriteTimeout > 0 {
			c.WriteTimeout = cfg.WriteTimeout
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		config: c,
		logger: logger,
		queues: make(map[string]*keyQueue),
	}

	m.logger.Info("write queue manager started",
		zap.Int("queueCapacity", c.QueueCapacity),
		zap.Duration("writeTimeout", c.WriteTimeout))

	return m
}

// Execute runs fn on the worker owning key and waits for its result.
// Writes for the same key are executed one at a time in FIFO order.
// Execute 执行写操作，同一 key 的写操作按 FIFO 顺序串行执行
func (m *Manager) Execute(ctx context.Context, key string, fn func() error) error {
	result := make(chan error, 1)
	op := writeOp{ctx: ctx, fn: fn, result: result}

	if err := m.submit(key, op); err != nil {
		return err
	}

	timeout := m.config.WriteTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrWriteTimeout
	}
}

func (m *Manager) submit(key string, op writeOp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrWriteQueueClosed
	}

	q, ok := m.queues[key]
	if !ok {
		q = &keyQueue{key: key, ch: make(chan writeOp, m.config.QueueCapacity)}
		m.queues[key] = q
		m.workerWg.Add(1)
		go m.worker(q)
		m.logger.Debug("created write queue", zap.String("key", key))
	}

	select {
	case q.ch <- op:
		return nil
	default:
		return ErrWriteQueueFull
	}
}

func (m *Manager) worker(q *keyQueue) {
	defer m.workerWg.Done()
	for op := range q.ch {
		m.executeOp(q, op)
	}
	m.logger.Debug("write queue worker stopped", zap.String("key", q.key))
}

func (m *Manager) executeOp(q *keyQueue, op writeOp) {
	select {
	case <-op.ctx.Done():
		op.result <- op.ctx.Err()
		return
	default:
	}

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("write queue op panic", zap.String("key", q.key), zap.Any("panic", r), zap.Stack("stack"))
				err = fmt.Errorf("write panic: %v", r)
			}
		}()
		err = op.fn()
	}()

	op.result <- err
}

// Shutdown stops accepting writes and waits until queued writes finish.
// Shutdown 关闭写队列管理器，等待所有操作完成
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	for _, q := range m.queues {
		close(q.ch)
	}
	m.mu.Unlock()

	m.logger.Info("write queue manager shutting down")

	done := make(chan struct{})
	go func() {
		m.workerWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("write queue manager shutdown completed")
		return nil
	case <-ctx.Done():
		m.logger.Warn("write queue manager shutdown timeout")
		return ctx.Err()
	}
}

// IsClosed 返回管理器是否已关闭
func (m *Manager) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Metrics 写队列管理器指标
type Metrics struct {
	QueueCapacity int
	ActiveQueues  int
	Queued        map[string]int
	IsClosed      bool
}

// GetMetrics 获取当前指标
func (m *Manager) GetMetrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	queued := make(map[string]int, len(m.queues))
	for k, q := range m.queues {
		queued[k] = len(q.ch)
	}
	return Metrics{
		QueueCapacity: m.config.QueueCapacity,
		ActiveQueues:  len(m.queues),
		Queued:        queued,
		IsClosed:      m.closed,
	}
}
