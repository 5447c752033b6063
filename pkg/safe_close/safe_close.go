// Package safe_close coordinates shutdown of long-running goroutines.
// Package safe_close 协调长期运行 goroutine 的关闭
package safe_close

import (
	"sync"
)

// SafeClose broadcasts one close signal to every attached worker and waits
// for them to report done.
type SafeClose struct {
	once    sync.Once
	closeCh chan struct{}
	wg      sync.WaitGroup

	mu  sync.Mutex
	err error
}

func NewSafeClose() *SafeClose {
	return &SafeClose{closeCh: make(chan struct{})}
}

// Attach starts fn in a goroutine. fn must call done before returning and
// should return once closeSignal is closed.
// Attach 启动一个受管 goroutine，fn 在收到关闭信号后应调用 done 并返回
func (s *SafeClose) Attach(fn func(done func(), closeSignal <-chan struct{})) {
	s.wg.Add(1)
	var doneOnce sync.Once
	go fn(func() { doneOnce.Do(s.wg.Done) }, s.closeCh)
}

// SendCloseSignal closes the signal channel. Only the first call has effect;
// its err is reported by WaitClosed.
// SendCloseSignal 发送关闭信号，仅第一次调用生效
func (s *SafeClose) SendCloseSignal(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.closeCh)
	})
}

// CloseSignal returns the channel closed by SendCloseSignal.
func (s *SafeClose) CloseSignal() <-chan struct{} {
	return s.closeCh
}

// WaitClosed blocks until every attached goroutine called done.
// WaitClosed 等待所有受管 goroutine 结束
func (s *SafeClose) WaitClosed() error {
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
