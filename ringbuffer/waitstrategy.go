package ringbuffer

import (
	"runtime"
	"sync"
)

// AlertedError is returned by a WaitStrategy when the barrier it is waiting
// on has been alerted (shutdown in progress) before the target sequence
// became available.
type AlertedError struct{}

func (AlertedError) Error() string { return "ringbuffer: wait aborted, barrier alerted" }

// WaitStrategy determines how a consumer blocks until a cursor sequence
// reaches a target. Three interchangeable strategies per spec.md §4.1.
type WaitStrategy interface {
	// WaitFor blocks until cursor.Get() >= sequence or isAlerted returns
	// true, then returns the observed cursor value (>= sequence) or an
	// AlertedError.
	WaitFor(sequence int64, cursor SequenceReader, isAlerted func() bool) (int64, error)
	// SignalAllWhenBlocking wakes any waiters parked by this strategy; a
	// producer calls it after publish so BlockingWaitStrategy waiters notice
	// the new cursor value promptly.
	SignalAllWhenBlocking()
}

// BusySpinWaitStrategy spins on cursor reads with no yielding: lowest
// latency, highest CPU usage. Appropriate for pinned, dedicated cores.
type BusySpinWaitStrategy struct{}

func NewBusySpinWaitStrategy() *BusySpinWaitStrategy { return &BusySpinWaitStrategy{} }

func (s *BusySpinWaitStrategy) WaitFor(sequence int64, cursor SequenceReader, isAlerted func() bool) (int64, error) {
	for {
		if available := cursor.Get(); available >= sequence {
			return available, nil
		}
		if isAlerted() {
			return -1, AlertedError{}
		}
	}
}

func (s *BusySpinWaitStrategy) SignalAllWhenBlocking() {}

// YieldingWaitStrategy spins a bounded number of times, then cooperatively
// yields the OS thread between checks. Trades a little latency for much
// lower CPU usage than busy-spin under contention.
type YieldingWaitStrategy struct {
	spinTries int
}

func NewYieldingWaitStrategy() *YieldingWaitStrategy {
	return &YieldingWaitStrategy{spinTries: 100}
}

func (s *YieldingWaitStrategy) WaitFor(sequence int64, cursor SequenceReader, isAlerted func() bool) (int64, error) {
	counter := s.spinTries
	for {
		if available := cursor.Get(); available >= sequence {
			return available, nil
		}
		if isAlerted() {
			return -1, AlertedError{}
		}
		if counter == 0 {
			runtime.Gosched()
		} else {
			counter--
		}
	}
}

func (s *YieldingWaitStrategy) SignalAllWhenBlocking() {}

// BlockingWaitStrategy parks on a condition variable between checks: highest
// latency, lowest CPU usage. Producers must call SignalAllWhenBlocking after
// every publish so parked consumers wake promptly.
type BlockingWaitStrategy struct {
	mu   sync.Mutex
	cond *sync.Cond
}

func NewBlockingWaitStrategy() *BlockingWaitStrategy {
	w := &BlockingWaitStrategy{}
	w.cond = sync.NewCond(&w.mu)
	return w
}

func (s *BlockingWaitStrategy) WaitFor(sequence int64, cursor SequenceReader, isAlerted func() bool) (int64, error) {
	if available := cursor.Get(); available >= sequence {
		return available, nil
	}

	s.mu.Lock()
	for {
		if available := cursor.Get(); available >= sequence {
			s.mu.Unlock()
			return available, nil
		}
		if isAlerted() {
			s.mu.Unlock()
			return -1, AlertedError{}
		}
		s.cond.Wait()
	}
}

func (s *BlockingWaitStrategy) SignalAllWhenBlocking() {
	s.mu.Lock()
	s.cond.Broadcast()
	s.mu.Unlock()
}
