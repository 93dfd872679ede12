package pipeline

import (
	"sync"

	"clob-engine/domain"
)

// resultRegistry fulfills per-command futures once the core loop finishes
// processing their sequence, the promise/future pattern standing in for
// spec.md's downstream "results handler" consumer stage.
type resultRegistry struct {
	mu      sync.Mutex
	pending map[int64]chan *domain.OrderCommand
}

func newResultRegistry() *resultRegistry {
	return &resultRegistry{pending: make(map[int64]chan *domain.OrderCommand)}
}

// register creates a buffered, single-value future for seq. Submit calls
// this before publishing so the future is ready to receive before the core
// loop could possibly fulfill it.
func (r *resultRegistry) register(seq int64) <-chan *domain.OrderCommand {
	ch := make(chan *domain.OrderCommand, 1)
	r.mu.Lock()
	r.pending[seq] = ch
	r.mu.Unlock()
	return ch
}

// fulfill delivers cmd to seq's future, if anyone registered one.
func (r *resultRegistry) fulfill(seq int64, cmd *domain.OrderCommand) {
	r.mu.Lock()
	ch, ok := r.pending[seq]
	if ok {
		delete(r.pending, seq)
	}
	r.mu.Unlock()
	if ok {
		ch <- cmd
	}
}
