package ringbuffer

import "sync/atomic"

// SequenceBarrier composes a ring buffer's published-sequence cursor with a
// set of upstream dependency sequences (the sequences of stages this
// consumer must read after). WaitFor never returns a sequence past what both
// the ring buffer has published AND every dependency has already consumed.
//
// Cancellation is modeled as an alert flag (spec.md §4.1): halting sets it
// and wakes all waiters, who then observe AlertedError from WaitFor.
type SequenceBarrier struct {
	ring    *RingBuffer
	deps    []*Sequence
	alerted atomic.Bool
	wait    WaitStrategy
}

// NewSequenceBarrier builds a barrier over ring, gated additionally by dependencies
// (e.g. a post-risk stage's barrier depends on its matching engine's sequence).
func NewSequenceBarrier(ring *RingBuffer, wait WaitStrategy, dependencies ...*Sequence) *SequenceBarrier {
	return &SequenceBarrier{ring: ring, deps: dependencies, wait: wait}
}

// WaitFor blocks until `sequence` is available: published by the ring buffer
// AND, when dependencies are set, reached by every dependency sequence.
// Returns the highest contiguously available sequence (which may exceed the
// requested one, letting the caller batch-process).
func (b *SequenceBarrier) WaitFor(sequence int64) (int64, error) {
	available, err := b.wait.WaitFor(sequence, b.effectiveCursor(), b.IsAlerted)
	if err != nil {
		return -1, err
	}
	if available < sequence {
		return available, nil
	}
	return b.ring.HighestPublishedSequence(sequence, available), nil
}

// effectiveCursor returns the ring's cursor when there are no dependencies,
// or a composed view clamped to the minimum dependency sequence.
func (b *SequenceBarrier) effectiveCursor() SequenceReader {
	if len(b.deps) == 0 {
		return b.ring.Cursor()
	}
	return &composedSequence{ring: b.ring, deps: b.deps}
}

// composedSequence presents min(ring.cursor, deps...) through the
// SequenceReader surface WaitStrategy expects — a fixed dependency group as
// spec.md §4.2 describes.
type composedSequence struct {
	ring *RingBuffer
	deps []*Sequence
}

func (c *composedSequence) Get() int64 {
	return minSequence(c.deps, c.ring.Cursor().Get())
}

// Alert marks the barrier as cancelled and wakes any blocked waiters.
func (b *SequenceBarrier) Alert() {
	b.alerted.Store(true)
	b.wait.SignalAllWhenBlocking()
}

// ClearAlert resets the alert flag (used when restarting a stage).
func (b *SequenceBarrier) ClearAlert() { b.alerted.Store(false) }

// IsAlerted reports whether Alert has been called since the last ClearAlert.
func (b *SequenceBarrier) IsAlerted() bool { return b.alerted.Load() }
