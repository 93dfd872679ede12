package ringbuffer

import (
	"runtime"

	"clob-engine/domain"
)

// RingBuffer is the fixed-capacity circular buffer of preallocated
// OrderCommand slots described in spec.md §4.1–§4.2. A single multi-producer
// Sequencer claims contiguous ranges; any number of consumers read published
// slots through a SequenceBarrier built from this buffer.
//
// availableBuffer records, per slot, the sequence number last published into
// it (teacher precedent: the same "slot remembers its own writer" idea as
// Order.ListElement storing enough to undo itself in O(1)). isAvailable(s)
// tests availableBuffer[s&mask] == s; this lets HighestPublishedSequence find
// the highest fully-published prefix of a claimed-but-not-yet-all-published
// range without a separate commit bitmap.
type RingBuffer struct {
	entries []domain.OrderCommand
	mask    int64

	cursor         *Sequence
	gatingSeqs     []*Sequence // consumer sequences the producer must not overrun
	availableBuf   []int64
	wait           WaitStrategy
	nextFree       *Sequence // last sequence claimed by a producer (next() cursor)
}

// NewRingBuffer creates a ring buffer of the given power-of-two size.
func NewRingBuffer(size int, wait WaitStrategy) *RingBuffer {
	if size&(size-1) != 0 {
		panic("ringbuffer: size must be a power of two")
	}
	rb := &RingBuffer{
		entries:      make([]domain.OrderCommand, size),
		mask:         int64(size - 1),
		cursor:       NewSequence(InitialSequence),
		availableBuf: make([]int64, size),
		wait:         wait,
		nextFree:     NewSequence(InitialSequence),
	}
	for i := range rb.availableBuf {
		rb.availableBuf[i] = InitialSequence
	}
	return rb
}

// Size returns the buffer's slot capacity.
func (rb *RingBuffer) Size() int { return int(rb.mask + 1) }

// SetGatingSequences registers the consumer sequences the producer must not
// lap: Next blocks until the slowest declared consumer has moved past
// `sequence - Size()`.
func (rb *RingBuffer) SetGatingSequences(seqs ...*Sequence) {
	rb.gatingSeqs = seqs
}

// Get returns a pointer to the slot at the given sequence (mod buffer size).
func (rb *RingBuffer) Get(sequence int64) *domain.OrderCommand {
	return &rb.entries[sequence&rb.mask]
}

// Next claims a single slot for a producer, blocking (spin) if the ring is
// full — the back-pressure mechanism spec.md §5 describes. Returns the
// claimed sequence; the caller must mutate Get(seq) then call Publish(seq).
func (rb *RingBuffer) Next() int64 {
	return rb.NextN(1)
}

// NextN claims n contiguous slots and returns the highest claimed sequence;
// the caller owns [hi-n+1, hi].
func (rb *RingBuffer) NextN(n int64) int64 {
	for {
		current := rb.nextFree.Get()
		next := current + n

		wrapPoint := next - int64(rb.Size())
		if wrapPoint > minSequence(rb.gatingSeqs, next) {
			runtime.Gosched()
			continue
		}
		if rb.nextFree.CompareAndSet(current, next) {
			return next
		}
	}
}

// Publish makes slot `sequence` visible to consumers by recording it in the
// availability buffer, then wakes any blocked waiters.
func (rb *RingBuffer) Publish(sequence int64) {
	rb.publish(sequence)
	rb.wait.SignalAllWhenBlocking()
}

// PublishRange publishes every sequence in [lo, hi] in order and signals
// once at the end (used after NextN claims a batch).
func (rb *RingBuffer) PublishRange(lo, hi int64) {
	for seq := lo; seq <= hi; seq++ {
		rb.publish(seq)
	}
	rb.wait.SignalAllWhenBlocking()
}

func (rb *RingBuffer) publish(sequence int64) {
	rb.availableBuf[sequence&rb.mask] = sequence
	for {
		cur := rb.cursor.Get()
		// Advance the cursor one published sequence at a time, so it stays a
		// contiguous watermark under multi-producer interleaving and also
		// moves past sequences that were published ahead of this one.
		if !rb.isAvailable(cur + 1) {
			return
		}
		rb.cursor.CompareAndSet(cur, cur+1)
	}
}

func (rb *RingBuffer) isAvailable(sequence int64) bool {
	return rb.availableBuf[sequence&rb.mask] == sequence
}

// HighestPublishedSequence returns the largest contiguously published
// sequence in [lo, hi] — spec.md §4.2's getHighestPublishedSequence.
func (rb *RingBuffer) HighestPublishedSequence(lo, hi int64) int64 {
	for seq := lo; seq <= hi; seq++ {
		if !rb.isAvailable(seq) {
			return seq - 1
		}
	}
	return hi
}

// Cursor exposes the producer's published-sequence counter, used as the
// root dependency for the first stage's SequenceBarrier.
func (rb *RingBuffer) Cursor() *Sequence { return rb.cursor }
