package ringbuffer

import "testing"

func TestPublishAndBarrierWaitFor(t *testing.T) {
	rb := NewRingBuffer(8, NewBusySpinWaitStrategy())
	barrier := NewSequenceBarrier(rb, NewBusySpinWaitStrategy())

	seq := rb.Next()
	rb.Get(seq).OrderID = 42
	rb.Publish(seq)

	available, err := barrier.WaitFor(0)
	if err != nil {
		t.Fatalf("waitFor: %v", err)
	}
	if available != 0 {
		t.Fatalf("expected available sequence 0, got %d", available)
	}
	if rb.Get(0).OrderID != 42 {
		t.Fatalf("expected slot 0 to carry OrderID 42, got %d", rb.Get(0).OrderID)
	}
}

func TestBarrierRespectsDependencySequence(t *testing.T) {
	rb := NewRingBuffer(8, NewBusySpinWaitStrategy())
	upstream := NewSequence(InitialSequence)
	barrier := NewSequenceBarrier(rb, NewBusySpinWaitStrategy(), upstream)

	for i := 0; i < 3; i++ {
		seq := rb.Next()
		rb.Publish(seq)
	}

	done := make(chan int64, 1)
	go func() {
		available, err := barrier.WaitFor(2)
		if err != nil {
			done <- -999
			return
		}
		done <- available
	}()

	select {
	case v := <-done:
		t.Fatalf("expected WaitFor(2) to block on the upstream dependency, but it returned %d", v)
	default:
	}

	upstream.Set(2)
	if got := <-done; got != 2 {
		t.Fatalf("expected WaitFor to unblock at 2 once the dependency caught up, got %d", got)
	}
}

func TestAlertUnblocksWaiters(t *testing.T) {
	rb := NewRingBuffer(8, NewBlockingWaitStrategy())
	barrier := NewSequenceBarrier(rb, NewBlockingWaitStrategy())

	errCh := make(chan error, 1)
	go func() {
		_, err := barrier.WaitFor(5)
		errCh <- err
	}()

	barrier.Alert()
	err := <-errCh
	if _, ok := err.(AlertedError); !ok {
		t.Fatalf("expected AlertedError, got %v", err)
	}
}

func TestNextNClaimsContiguousRange(t *testing.T) {
	rb := NewRingBuffer(16, NewBusySpinWaitStrategy())
	hi := rb.NextN(4)
	if hi != 3 {
		t.Fatalf("expected highest claimed sequence 3, got %d", hi)
	}
	for i := int64(0); i <= hi; i++ {
		rb.Get(i).OrderID = i
	}
	rb.PublishRange(0, hi)

	for i := int64(0); i <= hi; i++ {
		if !rb.isAvailable(i) {
			t.Fatalf("expected sequence %d to be marked available", i)
		}
	}
	if got := rb.HighestPublishedSequence(0, hi); got != hi {
		t.Fatalf("expected highest published sequence %d, got %d", hi, got)
	}
}

func TestRingBufferPanicsOnNonPowerOfTwoSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic for a non-power-of-two size")
		}
	}()
	NewRingBuffer(5, NewBusySpinWaitStrategy())
}
