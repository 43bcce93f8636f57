package scheduler

import (
	"context"
	"sync/atomic"
)

// semaphoreCapacity bounds how many outstanding release signals a
// Semaphore can buffer before Release starts dropping them.
const semaphoreCapacity = 32767

// Semaphore is a counting semaphore over a buffered channel: Acquire
// blocks until a signal is available or ctx is done, Release adds
// one.  Used by the cooperative scheduler as workAvailable.
type Semaphore struct {
	ch      chan struct{}
	waiters int32
}

// NewSemaphore returns an empty semaphore.
func NewSemaphore() *Semaphore {
	return &Semaphore{ch: make(chan struct{}, semaphoreCapacity)}
}

// Acquire blocks until a signal is available or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	atomic.AddInt32(&s.waiters, 1)
	defer atomic.AddInt32(&s.waiters, -1)
	select {
	case <-s.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release adds one signal, waking at most one blocked Acquire.
// Releasing past capacity is dropped rather than blocking the
// releaser: a scheduler's enqueue path must never stall on a full
// work-available channel.
func (s *Semaphore) Release() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// ReleaseN calls Release n times.
func (s *Semaphore) ReleaseN(n int) {
	for i := 0; i < n; i++ {
		s.Release()
	}
}

// Waiters reports how many goroutines are currently blocked in
// Acquire.
func (s *Semaphore) Waiters() int {
	return int(atomic.LoadInt32(&s.waiters))
}
