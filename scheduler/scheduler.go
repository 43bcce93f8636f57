// Package scheduler picks which machine instance a worker steps next
// and coordinates the cooperative policy's worker threads around a
// shared semaphore.  Grounded on sio/crew.go's single-goroutine Loop,
// generalized to N workers sharing a work-available signal instead of
// one goroutine owning its own channel outright.
package scheduler

import "sync"

// State holds one process's scheduling policy, round-robin cursor,
// and the cooperative-mode coordination primitives.  It owns its own
// lock rather than sharing the process's table lock, so it can be
// exercised and tested independently of process.Process.
type State struct {
	sync.Mutex

	policy      Policy
	lastStepped int

	WorkAvailable  *Semaphore
	threadsWaiting int
	terminating    bool
	stoppedOnce    bool
	allStopped     chan struct{}
}

// NewState returns scheduler state under the given initial policy.
func NewState(policy Policy) *State {
	return &State{
		policy:        policy,
		lastStepped:   -1,
		WorkAvailable: NewSemaphore(),
		allStopped:    make(chan struct{}),
	}
}

// Policy reports the current scheduling policy.
func (s *State) Policy() Policy {
	s.Lock()
	defer s.Unlock()
	return s.policy
}

// SetPolicy installs p, reporting whether it actually changed
// anything; setting the same policy twice is a no-op after the first
// call (testable property 8).
func (s *State) SetPolicy(p Policy) bool {
	s.Lock()
	defer s.Unlock()
	if s.policy == p {
		return false
	}
	s.policy = p
	return true
}

// NextRunnable returns the next index in [0,n) for which runnable
// reports true, scanning round-robin starting just after the last
// index this State returned.  No priority among instances.
func (s *State) NextRunnable(n int, runnable func(int) bool) (int, bool) {
	s.Lock()
	defer s.Unlock()
	if n == 0 {
		return -1, false
	}
	start := s.lastStepped + 1
	for off := 0; off < n; off++ {
		i := (start + off) % n
		if runnable(i) {
			s.lastStepped = i
			return i, true
		}
	}
	return -1, false
}

// Terminating reports whether Stop has been called.
func (s *State) Terminating() bool {
	s.Lock()
	defer s.Unlock()
	return s.terminating
}

// BeginWait records that a cooperative worker is about to block on
// WorkAvailable, so Stop knows how many release signals to send.
func (s *State) BeginWait() {
	s.Lock()
	s.threadsWaiting++
	s.Unlock()
}

// EndWait records that a worker has woken from WorkAvailable and is
// no longer blocked.  If the process is terminating and this was the
// last waiting worker, AllStopped is closed.
func (s *State) EndWait() {
	s.Lock()
	defer s.Unlock()
	s.threadsWaiting--
	s.maybeCloseAllStoppedLocked()
}

// Stop flips terminating and wakes every worker currently blocked on
// WorkAvailable.
func (s *State) Stop() {
	s.Lock()
	n := s.threadsWaiting
	s.terminating = true
	s.maybeCloseAllStoppedLocked()
	s.Unlock()
	s.WorkAvailable.ReleaseN(n)
}

func (s *State) maybeCloseAllStoppedLocked() {
	if s.terminating && s.threadsWaiting == 0 && !s.stoppedOnce {
		s.stoppedOnce = true
		close(s.allStopped)
	}
}

// AllStopped returns a channel that closes once every worker waiting
// at Stop time has woken and departed.
func (s *State) AllStopped() <-chan struct{} {
	return s.allStopped
}
