package machine

import (
	"github.com/p-org/prt-go/program"
	"github.com/p-org/prt-go/value"
)

// Enqueue appends (event, payload) to the instance's queue under the
// instance lock, after an admission check against maxInstances (the
// event's declared per-event occurrence bound; 0 means unbounded) and
// the instance's own maxQueueSize.  wasIdle reports whether the
// instance was not already runnable, so the caller (process.Send) can
// decide whether to notify the scheduler.
func (inst *Instance) Enqueue(ev program.EventIndex, payload value.Value, maxInstances int) (wasIdle bool, err error) {
	inst.Lock()
	defer inst.Unlock()

	if inst.Status == Halted {
		return false, ErrHalted
	}
	if maxInstances > 0 && inst.eventCounts[ev] >= maxInstances {
		return false, ErrQueueFull
	}
	if inst.maxQueueSize > 0 && len(inst.queue) >= inst.maxQueueSize {
		return false, ErrQueueFull
	}

	inst.queue = append(inst.queue, QueueEntry{Event: ev, Payload: payload})
	inst.eventCounts[ev]++
	inst.LastOperation = OpEnqueued

	wasIdle = inst.Status == Idle || inst.Status == Fresh
	if inst.Status != Running {
		inst.Status = Running
	}
	return wasIdle, nil
}

// Dequeue scans the queue head-first for the first admissible entry
// (see admissibleLocked) and removes it.  Returns ok=false, leaving
// the queue untouched, if nothing is currently admissible; this is
// the "idle" dequeue result.
func (inst *Instance) Dequeue() (entry QueueEntry, ok bool) {
	inst.Lock()
	defer inst.Unlock()

	for i, e := range inst.queue {
		if inst.admissibleLocked(e.Event) {
			inst.queue = append(inst.queue[:i:i], inst.queue[i+1:]...)
			inst.eventCounts[e.Event]--
			inst.LastOperation = OpDequeued
			return e, true
		}
	}
	inst.LastOperation = OpNullReceived
	return QueueEntry{}, false
}

// admissibleLocked reports whether ev may be dequeued right now.
// Caller must hold inst's lock.
func (inst *Instance) admissibleLocked(ev program.EventIndex) bool {
	if inst.ReceiveCase != nil {
		return inst.ReceiveCase.CaseSet.Has(ev) || inst.DeferredSet.Has(ev)
	}
	return !inst.DeferredSet.Has(ev)
}
