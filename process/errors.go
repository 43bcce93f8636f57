package process

import (
	"fmt"

	"github.com/p-org/prt-go/program"
	"github.com/p-org/prt-go/value"
)

// QueueFullError occurs when a Send would exceed either the target
// event's declared MaxInstances bound or the receiving machine's
// MaxQueueSize bound.
type QueueFullError struct {
	Machine value.MID
	Event   program.EventIndex
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("process: queue full on %s delivering event %d", e.Machine, e.Event)
}

// UnhandledEventError occurs when a dequeued event matches neither a
// transition, a do-handler, nor an active receive case in the
// machine's current state.
type UnhandledEventError struct {
	Machine value.MID
	Event   program.EventIndex
	State   program.StateIndex
}

func (e *UnhandledEventError) Error() string {
	return fmt.Sprintf("process: %s has no handler for event %d in state %d", e.Machine, e.Event, e.State)
}

// IllegalSendError occurs when Send targets a machine id that does
// not resolve (wrong process GUID, out-of-range index) or that has
// already halted.
type IllegalSendError struct {
	Receiver value.MID
	Reason   string
}

func (e *IllegalSendError) Error() string {
	return fmt.Sprintf("process: illegal send to %s: %s", e.Receiver, e.Reason)
}

// BadIndexError occurs when a caller-supplied index or name does not
// resolve against the program's declaration tables.
type BadIndexError struct {
	Kind  string
	Index int
}

func (e *BadIndexError) Error() string {
	return fmt.Sprintf("process: bad %s index %d", e.Kind, e.Index)
}

// TypeMismatchError occurs when an ingress payload (a Send or
// MkMachine argument list) does not match its declared type.
type TypeMismatchError struct {
	Event program.EventIndex
	Want  string
	Got   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("process: event %d payload mismatch: want %s, got %s", e.Event, e.Want, e.Got)
}

// AssertionFailedError occurs when a handler body's assertion fails.
// Unlike the five recoverable error kinds, this terminates the whole
// process rather than just the offending instance.
type AssertionFailedError struct {
	Machine value.MID
	Message string
}

func (e *AssertionFailedError) Error() string {
	return fmt.Sprintf("process: assertion failed in %s: %s", e.Machine, e.Message)
}

// ForeignError wraps a failure surfaced by a foreign type's callback
// (clone, free, equals, hash, makeDefault) or a scripted FunDecl
// implementation.
type ForeignError struct {
	ForeignType program.ForeignTypeIndex
	Message     string
}

func (e *ForeignError) Error() string {
	return fmt.Sprintf("process: foreign type %d: %s", e.ForeignType, e.Message)
}

// InternalInvariantError marks a condition the runtime's own
// invariants should have prevented (e.g. Pop without push semantics,
// an unrecognized control.Signal). Reaching one aborts the process.
type InternalInvariantError struct {
	Message string
}

func (e *InternalInvariantError) Error() string {
	return fmt.Sprintf("process: internal invariant violated: %s", e.Message)
}
