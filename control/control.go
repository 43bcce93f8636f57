// Package control defines the explicit control-flow signals that a
// handler function body can hand back to the dispatcher: goto, raise,
// pop, and receive.  The P compiler's CSharp/Java backends represent
// these with thrown exception classes; at the runtime-core level they
// are ordinary returned values, processed by dispatch.Step.
package control

import "github.com/p-org/prt-go/value"

// Signal is implemented by every control-flow result a handler
// function can return.  The zero value a handler returns when it ran
// to completion without any control transfer is None{}.
type Signal interface {
	// signal is unexported so Signal can only be implemented within
	// this package; dispatch switches on the concrete type.
	signal()
}

// None means the handler ran to completion; the dispatcher proceeds
// to consider the next queue entry.
type None struct{}

// Goto aborts the remainder of the current handler, runs the current
// state's exit function, transitions to State, and runs State's entry
// function with Payload.
type Goto struct {
	State   int
	Payload value.Value
}

// Raise behaves as if the machine had been sent (Event, Payload);
// handler resolution re-enters immediately, bypassing the queue.
type Raise struct {
	Event   int
	Payload value.Value
}

// Pop runs the current state's exit function and logically returns to
// the caller of the current state.  Only meaningful when the
// program's push semantics are compiled in; otherwise dispatch halts
// the instance with ErrPopUnsupported, which process reports as an
// InternalInvariantError.
type Pop struct{}

// Halt marks the instance terminal immediately, with no error: the
// handler has decided the machine is done (the P `halt` statement),
// as distinct from an unhandled event or a fatal error reaching the
// same terminal state.
type Halt struct{}

// ReceiveWait suspends the current step: the instance's receive_case
// is set to Cases, and control returns to the scheduler.  The next
// event matching Cases (or the state's defer set) resumes execution
// of the selected receive handler.
type ReceiveWait struct {
	Cases   []uint64
	Handler map[int]int // event index -> FunDecl index within the owning machine
}

func (None) signal()        {}
func (Goto) signal()        {}
func (Raise) signal()       {}
func (Pop) signal()         {}
func (Halt) signal()        {}
func (ReceiveWait) signal() {}
