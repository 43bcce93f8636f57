// Package machine holds the per-machine runtime state the process
// container steps: current state, variables, event queue, deferred
// set, receive state, and call stack.  Grounded on crew.Machine's
// (id, spec, state) triple, generalized from one state blob per
// machine to the full instance record the dispatcher needs.
package machine

import (
	"sync"

	"github.com/p-org/prt-go/program"
	"github.com/p-org/prt-go/value"
)

// Status is the instance lifecycle state: Fresh -> Running <-> Idle ->
// Halted.
type Status int

const (
	Fresh Status = iota
	Running
	Idle
	Halted
)

func (s Status) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Running:
		return "running"
	case Idle:
		return "idle"
	case Halted:
		return "halted"
	default:
		return "unknown"
	}
}

// LastOperation records the most recent thing done to an instance's
// queue, for the log callback.
type LastOperation int

const (
	OpNone LastOperation = iota
	OpEnqueued
	OpDequeued
	OpNullReceived
)

// QueueEntry pairs an event with its payload as it sits in an
// instance's queue.
type QueueEntry struct {
	Event   program.EventIndex
	Payload value.Value
}

// Frame is one call-stack activation record for a nested function
// call inside a handler body.  Modeled after the original runtime's
// prt_callstackframe_t: a function pointer, its locals, and a return
// point.
type Frame struct {
	Fun      *program.FunDecl
	Locals   []value.Value
	ReturnPC int
}

// ReceiveWaiter backs an instance's receive_case: set while the
// instance is blocked in a receive statement, it widens admissibility
// to CaseSet (in addition to the current state's defer set) and names
// which FunDecl handles each case event.
type ReceiveWaiter struct {
	CaseSet  program.EventSet
	Handlers map[program.EventIndex]*program.FunDecl
}

// Instance is a live incarnation of a program.MachineDecl, owned by a
// process.  All mutable fields are guarded by the embedded mutex,
// which separates producers (senders, via Enqueue) from the at-most-
// one consumer (the worker currently stepping this instance).
type Instance struct {
	sync.Mutex

	ID           value.MID
	SymbolicName string
	InstanceOf   program.MachineIndex

	// decl is a non-owning pointer into the process's program tree;
	// the instance never outlives the program that declares its type.
	decl *program.MachineDecl

	StateID   program.StateIndex
	Variables []value.Value

	queue        []QueueEntry
	eventCounts  map[program.EventIndex]int
	maxQueueSize int

	DeferredSet program.EventSet

	Status        Status
	isRunning     bool
	LastOperation LastOperation

	CallStack []Frame

	ReceiveCase *ReceiveWaiter
}

// New allocates a fresh instance of decl, with variables initialized
// to their declared defaults and state set to decl's initial state.
// It does not run the initial entry function; the caller (normally
// process.MkMachine) does that once the instance is visible in the
// process table.
func New(id value.MID, symbolicName string, decl *program.MachineDecl, instanceOf program.MachineIndex, foreignDefault func(program.ForeignTypeIndex) interface{}) *Instance {
	vars := make([]value.Value, len(decl.Vars))
	for i, vd := range decl.Vars {
		vars[i] = program.Default(vd.Type, foreignDefault)
	}
	return &Instance{
		ID:            id,
		SymbolicName:  symbolicName,
		InstanceOf:    instanceOf,
		decl:          decl,
		StateID:       decl.InitStateIndex,
		Variables:     vars,
		maxQueueSize:  decl.MaxQueueSize,
		DeferredSet:   decl.States[decl.InitStateIndex].Defers,
		eventCounts:   map[program.EventIndex]int{},
		Status:        Fresh,
		LastOperation: OpNone,
	}
}

// Decl returns the MachineDecl this instance was built from.
func (inst *Instance) Decl() *program.MachineDecl {
	return inst.decl
}

// CurrentState returns the StateDecl for the instance's current
// StateID.  Caller must hold inst's lock, or accept a stale read.
func (inst *Instance) CurrentState() *program.StateDecl {
	return &inst.decl.States[inst.StateID]
}

// EnterState updates StateID and refreshes DeferredSet from the
// target state's declared defer set.  Called by dispatch after
// exit/entry bookkeeping around a transition or goto.
func (inst *Instance) EnterState(idx program.StateIndex) {
	inst.Lock()
	defer inst.Unlock()
	inst.StateID = idx
	inst.DeferredSet = inst.decl.States[idx].Defers
}

// TryAcquireRunning attempts to claim the single-writer slot for
// stepping this instance.  Returns false if another worker already
// holds it or the instance is halted.  Enforces invariant 1: at most
// one worker executes a handler for a given instance at a time.
func (inst *Instance) TryAcquireRunning() bool {
	inst.Lock()
	defer inst.Unlock()
	if inst.isRunning || inst.Status == Halted {
		return false
	}
	inst.isRunning = true
	inst.Status = Running
	return true
}

// ReleaseRunning gives up the single-writer slot.  The instance
// settles into Idle when idle is true (the step found nothing
// admissible, halted, or suspended in a receive) or its queue is
// empty; otherwise it stays Running for the next worker pick.
func (inst *Instance) ReleaseRunning(idle bool) {
	inst.Lock()
	defer inst.Unlock()
	inst.isRunning = false
	if inst.Status == Halted {
		return
	}
	if idle || len(inst.queue) == 0 {
		inst.Status = Idle
	}
}

// Halt marks the instance terminal.  A halted instance accepts no
// further sends (Enqueue reports ErrHalted) and is never picked by
// the scheduler again.
func (inst *Instance) Halt() {
	inst.Lock()
	defer inst.Unlock()
	inst.Status = Halted
	inst.isRunning = false
}

// IsHalted reports whether the instance has reached the terminal
// state.
func (inst *Instance) IsHalted() bool {
	inst.Lock()
	defer inst.Unlock()
	return inst.Status == Halted
}

// QueueLen reports the number of entries currently queued.
func (inst *Instance) QueueLen() int {
	inst.Lock()
	defer inst.Unlock()
	return len(inst.queue)
}

// PushFrame and PopFrame manage the call stack for nested function
// invocations within a single handler execution.
func (inst *Instance) PushFrame(f Frame) {
	inst.CallStack = append(inst.CallStack, f)
}

func (inst *Instance) PopFrame() (Frame, bool) {
	if len(inst.CallStack) == 0 {
		return Frame{}, false
	}
	n := len(inst.CallStack) - 1
	f := inst.CallStack[n]
	inst.CallStack = inst.CallStack[:n]
	return f, true
}
