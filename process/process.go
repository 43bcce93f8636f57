// Package process holds the process container: the machine table, the
// program it was started from, the scheduler, and the host callback
// pair every other package reaches the outside world through.
// Grounded on crew.Crew's {sync.RWMutex, Machines map[string]*Machine}
// table, generalized to an append-only slice indexed by MID.Index and
// widened with the scheduler and error/log callbacks the teacher's
// Crew doesn't need (sheens has no equivalent of a cooperative worker
// pool or a typed error taxonomy).
package process

import (
	"context"
	"fmt"
	"sync"

	"github.com/p-org/prt-go/dispatch"
	"github.com/p-org/prt-go/foreign"
	"github.com/p-org/prt-go/machine"
	"github.com/p-org/prt-go/program"
	"github.com/p-org/prt-go/scheduler"
	"github.com/p-org/prt-go/value"
)

// ErrorFunc reports a recoverable or fatal runtime error. snapshot is
// the zero MachineSnapshot when the error isn't attributable to a
// single instance (e.g. a BadIndexError against a nonexistent one).
type ErrorFunc func(pr *Process, err error, snapshot MachineSnapshot)

// LogFunc observes dispatch activity: called with op one of "create",
// "send", "dequeue", "transition", "do", "goto", "halt".
type LogFunc func(op string, payload value.Value, pr *Process, snapshot MachineSnapshot)

// MachineSnapshot is the (machine-id, machine-name, state-id,
// state-name) tuple handed to both callbacks.
type MachineSnapshot struct {
	MachineID   value.MID
	MachineName string
	StateID     program.StateIndex
	StateName   string
}

// StepOutcome is StepProcess's result.
type StepOutcome int

const (
	StepTerminating StepOutcome = iota
	StepIdle
	StepMore
)

func (o StepOutcome) String() string {
	switch o {
	case StepTerminating:
		return "terminating"
	case StepIdle:
		return "idle"
	case StepMore:
		return "more"
	default:
		return "unknown"
	}
}

// Process is a live runtime: one program, one machine table, one
// scheduler, and the host's error/log callbacks.  mu is the coarse
// processLock guarding the machine table; it is always acquired
// before any per-instance lock, never the reverse, and is released
// before a handler body runs.
type Process struct {
	mu sync.Mutex

	GUID    string
	Program *program.Program
	Foreign *foreign.Registry

	sched *scheduler.State

	machines []*machine.Instance

	errorFun ErrorFunc
	logFun   LogFunc
}

// Initialize primes a program's declaration indices before any
// process is started from it.  Exposed at this level (in addition to
// program.Initialize) because the external API table names it as a
// process lifecycle step, not just a program one.
func Initialize(p *program.Program) error {
	return program.Initialize(p)
}

// StartProcess constructs a process over an already-Initialized
// program.
func StartProcess(guid string, p *program.Program, errorFun ErrorFunc, logFun LogFunc) (*Process, error) {
	if !p.Initialized() {
		return nil, &InternalInvariantError{Message: "StartProcess requires an Initialized program"}
	}
	return &Process{
		GUID:     guid,
		Program:  p,
		Foreign:  foreign.NewRegistry(p.ForeignTypes),
		sched:    scheduler.NewState(scheduler.TaskNeutral),
		errorFun: errorFun,
		logFun:   logFun,
	}, nil
}

// SetSchedulingPolicy installs the given policy. Safe to call only
// before RunProcess starts any worker; setting the policy already in
// force is a no-op in scheduler.State.
func (pr *Process) SetSchedulingPolicy(policy scheduler.Policy) error {
	pr.sched.SetPolicy(policy)
	return nil
}

// GetMachine resolves a machine id to its live instance, validating
// both the process GUID and the index range.
func (pr *Process) GetMachine(id value.MID) (*machine.Instance, error) {
	if id.ProcessGUID != pr.GUID {
		return nil, &BadIndexError{Kind: "process-guid", Index: int(id.Index)}
	}
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if int(id.Index) < 0 || int(id.Index) >= len(pr.machines) {
		return nil, &BadIndexError{Kind: "machine", Index: int(id.Index)}
	}
	return pr.machines[id.Index], nil
}

// GetMachineState snapshots inst's identity and current state. Best
// effort when called from outside the goroutine stepping inst; always
// exact when called from within a handler or a log/error callback
// fired while that goroutine holds inst's running slot.
func (pr *Process) GetMachineState(inst *machine.Instance) MachineSnapshot {
	decl := inst.Decl()
	sid := inst.StateID
	return MachineSnapshot{
		MachineID:   inst.ID,
		MachineName: decl.Name,
		StateID:     sid,
		StateName:   decl.States[sid].Name,
	}
}

func (pr *Process) machineCount() int {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return len(pr.machines)
}

func (pr *Process) machineAt(i int) *machine.Instance {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if i < 0 || i >= len(pr.machines) {
		return nil
	}
	return pr.machines[i]
}

func (pr *Process) runnable(i int) bool {
	inst := pr.machineAt(i)
	return inst != nil && !inst.IsHalted() && inst.QueueLen() > 0
}

func (pr *Process) foreignDefault(idx program.ForeignTypeIndex) interface{} {
	v, err := pr.Foreign.MakeDefault(idx)
	if err != nil {
		pr.reportError(&ForeignError{ForeignType: idx, Message: err.Error()}, nil)
		return nil
	}
	return v
}

func (pr *Process) props(inst *machine.Instance) map[string]interface{} {
	return map[string]interface{}{
		machine.PropsInstance: inst,
		machine.PropsProcess:  pr,
	}
}

func (pr *Process) hooks() dispatch.Hooks {
	return dispatch.Hooks{
		OnLog: func(op string, inst *machine.Instance, ev program.EventIndex, payload value.Value) {
			pr.onLog(op, inst, payload)
		},
	}
}

func (pr *Process) onLog(op string, inst *machine.Instance, payload value.Value) {
	if pr.logFun == nil {
		return
	}
	pr.logFun(op, payload, pr, pr.GetMachineState(inst))
}

func (pr *Process) reportError(err error, inst *machine.Instance) {
	if pr.errorFun == nil {
		return
	}
	var snap MachineSnapshot
	if inst != nil {
		snap = pr.GetMachineState(inst)
	}
	pr.errorFun(pr, err, snap)
}

// asProcessError rewrites a dispatch.UnhandledEventError (which has no
// notion of a machine id) into the process-level equivalent, and
// dispatch.ErrPopUnsupported into an InternalInvariantError. Any other
// error (for example one a handler body returns) passes through
// unchanged.
func asProcessError(err error, inst *machine.Instance) error {
	if ue, ok := err.(*dispatch.UnhandledEventError); ok {
		return &UnhandledEventError{Machine: inst.ID, Event: ue.Event, State: ue.State}
	}
	if err == dispatch.ErrPopUnsupported {
		return &InternalInvariantError{Message: err.Error()}
	}
	return err
}

// runInitial claims inst's running slot, runs its initial entry
// function with payload, and releases the slot, reporting and
// returning any error. Shared by MkMachine and MkSymbolicMachine.
func (pr *Process) runInitial(ctx context.Context, inst *machine.Instance, payload value.Value) error {
	if !inst.TryAcquireRunning() {
		return &InternalInvariantError{Message: fmt.Sprintf("newly constructed machine %s was not acquirable", inst.ID)}
	}
	outcome, err := dispatch.RunInitialEntry(ctx, inst, pr.props(inst), pr.hooks(), payload)
	idle := outcome == dispatch.OutcomeIdle || outcome == dispatch.OutcomeHalted || outcome == dispatch.OutcomeReceiving
	inst.ReleaseRunning(idle)
	if err != nil {
		err = asProcessError(err, inst)
		pr.reportError(err, inst)
		return err
	}
	pr.onLog("create", inst, payload)
	return nil
}
