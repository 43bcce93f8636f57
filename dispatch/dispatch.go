// Package dispatch implements the stepper: the core loop that
// dequeues events, resolves handlers against a machine's current
// state, executes entry/exit/do/transition functions, and processes
// the control-flow signals (goto/raise/pop/receive) those functions
// return.  Grounded on core/step.go's Step function, generalized from
// a single pending-message slot to a bounded, deferral-aware event
// queue.
package dispatch

import (
	"context"

	"github.com/p-org/prt-go/machine"
	"github.com/p-org/prt-go/program"
	"github.com/p-org/prt-go/value"
)

// Outcome is the result of one Step call.
type Outcome int

const (
	OutcomeIdle Outcome = iota
	OutcomeTransitioned
	OutcomeDidHandler
	OutcomeReceiving
	OutcomeHalted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIdle:
		return "idle"
	case OutcomeTransitioned:
		return "transitioned"
	case OutcomeDidHandler:
		return "did-handler"
	case OutcomeReceiving:
		return "receiving"
	case OutcomeHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// Hooks lets the caller (normally process.Process) observe dispatch
// events without dispatch importing process: OnLog mirrors the
// logFun callback (op is one of "dequeue", "transition", "do",
// "goto"); OnUnhandled overrides the default halt-on-unhandled-event
// behavior.
type Hooks struct {
	OnLog       func(op string, inst *machine.Instance, ev program.EventIndex, payload value.Value)
	OnUnhandled func(inst *machine.Instance, ev program.EventIndex) (Outcome, error)
}

// Step advances inst by one bounded unit of work: dequeue the next
// admissible event and resolve it.  A chain of raises is absorbed
// within this single call (raise re-enters handler resolution
// immediately, bypassing the queue); a chain of gotos is likewise
// absorbed.  Step returns OutcomeIdle without error if nothing is
// currently admissible, and OutcomeHalted if inst was already halted.
func Step(ctx context.Context, inst *machine.Instance, props map[string]interface{}, hooks Hooks) (Outcome, error) {
	if inst.IsHalted() {
		return OutcomeHalted, nil
	}
	entry, ok := inst.Dequeue()
	if !ok {
		return OutcomeIdle, nil
	}
	if hooks.OnLog != nil {
		hooks.OnLog("dequeue", inst, entry.Event, entry.Payload)
	}
	return runCycle(ctx, inst, props, hooks, entry.Event, entry.Payload)
}

// RunInitialEntry runs a freshly constructed instance's initial
// state's entry function with the constructor payload.  Called once
// by process.MkMachine, outside the normal dequeue loop, per the
// machine construction lifecycle.
func RunInitialEntry(ctx context.Context, inst *machine.Instance, props map[string]interface{}, hooks Hooks, payload value.Value) (Outcome, error) {
	state := inst.CurrentState()
	sig, err := callFun(ctx, state.Entry, props, payload)
	if err != nil {
		inst.Halt()
		return OutcomeHalted, err
	}
	sig, err = honorSignal(ctx, inst, props, hooks, sig)
	if err != nil {
		inst.Halt()
		return OutcomeHalted, err
	}
	outcome, nextEv, nextPayload, cont, err := finish(inst, sig, OutcomeTransitioned)
	if err != nil {
		inst.Halt()
		return outcome, err
	}
	if !cont {
		return outcome, nil
	}
	return runCycle(ctx, inst, props, hooks, nextEv, nextPayload)
}
