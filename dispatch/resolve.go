package dispatch

import (
	"context"
	"fmt"

	"github.com/p-org/prt-go/control"
	"github.com/p-org/prt-go/machine"
	"github.com/p-org/prt-go/program"
	"github.com/p-org/prt-go/value"
)

// runCycle resolves ev against inst's current state to completion,
// looping to absorb any raise chain without returning to the
// scheduler: a raise re-enters this same function with the raised
// event and payload instead of going back through Dequeue.
func runCycle(ctx context.Context, inst *machine.Instance, props map[string]interface{}, hooks Hooks, ev program.EventIndex, payload value.Value) (Outcome, error) {
	// inst.ReceiveCase is read and written here without taking inst's
	// lock: it is only ever touched by the single worker currently
	// holding the instance's running slot (see TryAcquireRunning),
	// never by a concurrent sender.
	for {
		if rc := inst.ReceiveCase; rc != nil && rc.CaseSet.Has(ev) {
			handler := rc.Handlers[ev]
			inst.ReceiveCase = nil
			sig, err := callFun(ctx, handler, props, payload)
			if err != nil {
				inst.Halt()
				return OutcomeHalted, err
			}
			sig, err = honorSignal(ctx, inst, props, hooks, sig)
			if err != nil {
				inst.Halt()
				return OutcomeHalted, err
			}
			outcome, nextEv, nextPayload, cont, err := finish(inst, sig, OutcomeDidHandler)
			if err != nil {
				inst.Halt()
				return outcome, err
			}
			if !cont {
				return outcome, nil
			}
			ev, payload = nextEv, nextPayload
			continue
		}

		state := inst.CurrentState()

		var sig control.Signal
		var err error
		var baseOutcome Outcome

		switch {
		case state.Transitions.Has(ev):
			baseOutcome = OutcomeTransitioned
			tr := findTransition(state, ev)
			if state.Exit != nil {
				if _, err = callFun(ctx, state.Exit, props, value.NewNull()); err != nil {
					inst.Halt()
					return OutcomeHalted, err
				}
			}
			sig, err = callFun(ctx, tr.TransFun, props, payload)
			if err != nil {
				inst.Halt()
				return OutcomeHalted, err
			}
			if _, isNone := sig.(control.None); isNone {
				inst.EnterState(tr.DestState)
				if hooks.OnLog != nil {
					hooks.OnLog("transition", inst, ev, payload)
				}
				dest := inst.CurrentState()
				sig, err = callFun(ctx, dest.Entry, props, payload)
				if err != nil {
					inst.Halt()
					return OutcomeHalted, err
				}
			}

		case state.Dos.Has(ev):
			baseOutcome = OutcomeDidHandler
			do := findDo(state, ev)
			sig, err = callFun(ctx, do.DoFun, props, payload)
			if err != nil {
				inst.Halt()
				return OutcomeHalted, err
			}
			if hooks.OnLog != nil {
				hooks.OnLog("do", inst, ev, payload)
			}

		default:
			return handleUnhandled(inst, hooks, ev)
		}

		sig, err = honorSignal(ctx, inst, props, hooks, sig)
		if err != nil {
			inst.Halt()
			return OutcomeHalted, err
		}

		outcome, nextEv, nextPayload, cont, err := finish(inst, sig, baseOutcome)
		if err != nil {
			inst.Halt()
			return outcome, err
		}
		if !cont {
			return outcome, nil
		}
		ev, payload = nextEv, nextPayload
	}
}

// honorSignal resolves a chain of control.Goto signals: each Goto
// runs the current state's exit, enters the target state, and runs
// the target's entry, which may itself return another Goto. It
// returns the first non-Goto signal in the chain (None, Raise, Pop,
// Halt, or ReceiveWait) for the caller to handle at full resolution
// scope —
// a Raise may match a different transition or do than the one being
// resolved, so it is never settled here.
func honorSignal(ctx context.Context, inst *machine.Instance, props map[string]interface{}, hooks Hooks, sig control.Signal) (control.Signal, error) {
	for {
		g, isGoto := sig.(control.Goto)
		if !isGoto {
			return sig, nil
		}
		cur := inst.CurrentState()
		if cur.Exit != nil {
			if _, err := callFun(ctx, cur.Exit, props, value.NewNull()); err != nil {
				return nil, err
			}
		}
		inst.EnterState(g.State)
		if hooks.OnLog != nil {
			hooks.OnLog("goto", inst, program.NoEvent, g.Payload)
		}
		entryFn := inst.CurrentState().Entry
		if entryFn == nil {
			sig = control.None{}
			continue
		}
		var err error
		sig, err = callFun(ctx, entryFn, props, g.Payload)
		if err != nil {
			return nil, err
		}
	}
}

// finish interprets a fully-Goto-resolved signal: None settles the
// step at baseOutcome; Raise asks the caller to loop with a new
// event/payload; Pop and an unrecognized signal are errors; ReceiveWait
// installs the instance's receive_case and settles the step as
// OutcomeReceiving.
func finish(inst *machine.Instance, sig control.Signal, baseOutcome Outcome) (outcome Outcome, nextEv program.EventIndex, nextPayload value.Value, cont bool, err error) {
	switch s := sig.(type) {
	case control.None:
		return baseOutcome, program.NoEvent, value.Value{}, false, nil
	case control.Raise:
		return baseOutcome, s.Event, s.Payload, true, nil
	case control.Halt:
		inst.Halt()
		return OutcomeHalted, program.NoEvent, value.Value{}, false, nil
	case control.Pop:
		inst.Halt()
		return OutcomeHalted, program.NoEvent, value.Value{}, false, ErrPopUnsupported
	case control.ReceiveWait:
		handlers := make(map[program.EventIndex]*program.FunDecl, len(s.Handler))
		for ev, funIdx := range s.Handler {
			if funIdx >= 0 && funIdx < len(inst.Decl().Funs) {
				handlers[ev] = &inst.Decl().Funs[funIdx]
			}
		}
		inst.ReceiveCase = &machine.ReceiveWaiter{
			CaseSet:  program.EventSet(s.Cases),
			Handlers: handlers,
		}
		return OutcomeReceiving, program.NoEvent, value.Value{}, false, nil
	default:
		inst.Halt()
		return OutcomeHalted, program.NoEvent, value.Value{}, false, fmt.Errorf("dispatch: unrecognized control signal %T", sig)
	}
}

func handleUnhandled(inst *machine.Instance, hooks Hooks, ev program.EventIndex) (Outcome, error) {
	if hooks.OnUnhandled != nil {
		return hooks.OnUnhandled(inst, ev)
	}
	state := inst.CurrentState()
	inst.Halt()
	return OutcomeHalted, &UnhandledEventError{Event: ev, State: state.Index}
}

func findTransition(state *program.StateDecl, ev program.EventIndex) *program.TransDecl {
	for i := range state.TransList {
		if state.TransList[i].TriggerEvent == ev {
			return &state.TransList[i]
		}
	}
	return nil
}

func findDo(state *program.StateDecl, ev program.EventIndex) *program.DoDecl {
	for i := range state.DoList {
		if state.DoList[i].TriggerEvent == ev {
			return &state.DoList[i]
		}
	}
	return nil
}

func callFun(ctx context.Context, fun *program.FunDecl, props map[string]interface{}, payload value.Value) (control.Signal, error) {
	if fun == nil || fun.Implementation == nil {
		return control.None{}, nil
	}
	return fun.Implementation(ctx, props, payload)
}
