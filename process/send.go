package process

import (
	"context"
	"fmt"

	"github.com/p-org/prt-go/machine"
	"github.com/p-org/prt-go/program"
	"github.com/p-org/prt-go/value"
)

// Send delivers event with a payload built from args to receiver.
// senderState, when non-nil, is folded into the reported Reason of an
// IllegalSendError so a host's error log can name who attempted the
// send, not just who it failed against; it plays no role in routing.
func (pr *Process) Send(ctx context.Context, senderState *MachineSnapshot, receiver value.MID, event program.EventIndex, args []value.Arg) error {
	inst, err := pr.GetMachine(receiver)
	if err != nil {
		ierr := &IllegalSendError{Receiver: receiver, Reason: sendFailureReason(senderState, err)}
		pr.reportError(ierr, nil)
		return ierr
	}

	if event < 0 || event >= len(pr.Program.Events) {
		berr := &BadIndexError{Kind: "event", Index: event}
		pr.reportError(berr, inst)
		return berr
	}
	decl := &pr.Program.Events[event]

	vs, err := value.TakeArgs(args)
	if err != nil {
		return err
	}
	payload, err := program.MakeTupleFromArray(decl.PayloadType, vs)
	if err != nil {
		terr := &TypeMismatchError{Event: event, Want: decl.PayloadType.Kind.String(), Got: fmt.Sprintf("%d argument(s)", len(vs))}
		pr.reportError(terr, inst)
		return terr
	}
	if !program.CompatibleWith(payload, decl.PayloadType) {
		terr := &TypeMismatchError{Event: event, Want: decl.PayloadType.Kind.String(), Got: payload.Kind.String()}
		pr.reportError(terr, inst)
		return terr
	}

	wasIdle, err := inst.Enqueue(event, payload, decl.MaxInstances)
	if err == machine.ErrHalted {
		ierr := &IllegalSendError{Receiver: receiver, Reason: sendFailureReason(senderState, err)}
		pr.reportError(ierr, inst)
		return ierr
	}
	if err != nil {
		qerr := &QueueFullError{Machine: receiver, Event: event}
		pr.reportError(qerr, inst)
		return qerr
	}

	pr.onLog("send", inst, payload)
	if wasIdle {
		pr.sched.WorkAvailable.Release()
	}
	return nil
}

// SendInternal is Send as called from inside a handler body (via
// PropsProcess), where the sender is a live machine id rather than an
// already-built snapshot.
func (pr *Process) SendInternal(ctx context.Context, sender value.MID, receiver value.MID, event program.EventIndex, args []value.Arg) error {
	var snap *MachineSnapshot
	if senderInst, err := pr.GetMachine(sender); err == nil {
		s := pr.GetMachineState(senderInst)
		snap = &s
	}
	return pr.Send(ctx, snap, receiver, event, args)
}

func sendFailureReason(senderState *MachineSnapshot, cause error) string {
	if senderState == nil {
		return cause.Error()
	}
	return fmt.Sprintf("%s: %s", senderState.MachineName, cause.Error())
}
