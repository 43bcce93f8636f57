package process

import (
	"context"
	"testing"
	"time"

	"github.com/p-org/prt-go/control"
	"github.com/p-org/prt-go/machine"
	"github.com/p-org/prt-go/program"
	"github.com/p-org/prt-go/scheduler"
	"github.com/p-org/prt-go/value"
)

func mustInitialize(t *testing.T, p *program.Program) {
	t.Helper()
	if err := program.Initialize(p); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
}

func intType() program.Type { return program.Type{Kind: value.Int} }

// TestPingPongTenRoundsHaltsBothMachines is the literal ping-pong
// acceptance scenario: A sends PING(1) to B; B bounces back PONG(n+1)
// while n<10, then sends STOP to A and halts; A relays every PONG
// back as the next PING and halts on STOP. Twenty dequeues happen in
// total (ten on each side); A's Counter variable ends at 10 and both
// machines are halted.
func TestPingPongTenRoundsHaltsBothMachines(t *testing.T) {
	const (
		evPing program.EventIndex = 0
		evPong program.EventIndex = 1
		evStop program.EventIndex = 2
	)

	var aID, bID value.MID
	var dequeues int

	entryA := &program.FunDecl{Name: "entryA", Implementation: func(ctx context.Context, props map[string]interface{}, payload value.Value) (control.Signal, error) {
		inst := props[machine.PropsInstance].(*machine.Instance)
		pr := props[machine.PropsProcess].(*Process)
		if err := pr.SendInternal(ctx, inst.ID, bID, evPing, []value.Arg{value.CloneArg(value.NewInt(1))}); err != nil {
			return control.None{}, err
		}
		return control.None{}, nil
	}}
	doPong := &program.FunDecl{Name: "doPong", Implementation: func(ctx context.Context, props map[string]interface{}, payload value.Value) (control.Signal, error) {
		inst := props[machine.PropsInstance].(*machine.Instance)
		pr := props[machine.PropsProcess].(*Process)
		inst.Variables[0] = payload
		if err := pr.SendInternal(ctx, inst.ID, bID, evPing, []value.Arg{value.CloneArg(payload)}); err != nil {
			return control.None{}, err
		}
		return control.None{}, nil
	}}
	doStop := &program.FunDecl{Name: "doStop", Implementation: func(ctx context.Context, props map[string]interface{}, payload value.Value) (control.Signal, error) {
		return control.Halt{}, nil
	}}

	sA := program.StateDecl{Name: "sA", Entry: entryA}
	sA.DoList = []program.DoDecl{
		{TriggerEvent: evPong, DoFun: doPong},
		{TriggerEvent: evStop, DoFun: doStop},
	}

	doPing := &program.FunDecl{Name: "doPing", Implementation: func(ctx context.Context, props map[string]interface{}, payload value.Value) (control.Signal, error) {
		inst := props[machine.PropsInstance].(*machine.Instance)
		pr := props[machine.PropsProcess].(*Process)
		n := payload.I
		if n < 10 {
			if err := pr.SendInternal(ctx, inst.ID, aID, evPong, []value.Arg{value.CloneArg(value.NewInt(n + 1))}); err != nil {
				return control.None{}, err
			}
			return control.None{}, nil
		}
		if err := pr.SendInternal(ctx, inst.ID, aID, evStop, nil); err != nil {
			return control.None{}, err
		}
		return control.Halt{}, nil
	}}
	sB := program.StateDecl{Name: "sB"}
	sB.DoList = []program.DoDecl{{TriggerEvent: evPing, DoFun: doPing}}

	prog := &program.Program{
		Events: []program.EventDecl{
			{Name: "PING", PayloadType: intType()},
			{Name: "PONG", PayloadType: intType()},
			{Name: "STOP"},
		},
		Machines: []program.MachineDecl{
			{Name: "A", Vars: []program.VarDecl{{Name: "Counter", Type: intType()}}, States: []program.StateDecl{sA}},
			{Name: "B", States: []program.StateDecl{sB}},
		},
	}
	mustInitialize(t, prog)

	logFun := func(op string, payload value.Value, pr *Process, snap MachineSnapshot) {
		if op == "dequeue" {
			dequeues++
		}
	}
	pr, err := StartProcess("pp1", prog, nil, logFun)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	bID, err = pr.MkMachine(ctx, "B", nil)
	if err != nil {
		t.Fatal(err)
	}
	aID, err = pr.MkMachine(ctx, "A", nil)
	if err != nil {
		t.Fatal(err)
	}

	pr.SetSchedulingPolicy(scheduler.TaskNeutral)
	done := make(chan error, 1)
	go func() { done <- pr.RunProcess(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		aInst, _ := pr.GetMachine(aID)
		bInst, _ := pr.GetMachine(bID)
		if aInst.IsHalted() && bInst.IsHalted() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("ping-pong never reached both machines halted")
		}
		time.Sleep(time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := pr.StopProcess(stopCtx); err != nil {
		t.Fatalf("StopProcess: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunProcess: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("RunProcess never returned after StopProcess")
	}

	aInst, _ := pr.GetMachine(aID)
	if aInst.Variables[0].I != 10 {
		t.Fatalf("got Counter %v, want 10", aInst.Variables[0].I)
	}
	if dequeues != 20 {
		t.Fatalf("got %d dequeues, want 20", dequeues)
	}
}

// TestSendFourthBreachesMaxInstances is the queue-full acceptance
// scenario: an event capped at 3 outstanding instances is sent four
// times without the receiver ever stepping; the fourth Send reports
// QueueFullError through ErrorFunc and the queue length stays at 3.
func TestSendFourthBreachesMaxInstances(t *testing.T) {
	const evE program.EventIndex = 0

	prog := &program.Program{
		Events:   []program.EventDecl{{Name: "E", MaxInstances: 3}},
		Machines: []program.MachineDecl{{Name: "M", States: []program.StateDecl{{Name: "s0"}}}},
	}
	mustInitialize(t, prog)

	var reported []error
	errorFun := func(pr *Process, err error, snap MachineSnapshot) { reported = append(reported, err) }
	pr, err := StartProcess("qf1", prog, errorFun, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	mid, err := pr.MkMachine(ctx, "M", nil)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := pr.Send(ctx, nil, mid, evE, nil); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if err := pr.Send(ctx, nil, mid, evE, nil); err == nil {
		t.Fatal("expected the fourth send to fail")
	} else if _, ok := err.(*QueueFullError); !ok {
		t.Fatalf("got %T, want *QueueFullError", err)
	}
	if len(reported) != 1 {
		t.Fatalf("got %d reported errors, want 1", len(reported))
	}

	inst, err := pr.GetMachine(mid)
	if err != nil {
		t.Fatal(err)
	}
	if inst.QueueLen() != 3 {
		t.Fatalf("got queue length %d, want 3", inst.QueueLen())
	}
}

// TestSendKindMismatchRejectsPayload sends a bool where an int is
// declared: the argument count matches, so MakeTupleFromArray alone
// would accept it, but the Kind check must still reject it.
func TestSendKindMismatchRejectsPayload(t *testing.T) {
	const evE program.EventIndex = 0

	prog := &program.Program{
		Events:   []program.EventDecl{{Name: "E", PayloadType: intType()}},
		Machines: []program.MachineDecl{{Name: "M", States: []program.StateDecl{{Name: "s0"}}}},
	}
	mustInitialize(t, prog)

	var reported []error
	errorFun := func(pr *Process, err error, snap MachineSnapshot) { reported = append(reported, err) }
	pr, err := StartProcess("km1", prog, errorFun, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	mid, err := pr.MkMachine(ctx, "M", nil)
	if err != nil {
		t.Fatal(err)
	}

	err = pr.Send(ctx, nil, mid, evE, []value.Arg{value.CloneArg(value.NewBool(true))})
	if err == nil {
		t.Fatal("expected a bool payload against a declared int to be rejected")
	}
	terr, ok := err.(*TypeMismatchError)
	if !ok {
		t.Fatalf("got %T, want *TypeMismatchError", err)
	}
	if terr.Want != value.Int.String() || terr.Got != value.Bool.String() {
		t.Fatalf("got Want=%q Got=%q, want Want=%q Got=%q", terr.Want, terr.Got, value.Int.String(), value.Bool.String())
	}
	if len(reported) != 1 {
		t.Fatalf("got %d reported errors, want 1", len(reported))
	}

	inst, err := pr.GetMachine(mid)
	if err != nil {
		t.Fatal(err)
	}
	if inst.QueueLen() != 0 {
		t.Fatalf("got queue length %d, want 0: mismatched payload must not enqueue", inst.QueueLen())
	}
}

// TestMkMachineKindMismatchRejectsPayload mirrors the Send case for
// constructor arguments: a bool constructor argument against a
// declared int entry payload must be rejected too.
func TestMkMachineKindMismatchRejectsPayload(t *testing.T) {
	entry := &program.FunDecl{Name: "entry", PayloadType: intType()}
	prog := &program.Program{
		Machines: []program.MachineDecl{{Name: "M", States: []program.StateDecl{{Name: "s0", Entry: entry}}}},
	}
	mustInitialize(t, prog)

	pr, err := StartProcess("km2", prog, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	_, err = pr.MkMachine(ctx, "M", []value.Arg{value.CloneArg(value.NewBool(true))})
	if err == nil {
		t.Fatal("expected a bool constructor argument against a declared int to be rejected")
	}
	if _, ok := err.(*TypeMismatchError); !ok {
		t.Fatalf("got %T, want *TypeMismatchError", err)
	}
}

// TestDeferralDelaysDequeueUntilStateChanges is the deferral
// acceptance scenario: S0 defers E2; E2 then E1 are sent in that
// order, but E1 is dequeued first because E2 stays deferred; once the
// E1 handler transitions to S1 (which doesn't defer E2), E2 dequeues
// next.
func TestDeferralDelaysDequeueUntilStateChanges(t *testing.T) {
	const (
		evE1 program.EventIndex = 0
		evE2 program.EventIndex = 1
	)

	var recordedE2 bool
	doE2 := &program.FunDecl{Implementation: func(ctx context.Context, props map[string]interface{}, payload value.Value) (control.Signal, error) {
		recordedE2 = true
		return control.None{}, nil
	}}

	s0 := program.StateDecl{Name: "s0"}
	s0.DeclareDefers(evE2)
	s0.TransList = []program.TransDecl{{TriggerEvent: evE1, DestState: 1}}

	s1 := program.StateDecl{Name: "s1"}
	s1.DoList = []program.DoDecl{{TriggerEvent: evE2, DoFun: doE2}}

	prog := &program.Program{
		Events:   []program.EventDecl{{Name: "E1"}, {Name: "E2"}},
		Machines: []program.MachineDecl{{Name: "M", States: []program.StateDecl{s0, s1}}},
	}
	mustInitialize(t, prog)

	pr, err := StartProcess("df1", prog, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	mid, err := pr.MkMachine(ctx, "M", nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := pr.Send(ctx, nil, mid, evE2, nil); err != nil {
		t.Fatal(err)
	}
	if err := pr.Send(ctx, nil, mid, evE1, nil); err != nil {
		t.Fatal(err)
	}

	if _, err := pr.StepProcess(ctx); err != nil {
		t.Fatal(err)
	}
	inst, _ := pr.GetMachine(mid)
	if inst.StateID != 1 {
		t.Fatalf("got state %d after first step, want 1 (E1 handled first)", inst.StateID)
	}
	if recordedE2 {
		t.Fatal("E2 must not be handled before E1 transitions away from the deferring state")
	}

	if _, err := pr.StepProcess(ctx); err != nil {
		t.Fatal(err)
	}
	if !recordedE2 {
		t.Fatal("expected E2 to dequeue once s1 (which doesn't defer it) is current")
	}
}

// TestRaisePreemptsAlreadyQueuedEvent is the raise-preempts-queue
// acceptance scenario: in S0, handling E1 raises E2; even though E3
// was already queued ahead of it, E2 is handled (within the same
// StepProcess call) before E3 is ever considered.
func TestRaisePreemptsAlreadyQueuedEvent(t *testing.T) {
	const (
		evE1 program.EventIndex = 0
		evE2 program.EventIndex = 1
		evE3 program.EventIndex = 2
	)

	var order []program.EventIndex
	doE1 := &program.FunDecl{Implementation: func(ctx context.Context, props map[string]interface{}, payload value.Value) (control.Signal, error) {
		order = append(order, evE1)
		return control.Raise{Event: evE2, Payload: value.NewNull()}, nil
	}}
	doE2 := &program.FunDecl{Implementation: func(ctx context.Context, props map[string]interface{}, payload value.Value) (control.Signal, error) {
		order = append(order, evE2)
		return control.None{}, nil
	}}
	doE3 := &program.FunDecl{Implementation: func(ctx context.Context, props map[string]interface{}, payload value.Value) (control.Signal, error) {
		order = append(order, evE3)
		return control.None{}, nil
	}}

	s0 := program.StateDecl{Name: "s0"}
	s0.DoList = []program.DoDecl{
		{TriggerEvent: evE1, DoFun: doE1},
		{TriggerEvent: evE2, DoFun: doE2},
		{TriggerEvent: evE3, DoFun: doE3},
	}

	prog := &program.Program{
		Events:   []program.EventDecl{{Name: "E1"}, {Name: "E2"}, {Name: "E3"}},
		Machines: []program.MachineDecl{{Name: "M", States: []program.StateDecl{s0}}},
	}
	mustInitialize(t, prog)

	pr, err := StartProcess("rp1", prog, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	mid, err := pr.MkMachine(ctx, "M", nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := pr.Send(ctx, nil, mid, evE1, nil); err != nil {
		t.Fatal(err)
	}
	if err := pr.Send(ctx, nil, mid, evE3, nil); err != nil {
		t.Fatal(err)
	}

	if _, err := pr.StepProcess(ctx); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != evE1 || order[1] != evE2 {
		t.Fatalf("got order %v, want [E1 E2] — the raise must preempt queued E3", order)
	}

	if _, err := pr.StepProcess(ctx); err != nil {
		t.Fatal(err)
	}
	if len(order) != 3 || order[2] != evE3 {
		t.Fatalf("got order %v, want E3 handled last", order)
	}
}

// TestGotoCarriesPayloadIntoEntry is the goto-with-payload acceptance
// scenario: a handler executes goto S2 with v=42; exit(S0) runs, then
// entry(S2) runs with payload 42, observed through both a direct
// capture and the log callback's "goto" probe.
func TestGotoCarriesPayloadIntoEntry(t *testing.T) {
	const evGo program.EventIndex = 0

	var exitRan bool
	var gotPayload value.Value
	var sawGotoLog bool

	s0 := program.StateDecl{Name: "s0", Exit: &program.FunDecl{Implementation: func(ctx context.Context, props map[string]interface{}, payload value.Value) (control.Signal, error) {
		exitRan = true
		return control.None{}, nil
	}}}
	s0.DoList = []program.DoDecl{{TriggerEvent: evGo, DoFun: &program.FunDecl{Implementation: func(ctx context.Context, props map[string]interface{}, payload value.Value) (control.Signal, error) {
		return control.Goto{State: 1, Payload: value.NewInt(42)}, nil
	}}}}

	s1 := program.StateDecl{Name: "s2", Entry: &program.FunDecl{Implementation: func(ctx context.Context, props map[string]interface{}, payload value.Value) (control.Signal, error) {
		gotPayload = payload
		return control.None{}, nil
	}}}

	prog := &program.Program{
		Events:   []program.EventDecl{{Name: "GO", PayloadType: intType()}},
		Machines: []program.MachineDecl{{Name: "M", States: []program.StateDecl{s0, s1}}},
	}
	mustInitialize(t, prog)

	logFun := func(op string, payload value.Value, pr *Process, snap MachineSnapshot) {
		if op == "goto" && payload.I == 42 {
			sawGotoLog = true
		}
	}
	pr, err := StartProcess("gp1", prog, nil, logFun)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	mid, err := pr.MkMachine(ctx, "M", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := pr.Send(ctx, nil, mid, evGo, []value.Arg{value.CloneArg(value.NewInt(0))}); err != nil {
		t.Fatal(err)
	}

	if _, err := pr.StepProcess(ctx); err != nil {
		t.Fatal(err)
	}
	if !exitRan {
		t.Fatal("expected s0's exit to run before entering s2")
	}
	if gotPayload.I != 42 {
		t.Fatalf("got entry payload %v, want 42", gotPayload.I)
	}
	if !sawGotoLog {
		t.Fatal("expected a \"goto\" log entry carrying payload 42")
	}
}

// TestCooperativeShutdownStopsBothWorkers exercises the full process
// lifecycle under the cooperative policy: two RunProcess workers with
// nothing runnable both park in WaitForWork; StopProcess wakes both
// and they return.
func TestCooperativeShutdownStopsBothWorkers(t *testing.T) {
	prog := &program.Program{Machines: []program.MachineDecl{{Name: "M", States: []program.StateDecl{{Name: "s0"}}}}}
	mustInitialize(t, prog)

	pr, err := StartProcess("cs1", prog, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	pr.SetSchedulingPolicy(scheduler.Cooperative)

	ctx := context.Background()
	if _, err := pr.MkMachine(ctx, "M", nil); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 2)
	go func() { done <- pr.RunProcess(ctx) }()
	go func() { done <- pr.RunProcess(ctx) }()

	deadline := time.Now().Add(time.Second)
	for pr.sched.WorkAvailable.Waiters() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := pr.StopProcess(stopCtx); err != nil {
		t.Fatalf("StopProcess: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("RunProcess: %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("a RunProcess worker never returned")
		}
	}
}
