package machine

import (
	"testing"

	"github.com/p-org/prt-go/program"
	"github.com/p-org/prt-go/value"
)

func pingPongDecl() *program.MachineDecl {
	events := 2 // PING=0, PONG=1
	s0 := program.StateDecl{Index: 0, Name: "sPing"}
	s0.Defers = program.NewEventSet(events)
	s0.Transitions = program.NewEventSet(events)
	s0.Dos = program.NewEventSet(events)
	s0.Defers = s0.Defers.Add(1) // defers PONG while in sPing

	return &program.MachineDecl{
		Name:           "A",
		Vars:           []program.VarDecl{{Name: "counter", Type: program.Type{Kind: value.Int}}},
		States:         []program.StateDecl{s0},
		InitStateIndex: 0,
		MaxQueueSize:   0,
	}
}

func newTestInstance() *Instance {
	decl := pingPongDecl()
	return New(value.MID{ProcessGUID: "p", Index: 1}, "a", decl, 0, nil)
}

func TestNewInitializesVariablesToDefault(t *testing.T) {
	inst := newTestInstance()
	if len(inst.Variables) != 1 {
		t.Fatalf("got %d variables, want 1", len(inst.Variables))
	}
	if inst.Variables[0].Kind != value.Int || inst.Variables[0].I != 0 {
		t.Fatalf("got %v, want default int 0", inst.Variables[0])
	}
	if inst.Status != Fresh {
		t.Fatalf("got status %v, want Fresh", inst.Status)
	}
}

func TestEnqueueDequeueFIFO(t *testing.T) {
	inst := newTestInstance()
	if _, err := inst.Enqueue(0, value.NewInt(1), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := inst.Enqueue(0, value.NewInt(2), 0); err != nil {
		t.Fatal(err)
	}
	e, ok := inst.Dequeue()
	if !ok || e.Payload.I != 1 {
		t.Fatalf("got %v, %v, want first enqueued entry", e, ok)
	}
	e, ok = inst.Dequeue()
	if !ok || e.Payload.I != 2 {
		t.Fatalf("got %v, %v, want second enqueued entry", e, ok)
	}
}

func TestEnqueueAfterHaltErrors(t *testing.T) {
	inst := newTestInstance()
	inst.Halt()
	if _, err := inst.Enqueue(0, value.NewNull(), 0); err != ErrHalted {
		t.Fatalf("got %v, want ErrHalted", err)
	}
}

func TestEnqueueRespectsEventMaxInstances(t *testing.T) {
	inst := newTestInstance()
	for i := 0; i < 3; i++ {
		if _, err := inst.Enqueue(0, value.NewNull(), 3); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if _, err := inst.Enqueue(0, value.NewNull(), 3); err != ErrQueueFull {
		t.Fatalf("got %v, want ErrQueueFull on the fourth enqueue", err)
	}
	if got := inst.QueueLen(); got != 3 {
		t.Fatalf("got queue length %d, want 3", got)
	}
}

func TestDequeueDefersEventInCurrentState(t *testing.T) {
	inst := newTestInstance()
	// PONG (1) is deferred in sPing; PING (0) is not.
	if _, err := inst.Enqueue(1, value.NewNull(), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := inst.Enqueue(0, value.NewNull(), 0); err != nil {
		t.Fatal(err)
	}
	e, ok := inst.Dequeue()
	if !ok || e.Event != 0 {
		t.Fatalf("got event %v, ok %v, want PING dequeued first despite arriving second", e, ok)
	}
	// PONG is still deferred; nothing else admissible.
	if _, ok := inst.Dequeue(); ok {
		t.Fatal("expected dequeue to report idle with only a deferred event left")
	}
}

func TestDequeueHonorsReceiveCaseOverDefer(t *testing.T) {
	inst := newTestInstance()
	if _, err := inst.Enqueue(1, value.NewNull(), 0); err != nil {
		t.Fatal(err)
	}
	cases := program.NewEventSet(2).Add(1)
	inst.ReceiveCase = &ReceiveWaiter{CaseSet: cases}
	e, ok := inst.Dequeue()
	if !ok || e.Event != 1 {
		t.Fatalf("got %v, %v, want the receive case to admit the deferred event", e, ok)
	}
}

func TestTryAcquireRunningIsExclusive(t *testing.T) {
	inst := newTestInstance()
	if !inst.TryAcquireRunning() {
		t.Fatal("expected first acquire to succeed")
	}
	if inst.TryAcquireRunning() {
		t.Fatal("expected second concurrent acquire to fail")
	}
	inst.ReleaseRunning(true)
	if inst.Status != Idle {
		t.Fatalf("got status %v, want Idle after releasing with idle=true", inst.Status)
	}
	if !inst.TryAcquireRunning() {
		t.Fatal("expected acquire to succeed again after release")
	}
}

func TestEnterStateRefreshesDeferredSet(t *testing.T) {
	inst := newTestInstance()
	s1 := program.StateDecl{Index: 1, Name: "sPong", Defers: program.NewEventSet(2)}
	inst.decl.States = append(inst.decl.States, s1)
	inst.EnterState(1)
	if inst.DeferredSet.Has(1) {
		t.Fatal("expected sPong's (empty) defer set, not sPing's")
	}
}
