package foreign

import (
	"context"
	"testing"

	"github.com/p-org/prt-go/control"
	"github.com/p-org/prt-go/program"
	"github.com/p-org/prt-go/value"
)

func testEnv() ScriptEnv {
	events := map[string]program.EventIndex{"pong": 1}
	states := map[string]program.StateIndex{"sPong": 1}
	return ScriptEnv{
		EventByName: func(name string) (program.EventIndex, error) {
			if idx, ok := events[name]; ok {
				return idx, nil
			}
			return 0, context.DeadlineExceeded
		},
		StateByName: func(name string) (program.StateIndex, error) {
			if idx, ok := states[name]; ok {
				return idx, nil
			}
			return 0, context.DeadlineExceeded
		},
	}
}

func TestScriptCompileNoneSignal(t *testing.T) {
	si := NewScriptInterpreter(testEnv())
	fn, err := si.Compile(`function(payload, vars) { return {signal: "none"}; }`, func() map[string]value.Value {
		return nil
	}, func(map[string]value.Value) {})
	if err != nil {
		t.Fatal(err)
	}
	sig, err := fn(context.Background(), nil, value.NewNull())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := sig.(control.None); !ok {
		t.Fatalf("got %T, want control.None", sig)
	}
}

func TestScriptCompileGotoSignal(t *testing.T) {
	si := NewScriptInterpreter(testEnv())
	fn, err := si.Compile(`function(payload, vars) { return {signal: "goto", state: "sPong"}; }`, func() map[string]value.Value {
		return nil
	}, func(map[string]value.Value) {})
	if err != nil {
		t.Fatal(err)
	}
	sig, err := fn(context.Background(), nil, value.NewNull())
	if err != nil {
		t.Fatal(err)
	}
	g, ok := sig.(control.Goto)
	if !ok {
		t.Fatalf("got %T, want control.Goto", sig)
	}
	if g.State != 1 {
		t.Fatalf("got state %d, want 1", g.State)
	}
}

func TestScriptCompileMutatesVars(t *testing.T) {
	si := NewScriptInterpreter(testEnv())
	fn, err := si.Compile(`function(payload, vars) { vars.counter = vars.counter + 1; return {signal: "none"}; }`,
		func() map[string]value.Value {
			return map[string]value.Value{"counter": value.NewInt(41)}
		},
		func(updated map[string]value.Value) {
			if updated["counter"].I != 42 {
				t.Fatalf("got counter %v, want 42", updated["counter"])
			}
		})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fn(context.Background(), nil, value.NewNull()); err != nil {
		t.Fatal(err)
	}
}

func TestScriptCompileUnknownEventErrors(t *testing.T) {
	si := NewScriptInterpreter(testEnv())
	fn, err := si.Compile(`function(payload, vars) { return {signal: "raise", event: "nope"}; }`, func() map[string]value.Value {
		return nil
	}, func(map[string]value.Value) {})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fn(context.Background(), nil, value.NewNull()); err == nil {
		t.Fatal("expected an error for an unresolvable event name")
	}
}
