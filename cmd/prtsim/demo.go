package main

import (
	"context"

	"github.com/p-org/prt-go/control"
	"github.com/p-org/prt-go/machine"
	"github.com/p-org/prt-go/process"
	"github.com/p-org/prt-go/program"
	"github.com/p-org/prt-go/value"
)

// Event indices for the built-in ping-pong demo program, the same
// scenario process_test.go exercises in-process, wired here to real
// external transports so it can be driven over MQTT or a websocket.
const (
	evPing program.EventIndex = 0
	evPong program.EventIndex = 1
	evStop program.EventIndex = 2
	evTick program.EventIndex = 3
)

// demoProgram builds the ping-pong program natively rather than from
// a YAML fixture, since every handler here needs to reach its own
// instance and the owning Process through props -- exactly the shape
// program/loader.go's Funcs table expects, just supplied as Go
// closures instead of named lookups.
func demoProgram() *program.Program {
	intType := program.Type{Kind: value.Int}

	entryA := &program.FunDecl{Name: "entryA", Implementation: func(ctx context.Context, props map[string]interface{}, payload value.Value) (control.Signal, error) {
		inst := props[machine.PropsInstance].(*machine.Instance)
		pr := props[machine.PropsProcess].(*process.Process)
		bID := value.MID{ProcessGUID: inst.ID.ProcessGUID, Index: 0, SymbolicName: "B"}
		if err := pr.SendInternal(ctx, inst.ID, bID, evPing, []value.Arg{value.CloneArg(value.NewInt(1))}); err != nil {
			return control.None{}, err
		}
		return control.None{}, nil
	}}

	doPong := &program.FunDecl{Name: "doPong", Implementation: func(ctx context.Context, props map[string]interface{}, payload value.Value) (control.Signal, error) {
		inst := props[machine.PropsInstance].(*machine.Instance)
		pr := props[machine.PropsProcess].(*process.Process)
		inst.Variables[0] = payload
		bID := value.MID{ProcessGUID: inst.ID.ProcessGUID, Index: 0, SymbolicName: "B"}
		if err := pr.SendInternal(ctx, inst.ID, bID, evPing, []value.Arg{value.CloneArg(payload)}); err != nil {
			return control.None{}, err
		}
		return control.None{}, nil
	}}

	doStop := &program.FunDecl{Name: "doStop", Implementation: func(ctx context.Context, props map[string]interface{}, payload value.Value) (control.Signal, error) {
		return control.Halt{}, nil
	}}
	doTick := &program.FunDecl{Name: "doTick", Implementation: func(ctx context.Context, props map[string]interface{}, payload value.Value) (control.Signal, error) {
		return control.None{}, nil
	}}

	sA := program.StateDecl{Name: "sA", Entry: entryA}
	sA.DoList = []program.DoDecl{
		{TriggerEvent: evPong, DoFun: doPong},
		{TriggerEvent: evStop, DoFun: doStop},
		{TriggerEvent: evTick, DoFun: doTick},
	}

	doPing := &program.FunDecl{Name: "doPing", Implementation: func(ctx context.Context, props map[string]interface{}, payload value.Value) (control.Signal, error) {
		inst := props[machine.PropsInstance].(*machine.Instance)
		pr := props[machine.PropsProcess].(*process.Process)
		aID := value.MID{ProcessGUID: inst.ID.ProcessGUID, Index: 1, SymbolicName: "A"}
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

	return &program.Program{
		Events: []program.EventDecl{
			{Name: "PING", PayloadType: intType},
			{Name: "PONG", PayloadType: intType},
			{Name: "STOP"},
			{Name: "TICK"},
		},
		Machines: []program.MachineDecl{
			{Name: "A", Vars: []program.VarDecl{{Name: "Counter", Type: intType}}, States: []program.StateDecl{sA}},
			{Name: "B", States: []program.StateDecl{sB}},
		},
	}
}
