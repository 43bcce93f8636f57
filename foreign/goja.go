package foreign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/p-org/prt-go/control"
	"github.com/p-org/prt-go/program"
	"github.com/p-org/prt-go/value"
)

// InterruptedMessage is the error text a compiled handler returns when
// a scripted function runs past its deadline, mirrored from
// interpreters/goja/goja.go.
const InterruptedMessage = "RuntimeError: timeout"

// Interrupted is returned when a scripted handler is interrupted.
var Interrupted = errors.New(InterruptedMessage)

// ScriptEnv names the events and states a compiled script can refer
// to by name (scripts are compiled before a Program exists with final
// indices resolved for its own function bodies, so they address
// events/states symbolically; ScriptEnv closes over the owning
// program to translate names back to indices at call time).
type ScriptEnv struct {
	EventByName func(name string) (program.EventIndex, error)
	StateByName func(name string) (program.StateIndex, error)
}

// ScriptInterpreter compiles P function bodies written in ECMAScript
// (via goja, github.com/dop251/goja — the same library
// interpreters/goja wraps) into program.HandlerFunc values.
//
// A script body is a JS function of the shape:
//
//	function(payload, vars) {
//	  vars.counter = vars.counter + 1;
//	  return {signal: "none"};
//	}
//
// The returned object's "signal" field selects a control.Signal:
// "none", "goto" (with "state" and optional "payload"), "raise" (with
// "event" and optional "payload"), or "pop".  vars is a live,
// JS-visible view of the stepping machine's variables; mutations are
// copied back after the call returns (goja objects aren't safe to
// retain past the call, so HandlerFunc copies out immediately).
type ScriptInterpreter struct {
	Env ScriptEnv

	// Timeout bounds a single script execution; zero means no
	// timeout.  Mirrors the Interrupted mechanism in
	// interpreters/goja/goja.go.
	Timeout time.Duration
}

// NewScriptInterpreter makes a ScriptInterpreter bound to env.
func NewScriptInterpreter(env ScriptEnv) *ScriptInterpreter {
	return &ScriptInterpreter{Env: env}
}

// Compile parses source into a program.HandlerFunc.  Variables is the
// machine's live variable slice (by name); Compile returns a function
// that reads/writes through varsGet/varsSet so a freshly stepped
// instance's current bindings are always what the script sees.
func (si *ScriptInterpreter) Compile(source string, varsGet func() map[string]value.Value, varsSet func(map[string]value.Value)) (program.HandlerFunc, error) {
	prog, err := goja.Compile("<fundecl>", "("+source+")", true)
	if err != nil {
		return nil, fmt.Errorf("foreign: goja compile: %w", err)
	}

	return func(ctx context.Context, props map[string]interface{}, payload value.Value) (control.Signal, error) {
		vm := goja.New()

		if si.Timeout > 0 {
			timer := time.AfterFunc(si.Timeout, func() {
				vm.Interrupt(InterruptedMessage)
			})
			defer timer.Stop()
		}

		fnVal, err := vm.RunProgram(prog)
		if err != nil {
			return nil, interruptedOr(err)
		}
		fn, ok := goja.AssertFunction(fnVal)
		if !ok {
			return nil, errors.New("foreign: script did not evaluate to a function")
		}

		jsVars := vm.NewObject()
		for name, v := range varsGet() {
			jsVars.Set(name, toJS(vm, v))
		}

		result, err := fn(goja.Undefined(), toJS(vm, payload), jsVars)
		if err != nil {
			return nil, interruptedOr(err)
		}

		updated := map[string]value.Value{}
		for _, name := range jsVars.Keys() {
			updated[name] = fromJS(jsVars.Get(name))
		}
		varsSet(updated)

		return si.toSignal(result)
	}, nil
}

func interruptedOr(err error) error {
	if ir, ok := err.(*goja.InterruptedError); ok {
		_ = ir
		return Interrupted
	}
	return err
}

func (si *ScriptInterpreter) toSignal(result goja.Value) (control.Signal, error) {
	obj := result.ToObject(nil)
	if obj == nil {
		return control.None{}, nil
	}
	kind, _ := obj.Get("signal").Export().(string)
	switch kind {
	case "", "none":
		return control.None{}, nil
	case "goto":
		name, _ := obj.Get("state").Export().(string)
		idx, err := si.Env.StateByName(name)
		if err != nil {
			return nil, err
		}
		payload := fromJS(obj.Get("payload"))
		return control.Goto{State: idx, Payload: payload}, nil
	case "raise":
		name, _ := obj.Get("event").Export().(string)
		idx, err := si.Env.EventByName(name)
		if err != nil {
			return nil, err
		}
		payload := fromJS(obj.Get("payload"))
		return control.Raise{Event: idx, Payload: payload}, nil
	case "pop":
		return control.Pop{}, nil
	default:
		return nil, fmt.Errorf("foreign: unknown script signal %q", kind)
	}
}

// toJS converts a value.Value to the closest goja representation: the
// scalar kinds map directly; tuples, named tuples (field names
// dropped) and sequences become JS arrays, and maps become plain JS
// objects, so script bodies can use ordinary property/index syntax.
// Sets, foreign values and any other kind become undefined.
func toJS(vm *goja.Runtime, v value.Value) goja.Value {
	switch v.Kind {
	case value.Null:
		return goja.Null()
	case value.Bool:
		return vm.ToValue(v.B)
	case value.Int:
		return vm.ToValue(v.I)
	case value.Float:
		return vm.ToValue(v.F)
	case value.String:
		return vm.ToValue(v.S)
	case value.MachineID:
		return vm.ToValue(v.M.String())
	case value.EventRef:
		return vm.ToValue(v.E)
	case value.Tuple, value.NamedTuple:
		out := make([]interface{}, len(v.Tuple))
		for i, x := range v.Tuple {
			out[i] = toJS(vm, x).Export()
		}
		return vm.ToValue(out)
	case value.Sequence:
		out := make([]interface{}, len(v.Seq))
		for i, x := range v.Seq {
			out[i] = toJS(vm, x).Export()
		}
		return vm.ToValue(out)
	case value.Map:
		out := map[string]interface{}{}
		for i, k := range v.MapKeys {
			out[fmt.Sprintf("%v", canonKey(k))] = toJS(vm, v.MapVals[i]).Export()
		}
		return vm.ToValue(out)
	default:
		return goja.Undefined()
	}
}

func canonKey(v value.Value) interface{} {
	switch v.Kind {
	case value.String:
		return v.S
	case value.Int:
		return v.I
	default:
		return v.S
	}
}

// fromJS converts a goja.Value back to a value.Value, used to read a
// script's return object and its mutated vars back into the runtime.
func fromJS(v goja.Value) value.Value {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return value.NewNull()
	}
	switch ex := v.Export().(type) {
	case bool:
		return value.NewBool(ex)
	case int64:
		return value.NewInt(ex)
	case int:
		return value.NewInt(int64(ex))
	case float64:
		if float64(int64(ex)) == ex {
			return value.NewInt(int64(ex))
		}
		return value.NewFloat(ex)
	case string:
		return value.NewString(ex)
	case []interface{}:
		vs := make([]value.Value, len(ex))
		for i, x := range ex {
			vs[i] = fromJSExported(x)
		}
		return value.NewSequence(vs)
	case map[string]interface{}:
		keys := make([]value.Value, 0, len(ex))
		vals := make([]value.Value, 0, len(ex))
		for k, x := range ex {
			keys = append(keys, value.NewString(k))
			vals = append(vals, fromJSExported(x))
		}
		return value.NewMap(keys, vals)
	default:
		return value.NewNull()
	}
}

func fromJSExported(x interface{}) value.Value {
	switch ex := x.(type) {
	case bool:
		return value.NewBool(ex)
	case int64:
		return value.NewInt(ex)
	case float64:
		if float64(int64(ex)) == ex {
			return value.NewInt(int64(ex))
		}
		return value.NewFloat(ex)
	case string:
		return value.NewString(ex)
	case []interface{}:
		vs := make([]value.Value, len(ex))
		for i, y := range ex {
			vs[i] = fromJSExported(y)
		}
		return value.NewSequence(vs)
	case map[string]interface{}:
		keys := make([]value.Value, 0, len(ex))
		vals := make([]value.Value, 0, len(ex))
		for k, y := range ex {
			keys = append(keys, value.NewString(k))
			vals = append(vals, fromJSExported(y))
		}
		return value.NewMap(keys, vals)
	default:
		return value.NewNull()
	}
}
