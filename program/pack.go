package program

import (
	"fmt"

	"github.com/p-org/prt-go/value"
)

// MakeTupleFromArray repackages a variadic ingress argument list (the
// values MkMachine/Send/handler-call plumbing resolved from an
// []value.Arg) into the single payload value t declares: a Tuple or
// NamedTuple of len(vs) fields, or — when t isn't a tuple kind — the
// lone value vs must carry.
//
// Lives here rather than on value.Value because it needs program.Type
// to know the target shape, and value cannot import program without a
// cycle.
func MakeTupleFromArray(t Type, vs []value.Value) (value.Value, error) {
	switch t.Kind {
	case value.Tuple:
		if len(vs) != len(t.Fields) {
			return value.Value{}, fmt.Errorf("program: got %d arguments, want %d for tuple payload", len(vs), len(t.Fields))
		}
		return value.NewTuple(vs), nil
	case value.NamedTuple:
		if len(vs) != len(t.Fields) {
			return value.Value{}, fmt.Errorf("program: got %d arguments, want %d for named-tuple payload", len(vs), len(t.Fields))
		}
		names := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			names[i] = f.Name
		}
		return value.NewNamedTuple(names, vs), nil
	case value.Null:
		if len(vs) != 0 {
			return value.Value{}, fmt.Errorf("program: got %d arguments, want none for a payload-less event", len(vs))
		}
		return value.NewNull(), nil
	default:
		if len(vs) != 1 {
			return value.Value{}, fmt.Errorf("program: got %d arguments, want exactly 1 for a non-tuple payload", len(vs))
		}
		return vs[0], nil
	}
}
