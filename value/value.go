// Package value implements the tagged value system that P machine
// instances use for variables, event payloads, and function locals.
//
// A Value is a small tagged union, deliberately not an interface, so
// that Clone/Free/Equals can be total functions instead of relying on
// every concrete type implementing them correctly.  P's own C/C++
// backends use a tagged struct (prt_value) for exactly this reason.
package value

import (
	"fmt"
	"sort"
)

// Kind discriminates the variants of a Value.
type Kind int

const (
	Null Kind = iota
	Bool
	Int
	Float
	String
	MachineID
	EventRef
	Tuple
	NamedTuple
	Sequence
	Set
	Map
	Foreign
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case MachineID:
		return "machine"
	case EventRef:
		return "event"
	case Tuple:
		return "tuple"
	case NamedTuple:
		return "named-tuple"
	case Sequence:
		return "seq"
	case Set:
		return "set"
	case Map:
		return "map"
	case Foreign:
		return "foreign"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MID is a machine-id value: a (process GUID, machine index) pair plus
// the symbolic name the creator gave this machine.
type MID struct {
	ProcessGUID  string
	Index        uint32
	SymbolicName string
}

// IsNull reports whether this is the distinguished null machine id,
// used as the default value for machine-id typed variables.
func (m MID) IsNull() bool {
	return m.ProcessGUID == "" && m.Index == 0
}

func (m MID) Equals(o MID) bool {
	return m.ProcessGUID == o.ProcessGUID && m.Index == o.Index
}

func (m MID) String() string {
	if m.IsNull() {
		return "<null-machine>"
	}
	if m.SymbolicName != "" {
		return fmt.Sprintf("%s#%d", m.SymbolicName, m.Index)
	}
	return fmt.Sprintf("machine#%d", m.Index)
}

// ForeignValue wraps a host-supplied opaque pointer together with the
// declaration index of the ForeignTypeDecl that owns its clone/free/
// equals/hash/makeDefault callbacks.  The runtime never inspects Data;
// it only ever routes Data through those callbacks.
type ForeignValue struct {
	TypeIndex int
	Data      interface{}
}

// Value is a tagged union over the variants C1 requires.  Exactly one
// group of fields is meaningful for a given Kind; the rest are zero.
type Value struct {
	Kind Kind

	B bool
	I int64
	F float64
	S string
	M MID
	E int // event declaration index; -1 means "no event"

	// Tuple and NamedTuple share storage: Tuple holds positional
	// values, Names (parallel, same length, only used when Kind is
	// NamedTuple) holds field names.
	Tuple []Value
	Names []string

	Seq []Value

	// Set and Map members are kept in slices and matched with Equals;
	// MapVals[i] is the value stored under MapKeys[i].
	SetKeys []Value
	MapKeys []Value
	MapVals []Value

	Foreign *ForeignValue
}

// NoEvent is the event-ref value of a null event reference.
const NoEvent = -1

// NewNull returns the null value.
func NewNull() Value { return Value{Kind: Null} }

func NewBool(b bool) Value     { return Value{Kind: Bool, B: b} }
func NewInt(i int64) Value     { return Value{Kind: Int, I: i} }
func NewFloat(f float64) Value { return Value{Kind: Float, F: f} }
func NewString(s string) Value { return Value{Kind: String, S: s} }
func NewMachineID(m MID) Value { return Value{Kind: MachineID, M: m} }
func NewEventRef(e int) Value  { return Value{Kind: EventRef, E: e} }

func NewTuple(vs []Value) Value {
	return Value{Kind: Tuple, Tuple: append([]Value(nil), vs...)}
}

func NewNamedTuple(names []string, vs []Value) Value {
	return Value{
		Kind:  NamedTuple,
		Names: append([]string(nil), names...),
		Tuple: append([]Value(nil), vs...),
	}
}

func NewSequence(vs []Value) Value {
	return Value{Kind: Sequence, Seq: append([]Value(nil), vs...)}
}

func NewSet(vs []Value) Value {
	v := Value{Kind: Set}
	for _, x := range vs {
		v.SetKeys = insertUnique(v.SetKeys, x)
	}
	return v
}

func NewMap(keys, vals []Value) Value {
	v := Value{Kind: Map}
	for i := range keys {
		v.MapKeys = append(v.MapKeys, Clone(keys[i]))
		v.MapVals = append(v.MapVals, Clone(vals[i]))
	}
	return v
}

func NewForeign(typeIndex int, data interface{}) Value {
	return Value{Kind: Foreign, Foreign: &ForeignValue{TypeIndex: typeIndex, Data: data}}
}

// key renders a canonical string key for a value; canon sorts these
// keys to render Set and Map members order-independently.  It is not
// exposed and plays no part in membership tests: callers needing
// structural comparison should use Equals.
func key(v Value) string {
	return fmt.Sprintf("%s:%v", v.Kind, canon(v))
}

func canon(v Value) interface{} {
	switch v.Kind {
	case Null:
		return nil
	case Bool:
		return v.B
	case Int:
		return v.I
	case Float:
		return v.F
	case String:
		return v.S
	case MachineID:
		return v.M
	case EventRef:
		return v.E
	case Tuple, NamedTuple:
		acc := make([]interface{}, len(v.Tuple))
		for i, x := range v.Tuple {
			acc[i] = canon(x)
		}
		return acc
	case Sequence:
		acc := make([]interface{}, len(v.Seq))
		for i, x := range v.Seq {
			acc[i] = canon(x)
		}
		return acc
	case Set:
		keys := make([]string, len(v.SetKeys))
		for i, x := range v.SetKeys {
			keys[i] = key(x)
		}
		sort.Strings(keys)
		return keys
	case Map:
		keys := make([]string, len(v.MapKeys))
		for i, x := range v.MapKeys {
			keys[i] = key(x)
		}
		sort.Strings(keys)
		return keys
	default:
		return v.Foreign
	}
}

func insertUnique(set []Value, v Value) []Value {
	for _, x := range set {
		if Equals(x, v) {
			return set
		}
	}
	return append(set, Clone(v))
}
