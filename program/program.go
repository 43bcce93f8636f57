// Package program holds the immutable declaration tree a compiled P
// program is loaded into.  Nothing in this package executes a
// program; it only describes one.  Grounded on core/spec.go's
// "immutable tree, Initialize assigns indices" shape.
package program

import (
	"context"

	"github.com/p-org/prt-go/control"
	"github.com/p-org/prt-go/value"
)

// EventIndex, StateIndex, MachineIndex, ForeignTypeIndex are all plain
// declaration-order indices into their owning slice: each declared
// node is identified by a stable integer index within its parent.
type EventIndex = int
type StateIndex = int
type MachineIndex = int
type ForeignTypeIndex = int

// NoEvent is the sentinel "no event" index, mirrored from value.NoEvent
// so program code doesn't need to import value just for the constant.
const NoEvent = value.NoEvent

// HandlerFunc is the shape of a compiled FunDecl implementation:
// native Go code receiving the current bindings-in-scope (receiver
// machine's variables are reached through the *machine.Instance the
// caller passes in props, not through this signature directly, to
// avoid a program -> machine import cycle) and the event payload, and
// returning a control.Signal.
//
// props carries side-channel context (the stepping instance and the
// process) as interface{} entries, exactly the
// way core/actions.go's StepProps threads side information through to
// an Action without widening every signature in the call chain.
type HandlerFunc func(ctx context.Context, props map[string]interface{}, payload value.Value) (control.Signal, error)

// Type describes the shape a Value must have: used for default
// construction (Default) and for the TypeMismatch check at
// enqueue time.
type Type struct {
	Kind value.Kind

	// Fields is used when Kind is Tuple or NamedTuple.
	Fields []Field

	// Elem is used when Kind is Sequence or Set.
	Elem *Type

	// MapKey/MapElem are used when Kind is Map.
	MapKey  *Type
	MapElem *Type

	// ForeignType is used when Kind is Foreign.
	ForeignType ForeignTypeIndex
}

// Field is one element of a Tuple or NamedTuple type.
type Field struct {
	Name string // empty for a plain (unnamed) Tuple field
	Type Type
}

// EventDecl declares an event: its name, optional payload shape, and
// an optional cap on how many undelivered instances of it may sit in
// any one machine's queue at once.
type EventDecl struct {
	DeclIndex    EventIndex
	Name         string
	PayloadType  Type
	MaxInstances int // 0 means unbounded
}

// ForeignTypeDecl declares a host-supplied opaque type: the host
// supplies the callbacks, named by declIndex at Initialize time.
type ForeignTypeDecl struct {
	DeclIndex   ForeignTypeIndex
	Name        string
	Clone       func(interface{}) interface{}
	Free        func(interface{})
	Equals      func(a, b interface{}) bool
	Hash        func(interface{}) uint64
	MakeDefault func() interface{}
}

// FunDecl declares a compiled function: its arity, local-variable
// budget, and the native or scripted implementation behind it.
type FunDecl struct {
	Name           string
	Implementation HandlerFunc
	NumParameters  int
	MaxNumLocals   int
	PayloadType    Type
	LocalsType     Type
	Receives       []ReceiveDecl
}

// ReceiveDecl declares a blocking receive: the set of events it can
// wake on and which FunDecl handles each.
type ReceiveDecl struct {
	CaseSet EventSet
	Cases   []ReceiveCase
}

// ReceiveCase pairs a trigger event with the FunDecl (by index within
// the owning machine's Funs) that handles it while the instance is
// blocked in this receive.
type ReceiveCase struct {
	TriggerEvent EventIndex
	Fun          int
}

// TransDecl declares an event handler that changes state, running
// exit/transFun/entry around the change.
type TransDecl struct {
	OwnerState   StateIndex
	TriggerEvent EventIndex
	DestState    StateIndex
	TransFun     *FunDecl // optional
}

// DoDecl declares an event handler that does not change state.
type DoDecl struct {
	OwnerState   StateIndex
	TriggerEvent EventIndex
	DoFun        *FunDecl
}

// StateDecl declares one state of a machine: its entry/exit handlers,
// the events it defers or handles by transition or do-block, and the
// precomputed EventSets Initialize derives from those lists.
type StateDecl struct {
	Index StateIndex
	Name  string

	Entry *FunDecl
	Exit  *FunDecl

	Defers      EventSet
	Transitions EventSet
	Dos         EventSet

	TransList []TransDecl
	DoList    []DoDecl

	// explicitDefers accumulates defer declarations made via
	// DeclareDefers before Initialize folds them into Defers.
	explicitDefers []EventIndex
}

// VarDecl describes one of a machine's declared variables, used for
// default-initialization at MkMachine time.
type VarDecl struct {
	Name string
	Type Type
}

// MachineDecl declares a machine type: its variables, states,
// functions, initial state, and queue bound.
type MachineDecl struct {
	DeclIndex      MachineIndex
	Name           string
	Vars           []VarDecl
	States         []StateDecl
	Funs           []FunDecl
	InitStateIndex StateIndex
	MaxQueueSize   int // 0 means unbounded
}

// Program is the read-only declaration tree for a compiled P program.
// It is built once (by hand, or via LoadFile/LoadBytes from YAML — see loader.go)
// and then passed to Initialize before any machine runs.
type Program struct {
	Events       []EventDecl
	Machines     []MachineDecl
	ForeignTypes []ForeignTypeDecl

	// LinkMap resolves, per creator machine index and per symbolic
	// child name, the symbolic name the child will carry.
	LinkMap map[MachineIndex]map[string]string

	// MachineDefMap resolves a symbolic machine name to the concrete
	// MachineDecl index used to look up states and functions.
	MachineDefMap map[string]MachineIndex

	initialized bool
}

// EventByName looks up an event declaration by name.  Returns -1 if
// not found.
func (p *Program) EventByName(name string) EventIndex {
	for i, e := range p.Events {
		if e.Name == name {
			return i
		}
	}
	return NoEvent
}

// MachineByName resolves a symbolic name through MachineDefMap.
func (p *Program) MachineByName(name string) (MachineIndex, bool) {
	idx, have := p.MachineDefMap[name]
	return idx, have
}
