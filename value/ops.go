package value

import "errors"

// Clone makes a deep, independent copy of v.  The only aliasing that
// can occur is for foreign values, where Clone defers to the foreign
// type's registered clone callback (see foreign.Registry).  Clone does
// not know about foreign callbacks itself; callers that might hold
// foreign values should go through foreign.Registry.Clone, which
// calls the registered callback.  A bare value.Clone on a Foreign
// value just copies the ForeignValue struct, i.e. it aliases Data —
// this is intentional so that this package has no dependency on
// foreign.
func Clone(v Value) Value {
	switch v.Kind {
	case Tuple, NamedTuple:
		out := Value{Kind: v.Kind}
		if v.Names != nil {
			out.Names = append([]string(nil), v.Names...)
		}
		out.Tuple = make([]Value, len(v.Tuple))
		for i, x := range v.Tuple {
			out.Tuple[i] = Clone(x)
		}
		return out
	case Sequence:
		out := Value{Kind: Sequence, Seq: make([]Value, len(v.Seq))}
		for i, x := range v.Seq {
			out.Seq[i] = Clone(x)
		}
		return out
	case Set:
		out := Value{Kind: Set, SetKeys: make([]Value, len(v.SetKeys))}
		for i, x := range v.SetKeys {
			out.SetKeys[i] = Clone(x)
		}
		return out
	case Map:
		out := Value{Kind: Map}
		out.MapKeys = make([]Value, len(v.MapKeys))
		out.MapVals = make([]Value, len(v.MapVals))
		for i := range v.MapKeys {
			out.MapKeys[i] = Clone(v.MapKeys[i])
			out.MapVals[i] = Clone(v.MapVals[i])
		}
		return out
	case Foreign:
		if v.Foreign == nil {
			return Value{Kind: Foreign}
		}
		cp := *v.Foreign
		return Value{Kind: Foreign, Foreign: &cp}
	default:
		// Scalars (Null, Bool, Int, Float, String, MachineID,
		// EventRef) are embedded by value already.
		return v
	}
}

// Free is a no-op for every kind, foreign values included: this
// package relies on the Go garbage collector for memory, and a foreign
// value's release callback runs through foreign.Registry.Free.
func Free(v Value) {}

// Equals is structural equality: reflexive, symmetric, transitive.
// Comparing values of different Kind (Int and Float included) is
// always false, never an error.
func Equals(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case Null:
		return true
	case Bool:
		return a.B == b.B
	case Int:
		return a.I == b.I
	case Float:
		return a.F == b.F
	case String:
		return a.S == b.S
	case MachineID:
		return a.M.Equals(b.M)
	case EventRef:
		return a.E == b.E
	case Tuple, NamedTuple:
		if len(a.Tuple) != len(b.Tuple) {
			return false
		}
		for i := range a.Tuple {
			if a.Kind == NamedTuple && a.Names[i] != b.Names[i] {
				return false
			}
			if !Equals(a.Tuple[i], b.Tuple[i]) {
				return false
			}
		}
		return true
	case Sequence:
		if len(a.Seq) != len(b.Seq) {
			return false
		}
		for i := range a.Seq {
			if !Equals(a.Seq[i], b.Seq[i]) {
				return false
			}
		}
		return true
	case Set:
		if len(a.SetKeys) != len(b.SetKeys) {
			return false
		}
		for _, x := range a.SetKeys {
			if !setContains(b.SetKeys, x) {
				return false
			}
		}
		return true
	case Map:
		if len(a.MapKeys) != len(b.MapKeys) {
			return false
		}
		for i, k := range a.MapKeys {
			j := mapIndex(b.MapKeys, k)
			if j < 0 || !Equals(a.MapVals[i], b.MapVals[j]) {
				return false
			}
		}
		return true
	case Foreign:
		if a.Foreign == nil || b.Foreign == nil {
			return a.Foreign == b.Foreign
		}
		// Structural equality for foreign values needs the owning
		// ForeignTypeDecl's Equals callback; this package has no
		// program/foreign dependency, so it falls back to identity
		// of the wrapped Data when the two TypeIndex values match.
		// foreign.Registry.Equals wraps this with the real callback.
		return a.Foreign.TypeIndex == b.Foreign.TypeIndex && a.Foreign.Data == b.Foreign.Data
	default:
		return false
	}
}

func setContains(set []Value, v Value) bool {
	for _, x := range set {
		if Equals(x, v) {
			return true
		}
	}
	return false
}

func mapIndex(keys []Value, k Value) int {
	for i, x := range keys {
		if Equals(x, k) {
			return i
		}
	}
	return -1
}

var (
	ErrNotStructural = errors.New("value: field access on a non-structural value")
	ErrNoSuchField   = errors.New("value: no such field")
	ErrNotCollection = errors.New("value: operation requires a collection value")
)

// GetField reads a tuple/named-tuple field by position.
func GetField(v Value, index int) (Value, error) {
	if v.Kind != Tuple && v.Kind != NamedTuple {
		return Value{}, ErrNotStructural
	}
	if index < 0 || index >= len(v.Tuple) {
		return Value{}, ErrNoSuchField
	}
	return v.Tuple[index], nil
}

// SetField writes a tuple/named-tuple field by position, returning the
// updated value (the receiver is not mutated in place so that callers
// holding a CLONE-status borrow cannot observe the write).
func SetField(v Value, index int, field Value) (Value, error) {
	if v.Kind != Tuple && v.Kind != NamedTuple {
		return Value{}, ErrNotStructural
	}
	if index < 0 || index >= len(v.Tuple) {
		return Value{}, ErrNoSuchField
	}
	out := Clone(v)
	out.Tuple[index] = Clone(field)
	return out, nil
}

// GetFieldByName reads a named-tuple field by name.
func GetFieldByName(v Value, name string) (Value, error) {
	if v.Kind != NamedTuple {
		return Value{}, ErrNotStructural
	}
	for i, n := range v.Names {
		if n == name {
			return v.Tuple[i], nil
		}
	}
	return Value{}, ErrNoSuchField
}

// SetFieldByName writes a named-tuple field by name.
func SetFieldByName(v Value, name string, field Value) (Value, error) {
	if v.Kind != NamedTuple {
		return Value{}, ErrNotStructural
	}
	for i, n := range v.Names {
		if n == name {
			return SetField(v, i, field)
		}
	}
	return Value{}, ErrNoSuchField
}

// Size returns the number of elements in a Sequence, Set, or Map (or
// fields in a Tuple/NamedTuple).
func Size(v Value) (int, error) {
	switch v.Kind {
	case Sequence:
		return len(v.Seq), nil
	case Set:
		return len(v.SetKeys), nil
	case Map:
		return len(v.MapKeys), nil
	case Tuple, NamedTuple:
		return len(v.Tuple), nil
	default:
		return 0, ErrNotCollection
	}
}

// Contains reports whether a Set contains v or a Map contains the key v.
func Contains(c Value, v Value) (bool, error) {
	switch c.Kind {
	case Set:
		return setContains(c.SetKeys, v), nil
	case Map:
		return mapIndex(c.MapKeys, v) >= 0, nil
	default:
		return false, ErrNotCollection
	}
}

// Insert adds v to a Set and returns the updated collection.  Any
// other kind, Map included, returns ErrNotCollection; maps use
// InsertMap.
func Insert(c Value, v Value) (Value, error) {
	switch c.Kind {
	case Set:
		out := Clone(c)
		out.SetKeys = insertUnique(out.SetKeys, v)
		return out, nil
	default:
		return Value{}, ErrNotCollection
	}
}

// InsertMap adds or overwrites the (key, val) pair in a Map.
func InsertMap(c Value, k, v Value) (Value, error) {
	if c.Kind != Map {
		return Value{}, ErrNotCollection
	}
	out := Clone(c)
	if i := mapIndex(out.MapKeys, k); i >= 0 {
		out.MapVals[i] = Clone(v)
		return out, nil
	}
	out.MapKeys = append(out.MapKeys, Clone(k))
	out.MapVals = append(out.MapVals, Clone(v))
	return out, nil
}

// Remove deletes v from a Set, or the key v from a Map.
func Remove(c Value, v Value) (Value, error) {
	switch c.Kind {
	case Set:
		out := Value{Kind: Set}
		for _, x := range c.SetKeys {
			if !Equals(x, v) {
				out.SetKeys = append(out.SetKeys, Clone(x))
			}
		}
		return out, nil
	case Map:
		out := Value{Kind: Map}
		for i, k := range c.MapKeys {
			if !Equals(k, v) {
				out.MapKeys = append(out.MapKeys, Clone(k))
				out.MapVals = append(out.MapVals, Clone(c.MapVals[i]))
			}
		}
		return out, nil
	default:
		return Value{}, ErrNotCollection
	}
}

// SeqAppend returns a new Sequence with v appended.
func SeqAppend(s Value, v Value) (Value, error) {
	if s.Kind != Sequence {
		return Value{}, ErrNotCollection
	}
	out := Clone(s)
	out.Seq = append(out.Seq, Clone(v))
	return out, nil
}
