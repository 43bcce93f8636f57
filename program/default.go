package program

import "github.com/p-org/prt-go/value"

// Default constructs the zero value for a declared Type: make_default
// applied recursively so that a freshly created machine's variables
// start out at each declared type's default.
func Default(t Type, foreignDefault func(ForeignTypeIndex) interface{}) value.Value {
	switch t.Kind {
	case value.Bool:
		return value.NewBool(false)
	case value.Int:
		return value.NewInt(0)
	case value.Float:
		return value.NewFloat(0)
	case value.String:
		return value.NewString("")
	case value.MachineID:
		return value.NewMachineID(value.MID{})
	case value.EventRef:
		return value.NewEventRef(value.NoEvent)
	case value.Tuple, value.NamedTuple:
		vs := make([]value.Value, len(t.Fields))
		names := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			vs[i] = Default(f.Type, foreignDefault)
			names[i] = f.Name
		}
		if t.Kind == value.NamedTuple {
			return value.NewNamedTuple(names, vs)
		}
		return value.NewTuple(vs)
	case value.Sequence:
		return value.NewSequence(nil)
	case value.Set:
		return value.NewSet(nil)
	case value.Map:
		return value.NewMap(nil, nil)
	case value.Foreign:
		var data interface{}
		if foreignDefault != nil {
			data = foreignDefault(t.ForeignType)
		}
		return value.NewForeign(t.ForeignType, data)
	default:
		return value.NewNull()
	}
}

// CompatibleWith reports whether v's runtime Kind (and, recursively,
// its structural shape) is compatible with the declared Type t.  Used
// at enqueue time to enforce the TypeMismatch check, and by
// MkMachine/Send to validate constructor/event payloads.
func CompatibleWith(v value.Value, t Type) bool {
	if v.Kind != t.Kind {
		return false
	}
	switch t.Kind {
	case value.Tuple, value.NamedTuple:
		if len(v.Tuple) != len(t.Fields) {
			return false
		}
		for i, f := range t.Fields {
			if !CompatibleWith(v.Tuple[i], f.Type) {
				return false
			}
		}
		return true
	case value.Sequence:
		if t.Elem == nil {
			return true
		}
		for _, x := range v.Seq {
			if !CompatibleWith(x, *t.Elem) {
				return false
			}
		}
		return true
	case value.Set:
		if t.Elem == nil {
			return true
		}
		for _, x := range v.SetKeys {
			if !CompatibleWith(x, *t.Elem) {
				return false
			}
		}
		return true
	case value.Map:
		if t.MapKey == nil && t.MapElem == nil {
			return true
		}
		for i := range v.MapKeys {
			if t.MapKey != nil && !CompatibleWith(v.MapKeys[i], *t.MapKey) {
				return false
			}
			if t.MapElem != nil && !CompatibleWith(v.MapVals[i], *t.MapElem) {
				return false
			}
		}
		return true
	case value.Foreign:
		return v.Foreign == nil || t.ForeignType == v.Foreign.TypeIndex
	default:
		return true
	}
}
