// Package foreign holds the runtime-side half of the external
// collaborators the core keeps at arm's length: foreign types
// (host-supplied opaque values with clone/free/equals/hash/
// makeDefault callbacks) and the interpreter registry that backs
// scripted FunDecl implementations.  Grounded on core/actions.go's
// Interpreter interface, reworked so the foreign-type table is a
// registry owned by the process rather than module-level state.
package foreign

import (
	"fmt"

	"github.com/p-org/prt-go/program"
	"github.com/p-org/prt-go/value"
)

// Registry looks up a program's ForeignTypeDecl callbacks by
// declaration index.  It is owned by the process: the foreign-type
// declarations live in the program, and their callbacks are looked up
// by declIndex rather than through module-level state.
type Registry struct {
	decls []program.ForeignTypeDecl
}

// NewRegistry builds a Registry over a program's declared foreign
// types.
func NewRegistry(decls []program.ForeignTypeDecl) *Registry {
	return &Registry{decls: decls}
}

func (r *Registry) lookup(idx program.ForeignTypeIndex) (*program.ForeignTypeDecl, error) {
	if idx < 0 || idx >= len(r.decls) {
		return nil, fmt.Errorf("foreign: no ForeignTypeDecl at index %d", idx)
	}
	return &r.decls[idx], nil
}

// Clone deep-copies a foreign value via its registered callback.
func (r *Registry) Clone(v value.Value) (value.Value, error) {
	if v.Kind != value.Foreign || v.Foreign == nil {
		return value.Clone(v), nil
	}
	d, err := r.lookup(v.Foreign.TypeIndex)
	if err != nil {
		return value.Value{}, err
	}
	data := v.Foreign.Data
	if d.Clone != nil {
		data = d.Clone(data)
	}
	return value.NewForeign(v.Foreign.TypeIndex, data), nil
}

// Free releases a foreign value via its registered callback.
func (r *Registry) Free(v value.Value) error {
	if v.Kind != value.Foreign || v.Foreign == nil {
		return nil
	}
	d, err := r.lookup(v.Foreign.TypeIndex)
	if err != nil {
		return err
	}
	if d.Free != nil {
		d.Free(v.Foreign.Data)
	}
	return nil
}

// Equals compares two foreign values structurally via their registered
// callback; foreign values of different TypeIndex are never equal.
func (r *Registry) Equals(a, b value.Value) (bool, error) {
	if a.Kind != value.Foreign || b.Kind != value.Foreign {
		return value.Equals(a, b), nil
	}
	if a.Foreign == nil || b.Foreign == nil {
		return a.Foreign == b.Foreign, nil
	}
	if a.Foreign.TypeIndex != b.Foreign.TypeIndex {
		return false, nil
	}
	d, err := r.lookup(a.Foreign.TypeIndex)
	if err != nil {
		return false, err
	}
	if d.Equals == nil {
		return a.Foreign.Data == b.Foreign.Data, nil
	}
	return d.Equals(a.Foreign.Data, b.Foreign.Data), nil
}

// MakeDefault constructs the default value for a foreign type via its
// registered callback.
func (r *Registry) MakeDefault(idx program.ForeignTypeIndex) (interface{}, error) {
	d, err := r.lookup(idx)
	if err != nil {
		return nil, err
	}
	if d.MakeDefault == nil {
		return nil, nil
	}
	return d.MakeDefault(), nil
}
