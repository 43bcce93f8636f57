package program

import "fmt"

// UnknownMachineError occurs when LinkMap or MachineDefMap references a
// machine name that Initialize cannot resolve to a MachineDecl.
type UnknownMachineError struct {
	Name string
}

func (e *UnknownMachineError) Error() string {
	return fmt.Sprintf("program: unknown machine %q", e.Name)
}

// DuplicateMachineNameError occurs when two MachineDecls declare the
// same Name; Initialize needs names to be unique so MachineDefMap can
// resolve symbolic names unambiguously.
type DuplicateMachineNameError struct {
	Name string
}

func (e *DuplicateMachineNameError) Error() string {
	return fmt.Sprintf("program: duplicate machine name %q", e.Name)
}

// Initialize assigns DeclIndex to every EventDecl, MachineDecl, and
// ForeignTypeDecl (by their position in the owning slice), precomputes
// each StateDecl's three EventSets from its TransList/DoList, and
// validates that LinkMap/MachineDefMap only reference declared
// machines.  Following core/spec.go's Spec.Compile: walk the tree
// once, fill in indices, and fail loudly on anything that can't be
// resolved rather than discovering it lazily at Step time.
func Initialize(p *Program) error {
	for i := range p.Events {
		p.Events[i].DeclIndex = i
	}
	for i := range p.ForeignTypes {
		p.ForeignTypes[i].DeclIndex = i
	}

	if p.MachineDefMap == nil {
		p.MachineDefMap = make(map[string]MachineIndex, len(p.Machines))
	}

	for i := range p.Machines {
		m := &p.Machines[i]
		m.DeclIndex = i

		if existing, have := p.MachineDefMap[m.Name]; have && existing != i {
			return &DuplicateMachineNameError{Name: m.Name}
		}
		p.MachineDefMap[m.Name] = i

		for j := range m.States {
			st := &m.States[j]
			st.Index = j

			st.Defers = NewEventSet(len(p.Events))
			st.Transitions = NewEventSet(len(p.Events))
			st.Dos = NewEventSet(len(p.Events))

			for k := range st.TransList {
				st.TransList[k].OwnerState = j
				st.Transitions = st.Transitions.Add(st.TransList[k].TriggerEvent)
			}
			for k := range st.DoList {
				st.DoList[k].OwnerState = j
				st.Dos = st.Dos.Add(st.DoList[k].TriggerEvent)
			}
			for _, rc := range st.deferredEvents() {
				st.Defers = st.Defers.Add(rc)
			}
		}
	}

	for creator, names := range p.LinkMap {
		if creator < 0 || creator >= len(p.Machines) {
			return &UnknownMachineError{Name: fmt.Sprintf("#%d", creator)}
		}
		for _, symbolic := range names {
			if _, have := p.MachineDefMap[symbolic]; !have {
				return &UnknownMachineError{Name: symbolic}
			}
		}
	}
	for name, idx := range p.MachineDefMap {
		if idx < 0 || idx >= len(p.Machines) {
			return &UnknownMachineError{Name: name}
		}
	}

	p.initialized = true
	return nil
}

// Initialized reports whether Initialize has been run successfully.
func (p *Program) Initialized() bool {
	return p.initialized
}

// deferredEvents returns the events recorded by DeclareDefers (the
// YAML loader in loader.go records each state's defers this way).
// Initialize folds them into Defers, which it rebuilds from scratch,
// so a Defers set assigned directly before Initialize is discarded.
func (s *StateDecl) deferredEvents() []EventIndex {
	return s.explicitDefers
}

// DeclareDefers records the events this state defers, to be folded
// into Defers by the next Initialize call.
func (s *StateDecl) DeclareDefers(events ...EventIndex) {
	s.explicitDefers = append(s.explicitDefers, events...)
}
