package program

import (
	"fmt"
	"io/ioutil"

	"github.com/jsccast/yaml"

	"github.com/p-org/prt-go/value"
)

// Source is the YAML-serializable shape a *Program is loaded from.
// It names functions by string; the caller of Load supplies the
// actual Go implementations in a Funcs table, since a HandlerFunc is
// a closure and cannot itself round-trip through YAML.  This mirrors
// cmd/mservice/specs.go's FileSystemSpecProvider, which loads
// core.Spec fixtures with jsccast/yaml and leaves ActionSource
// compilation (by interpreter name) as a second, explicit step.
type Source struct {
	Events   []eventSource   `yaml:"events"`
	Machines []machineSource `yaml:"machines"`
}

type eventSource struct {
	Name         string `yaml:"name"`
	MaxInstances int    `yaml:"maxInstances,omitempty"`
}

type machineSource struct {
	Name         string        `yaml:"name"`
	InitState    string        `yaml:"initState"`
	MaxQueueSize int           `yaml:"maxQueueSize,omitempty"`
	Vars         []varSource   `yaml:"vars,omitempty"`
	States       []stateSource `yaml:"states"`
}

type varSource struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type stateSource struct {
	Name        string             `yaml:"name"`
	Entry       string             `yaml:"entry,omitempty"`
	Exit        string             `yaml:"exit,omitempty"`
	Defers      []string           `yaml:"defers,omitempty"`
	Transitions []transitionSource `yaml:"transitions,omitempty"`
	Dos         []doSource         `yaml:"dos,omitempty"`
}

type transitionSource struct {
	On  string `yaml:"on"`
	To  string `yaml:"to"`
	Fun string `yaml:"fun,omitempty"`
}

type doSource struct {
	On  string `yaml:"on"`
	Fun string `yaml:"fun"`
}

// Funcs supplies the native Go implementations referenced by name
// from a Source's entry/exit/transition/do function fields.
type Funcs map[string]HandlerFunc

// LoadFile reads and parses a YAML program declaration from path, then
// resolves it (with Funcs) and calls Initialize.
func LoadFile(path string, funcs Funcs) (*Program, error) {
	body, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadBytes(body, funcs)
}

// LoadBytes parses YAML bytes into a Source, resolves it, and calls
// Initialize.
func LoadBytes(body []byte, funcs Funcs) (*Program, error) {
	var src Source
	if err := yaml.Unmarshal(body, &src); err != nil {
		return nil, err
	}
	return Resolve(&src, funcs)
}

// simpleType maps the handful of YAML type names this loader
// understands to a program.Type.  Richer (tuple/sequence/foreign)
// types must be built with Go literals; the loader only needs to
// cover the scalar cases exercised by the demo fixtures and the
// ping-pong scenario used in tests.
func simpleType(name string) (Type, error) {
	switch name {
	case "", "null":
		return Type{}, nil
	case "bool":
		return Type{Kind: value.Bool}, nil
	case "int":
		return Type{Kind: value.Int}, nil
	case "float":
		return Type{Kind: value.Float}, nil
	case "string":
		return Type{Kind: value.String}, nil
	case "machine":
		return Type{Kind: value.MachineID}, nil
	case "event":
		return Type{Kind: value.EventRef}, nil
	default:
		return Type{}, fmt.Errorf("program: unknown YAML type name %q", name)
	}
}

// Resolve turns a parsed Source into an initialized Program, looking
// up every named function in funcs.
func Resolve(src *Source, funcs Funcs) (*Program, error) {
	p := &Program{
		LinkMap:       map[MachineIndex]map[string]string{},
		MachineDefMap: map[string]MachineIndex{},
	}

	eventIndex := map[string]EventIndex{}
	for _, es := range src.Events {
		eventIndex[es.Name] = len(p.Events)
		p.Events = append(p.Events, EventDecl{Name: es.Name, MaxInstances: es.MaxInstances})
	}
	resolveEvent := func(name string) (EventIndex, error) {
		idx, have := eventIndex[name]
		if !have {
			return NoEvent, fmt.Errorf("program: undeclared event %q", name)
		}
		return idx, nil
	}
	resolveFun := func(name string) (*FunDecl, error) {
		if name == "" {
			return nil, nil
		}
		f, have := funcs[name]
		if !have {
			return nil, fmt.Errorf("program: no implementation registered for function %q", name)
		}
		return &FunDecl{Name: name, Implementation: f}, nil
	}

	for _, ms := range src.Machines {
		md := MachineDecl{Name: ms.Name, MaxQueueSize: ms.MaxQueueSize}

		for _, v := range ms.Vars {
			t, err := simpleType(v.Type)
			if err != nil {
				return nil, err
			}
			md.Vars = append(md.Vars, VarDecl{Name: v.Name, Type: t})
		}

		stateIndex := map[string]StateIndex{}
		for i, ss := range ms.States {
			stateIndex[ss.Name] = i
		}

		for _, ss := range ms.States {
			st := StateDecl{Name: ss.Name}

			var err error
			if st.Entry, err = resolveFun(ss.Entry); err != nil {
				return nil, err
			}
			if st.Exit, err = resolveFun(ss.Exit); err != nil {
				return nil, err
			}

			for _, d := range ss.Defers {
				ei, err := resolveEvent(d)
				if err != nil {
					return nil, err
				}
				st.DeclareDefers(ei)
			}

			for _, tr := range ss.Transitions {
				ei, err := resolveEvent(tr.On)
				if err != nil {
					return nil, err
				}
				dest, have := stateIndex[tr.To]
				if !have {
					return nil, fmt.Errorf("program: machine %q transition to unknown state %q", ms.Name, tr.To)
				}
				fun, err := resolveFun(tr.Fun)
				if err != nil {
					return nil, err
				}
				st.TransList = append(st.TransList, TransDecl{TriggerEvent: ei, DestState: dest, TransFun: fun})
			}

			for _, d := range ss.Dos {
				ei, err := resolveEvent(d.On)
				if err != nil {
					return nil, err
				}
				fun, err := resolveFun(d.Fun)
				if err != nil {
					return nil, err
				}
				if fun == nil {
					return nil, fmt.Errorf("program: machine %q do-handler for %q has no function", ms.Name, d.On)
				}
				st.DoList = append(st.DoList, DoDecl{TriggerEvent: ei, DoFun: fun})
			}

			md.States = append(md.States, st)
		}

		initIdx, have := stateIndex[ms.InitState]
		if !have {
			return nil, fmt.Errorf("program: machine %q has unknown initState %q", ms.Name, ms.InitState)
		}
		md.InitStateIndex = initIdx

		p.Machines = append(p.Machines, md)
	}

	if err := Initialize(p); err != nil {
		return nil, err
	}
	return p, nil
}
