package process

import (
	"context"
	"fmt"

	"github.com/p-org/prt-go/machine"
	"github.com/p-org/prt-go/program"
	"github.com/p-org/prt-go/value"
)

// MkMachine allocates a new instance of the machine type named
// symbolicName, appends it to the process table, and runs its initial
// state's entry function with a payload built from args. The returned
// id is valid even if the entry run reported an error: the instance
// still exists in the table (likely halted).
func (pr *Process) MkMachine(ctx context.Context, symbolicName string, args []value.Arg) (value.MID, error) {
	midx, ok := pr.Program.MachineByName(symbolicName)
	if !ok {
		err := &BadIndexError{Kind: "machine-name(" + symbolicName + ")", Index: -1}
		pr.reportError(err, nil)
		return value.MID{}, err
	}
	decl := &pr.Program.Machines[midx]

	vs, err := value.TakeArgs(args)
	if err != nil {
		return value.MID{}, err
	}

	var payloadType program.Type
	if entry := decl.States[decl.InitStateIndex].Entry; entry != nil {
		payloadType = entry.PayloadType
	}
	payload, err := program.MakeTupleFromArray(payloadType, vs)
	if err != nil {
		terr := &TypeMismatchError{Want: payloadType.Kind.String(), Got: fmt.Sprintf("%d constructor argument(s)", len(vs))}
		pr.reportError(terr, nil)
		return value.MID{}, terr
	}
	if !program.CompatibleWith(payload, payloadType) {
		terr := &TypeMismatchError{Want: payloadType.Kind.String(), Got: payload.Kind.String()}
		pr.reportError(terr, nil)
		return value.MID{}, terr
	}

	pr.mu.Lock()
	id := value.MID{ProcessGUID: pr.GUID, Index: uint32(len(pr.machines)), SymbolicName: symbolicName}
	inst := machine.New(id, symbolicName, decl, midx, pr.foreignDefault)
	pr.machines = append(pr.machines, inst)
	pr.mu.Unlock()

	return id, pr.runInitial(ctx, inst, payload)
}

// MkSymbolicMachine resolves iorM (an interface or symbolic machine
// reference declared from creator's machine type, via the program's
// LinkMap) to a concrete machine name and constructs it, mirroring how
// a P `new` expression against an interface name is resolved to a
// concrete implementing machine at the call site's linkage.
func (pr *Process) MkSymbolicMachine(ctx context.Context, creator value.MID, iorM string, args []value.Arg) (value.MID, error) {
	creatorInst, err := pr.GetMachine(creator)
	if err != nil {
		return value.MID{}, err
	}
	name := iorM
	if names, ok := pr.Program.LinkMap[creatorInst.InstanceOf]; ok {
		if resolved, have := names[iorM]; have {
			name = resolved
		}
	}
	return pr.MkMachine(ctx, name, args)
}
