package foreign

import (
	"context"
	"log"

	"github.com/p-org/prt-go/control"
	"github.com/p-org/prt-go/program"
	"github.com/p-org/prt-go/value"
)

// NoopFunc is a program.HandlerFunc that does nothing and returns
// control.None{}, adapted from interpreters/noop/noop.go's Interpreter
// (which returned bindings unmodified).  Used as a placeholder
// implementation for FunDecls under construction, and by tests that
// only care about transition/queue behavior, not handler bodies.
//
// Silent, if false, logs a warning every time it runs — useful for
// catching a forgotten wire-up in a program still under development.
func NoopFunc(silent bool) program.HandlerFunc {
	return func(ctx context.Context, props map[string]interface{}, payload value.Value) (control.Signal, error) {
		if !silent {
			log.Printf("warning: foreign.NoopFunc invoked — this FunDecl has no real implementation")
		}
		return control.None{}, nil
	}
}
