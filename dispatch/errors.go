package dispatch

import (
	"errors"
	"fmt"

	"github.com/p-org/prt-go/program"
)

// UnhandledEventError occurs when a dequeued event matches neither a
// transition nor a do-handler (and the instance isn't in a receive
// whose case set it satisfies) in the current state.  By default this
// halts the instance; a host may install Hooks.OnUnhandled to
// override that.
type UnhandledEventError struct {
	Event program.EventIndex
	State program.StateIndex
}

func (e *UnhandledEventError) Error() string {
	return fmt.Sprintf("dispatch: event %d unhandled in state %d", e.Event, e.State)
}

// ErrPopUnsupported is returned when a handler returns control.Pop but
// the runtime has no push-stack model compiled in (see control.Pop).
var ErrPopUnsupported = errors.New("dispatch: pop requires push semantics, which this runtime does not compile in")
