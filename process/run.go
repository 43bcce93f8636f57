package process

import (
	"context"

	"github.com/p-org/prt-go/dispatch"
	"github.com/p-org/prt-go/value"
)

// StepProcess selects one runnable instance (round-robin over the
// machine table, continuing after the last index stepped) and
// advances it by one dispatch.Step. A StepMore result with a non-nil
// error means the offending instance's error has already been
// reported through ErrorFunc; the process as a whole keeps running,
// except after an AssertionFailedError or InternalInvariantError,
// which stop the process.
func (pr *Process) StepProcess(ctx context.Context) (StepOutcome, error) {
	if pr.sched.Terminating() {
		return StepTerminating, nil
	}

	idx, ok := pr.sched.NextRunnable(pr.machineCount(), pr.runnable)
	if !ok {
		return StepIdle, nil
	}

	inst := pr.machineAt(idx)
	if inst == nil || !inst.TryAcquireRunning() {
		// Lost a race with another worker (cooperative mode) or the
		// table shrank a reference out from under us; neither is an
		// error, just retry on the next call.
		return StepMore, nil
	}

	outcome, err := dispatch.Step(ctx, inst, pr.props(inst), pr.hooks())
	idle := outcome == dispatch.OutcomeIdle || outcome == dispatch.OutcomeHalted || outcome == dispatch.OutcomeReceiving
	inst.ReleaseRunning(idle)
	if outcome == dispatch.OutcomeHalted {
		pr.onLog("halt", inst, value.NewNull())
	}

	if err != nil {
		err = asProcessError(err, inst)
		pr.reportError(err, inst)
		switch err.(type) {
		case *AssertionFailedError, *InternalInvariantError:
			pr.sched.Stop()
		}
		return StepMore, err
	}
	if outcome != dispatch.OutcomeIdle {
		// Stepping one instance can unblock others waiting on a raised
		// or newly-enqueued event; nudge a parked cooperative worker.
		pr.sched.WorkAvailable.Release()
	}
	return StepMore, nil
}

// WaitForWork blocks until either new work arrives or the process is
// terminating, whichever comes first. Meant for a cooperative worker
// between StepProcess calls; RunProcess calls it internally for a
// task-neutral worker too, since "wait until enqueue or terminating"
// is the same operation regardless of policy — only whether more than
// one worker is doing it concurrently differs.
func (pr *Process) WaitForWork(ctx context.Context) (terminating bool, err error) {
	if pr.sched.Terminating() {
		return true, nil
	}
	pr.sched.BeginWait()
	err = pr.sched.WorkAvailable.Acquire(ctx)
	pr.sched.EndWait()
	if err != nil {
		return false, err
	}
	return pr.sched.Terminating(), nil
}

// RunProcess blocks the calling goroutine as a worker, repeatedly
// stepping runnable instances and waiting for work when idle, until
// the process is stopped or ctx is done.
func (pr *Process) RunProcess(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		outcome, err := pr.StepProcess(ctx)
		if err != nil {
			continue
		}
		switch outcome {
		case StepTerminating:
			return nil
		case StepMore:
			continue
		case StepIdle:
			terminating, err := pr.WaitForWork(ctx)
			if err != nil {
				return err
			}
			if terminating {
				return nil
			}
		}
	}
}

// StopProcess flips the terminating flag, wakes every worker parked
// in WaitForWork, and blocks until they have all departed.
func (pr *Process) StopProcess(ctx context.Context) error {
	pr.sched.Stop()
	select {
	case <-pr.sched.AllStopped():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
