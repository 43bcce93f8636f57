package main

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/p-org/prt-go/process"
	"github.com/p-org/prt-go/value"
)

// cronTicker fires TICK into machine A on a cron schedule, the
// external-clock host collaborator spec.md's "Non-goals" carve the
// actual clock hardware out of scope for, but whose effect (an event
// arriving into the queue from outside any handler) the runtime must
// still accept the same way it accepts a human-driven Send.
type cronTicker struct {
	stop chan struct{}
}

func newCronTicker(expr string, pr *process.Process) (*cronTicker, error) {
	sched, err := cronexpr.Parse(expr)
	if err != nil {
		return nil, err
	}
	tk := &cronTicker{stop: make(chan struct{})}
	go tk.run(sched, pr)
	return tk, nil
}

func (tk *cronTicker) run(sched *cronexpr.Expression, pr *process.Process) {
	for {
		next := sched.Next(time.Now())
		if next.IsZero() {
			return
		}
		wait := time.Until(next)
		select {
		case <-time.After(wait):
		case <-tk.stop:
			return
		}

		aID := value.MID{ProcessGUID: "prtsim-1", Index: 1, SymbolicName: "A"}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := pr.Send(ctx, nil, aID, evTick, nil); err != nil {
			log.Printf("prtsim: cron send: %v", err)
		}
		cancel()
	}
}

func (tk *cronTicker) Stop() {
	close(tk.stop)
}
