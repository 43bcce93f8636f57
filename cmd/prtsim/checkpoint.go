package main

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/p-org/prt-go/process"
	"github.com/p-org/prt-go/value"
)

var checkpointBucket = []byte("machines")

// checkpointer periodically snapshots every live machine's state name
// to a bolt bucket, a demo-only convenience for resuming a crashed
// run's last-known states; the runtime core itself never persists
// anything (see spec.md's scheduler/process section: "Persisted
// state: none").
type checkpointer struct {
	db *bolt.DB
	pr *process.Process
}

func newCheckpointer(path string, pr *process.Process) (*checkpointer, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(checkpointBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &checkpointer{db: db, pr: pr}, nil
}

// Run snapshots every 2 seconds until ctx is done.
func (cp *checkpointer) Run(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cp.snapshot()
		}
	}
}

// demoInstanceIndex mirrors the fixed construction order main.go
// uses (B first, then A) for the two demo machine instances.
var demoInstanceIndex = map[string]uint32{"B": 0, "A": 1}

func (cp *checkpointer) snapshot() {
	for _, name := range []string{"A", "B"} {
		mid := value.MID{ProcessGUID: cp.pr.GUID, Index: demoInstanceIndex[name], SymbolicName: name}
		inst, err := cp.pr.GetMachine(mid)
		if err != nil {
			continue
		}
		snap := cp.pr.GetMachineState(inst)
		cp.db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket(checkpointBucket)
			return b.Put([]byte(name), []byte(fmt.Sprintf("%s@%s", snap.MachineID, snap.StateName)))
		})
	}
}

func (cp *checkpointer) Close() error {
	return cp.db.Close()
}
