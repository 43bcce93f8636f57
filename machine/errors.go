package machine

import "errors"

// ErrHalted is returned by Enqueue when the target instance has
// already reached the Halted state; sends to a halted instance are a
// reported error, never a panic.
var ErrHalted = errors.New("machine: instance is halted")

// ErrQueueFull is returned by Enqueue when admission fails: either
// the event's declared maxInstances bound or the machine's
// maxQueueSize bound would be exceeded.
var ErrQueueFull = errors.New("machine: queue full")
