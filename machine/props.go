package machine

// PropsInstance is the props map key under which a FunDecl
// implementation finds the *Instance it is running against, letting
// handler bodies read/write machine variables and access the call
// stack without widening program.HandlerFunc's signature.
const PropsInstance = "instance"

// PropsProcess is the props map key under which a handler finds its
// owning process (typed as interface{} here to avoid a machine ->
// process import cycle; callers type-assert to *process.Process).
const PropsProcess = "process"
