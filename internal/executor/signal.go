package executor

import "os"

// interruptSignal is the signal Process.Signal sends to the child process.
// analyzer.Process.Stop does not send it: it closes stdin and, once the
// grace period elapses, uses Kill.
var interruptSignal os.Signal = os.Interrupt
