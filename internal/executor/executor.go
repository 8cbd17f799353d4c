// Package executor wraps process creation so that analyzer subprocess
// lifecycle (spawn, pipe wiring, graceful/forced termination) can be logged
// uniformly and faked in tests.
package executor

import (
	"fmt"
	"io"
	"os/exec"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides an Executor to the Fx graph.
var Module = fx.Provide(New)

// Process is a started child process with its stdio pipes attached. It is
// the seam analyzer.Process drives instead of talking to os/exec directly.
type Process interface {
	Stdin() io.WriteCloser
	Stdout() io.ReadCloser
	// Wait blocks until the process exits and returns its error, if any.
	Wait() error
	// Signal sends an interrupt/terminate request; the process may ignore it.
	Signal() error
	// Kill forcibly terminates the process.
	Kill() error
}

// Executor starts long-lived analyzer subprocesses.
type Executor interface {
	// Start launches cmd with fresh stdin/stdout pipes, connecting stderr to
	// the given writer for logging. The binary not being found is reported
	// here, synchronously, as a configuration error.
	Start(cmd *exec.Cmd, stderr io.Writer) (Process, error)
}

type executor struct {
	logger *zap.SugaredLogger
}

// New returns an Executor that logs through the given logger.
func New(logger *zap.SugaredLogger) Executor {
	return &executor{logger: logger}
}

func (e *executor) Start(cmd *exec.Cmd, stderr io.Writer) (Process, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("opening stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("opening stdout pipe: %w", err)
	}
	cmd.Stderr = stderr

	e.logger.Infow("starting analyzer process", "path", cmd.Path, "args", cmd.Args[1:])
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting analyzer process %q: %w", cmd.Path, err)
	}

	return &process{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

func (p *process) Stdin() io.WriteCloser  { return p.stdin }
func (p *process) Stdout() io.ReadCloser  { return p.stdout }
func (p *process) Wait() error            { return p.cmd.Wait() }
func (p *process) Signal() error          { return p.cmd.Process.Signal(interruptSignal) }
func (p *process) Kill() error            { return p.cmd.Process.Kill() }
