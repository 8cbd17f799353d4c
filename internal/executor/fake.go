package executor

import (
	"errors"
	"io"
	"os/exec"
	"sync"
)

// Fake is a hand-written test double for Executor: it hands back an
// in-memory Process backed by pipes instead of spawning a real binary.
type Fake struct {
	mu       sync.Mutex
	started  []string
	StartErr error
	// NewProcess, if set, overrides the Process returned by Start.
	NewProcess func(cmd *exec.Cmd) Process
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{}
}

func (f *Fake) Start(cmd *exec.Cmd, stderr io.Writer) (Process, error) {
	f.mu.Lock()
	f.started = append(f.started, cmd.Path)
	f.mu.Unlock()

	if f.StartErr != nil {
		return nil, f.StartErr
	}
	if f.NewProcess != nil {
		return f.NewProcess(cmd), nil
	}
	return NewFakeProcess(), nil
}

// Started returns the binary paths passed to Start, in order.
func (f *Fake) Started() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.started))
	copy(out, f.started)
	return out
}

// FakeProcess is an in-memory Process for tests: writes to Stdin() can be
// read back via StdinReader, and data fed to StdoutWriter appears on
// Stdout().
type FakeProcess struct {
	stdinR, StdinReader   *io.PipeReader
	stdinW                *io.PipeWriter
	StdoutWriter, stdoutR *io.PipeWriter
	stdoutReader          *io.PipeReader

	mu       sync.Mutex
	killed   bool
	signaled bool
	waitErr  chan error
}

// NewFakeProcess returns a FakeProcess with both pipe directions wired up.
func NewFakeProcess() *FakeProcess {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	return &FakeProcess{
		stdinR:       inR,
		StdinReader:  inR,
		stdinW:       inW,
		StdoutWriter: outW,
		stdoutR:      outW,
		stdoutReader: outR,
		waitErr:      make(chan error, 1),
	}
}

func (p *FakeProcess) Stdin() io.WriteCloser { return p.stdinW }
func (p *FakeProcess) Stdout() io.ReadCloser { return p.stdoutReader }

func (p *FakeProcess) Wait() error { return <-p.waitErr }

// Exit simulates the child process exiting, unblocking Wait.
func (p *FakeProcess) Exit(err error) {
	if err == nil {
		err = errors.New("analyzer process exited")
	}
	p.waitErr <- err
}

func (p *FakeProcess) Signal() error {
	p.mu.Lock()
	p.signaled = true
	p.mu.Unlock()
	return nil
}

func (p *FakeProcess) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	// A real child's stdout closes with the process; mirror that here so a
	// reader blocked on Stdout() unblocks the way it would against a real
	// subprocess exit, instead of hanging on an io.Pipe forever.
	p.stdoutR.Close()
	p.waitErr <- errors.New("killed")
	return nil
}

func (p *FakeProcess) Killed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

func (p *FakeProcess) Signaled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signaled
}
