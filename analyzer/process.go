// Package analyzer supervises per-language analyzer subprocesses (gopls,
// typescript-language-server) over LSP, per spec.md §4.3/§4.4. Grounded in
// the teacher's internal/executor (subprocess seam) and internal/clock
// (time seam), driving the actual handshake and request/response
// correlation with go.lsp.dev/jsonrpc2 + go.lsp.dev/protocol exactly as the
// teacher's gateway/ide-client drives its IDE-facing connection, but in the
// opposite role: here this proxy is the LSP *client* calling into the
// analyzer, which acts as the LSP server.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/opencanvas/lsp-proxy/internal/clock"
	"github.com/opencanvas/lsp-proxy/internal/errors"
	"github.com/opencanvas/lsp-proxy/internal/executor"
)

// State is one node of the state machine spec.md §4.3 describes:
// Spawning -> Initializing -> Running -> Stopping -> Stopped, with a
// synthetic Crashed transition handled internally rather than exposed as a
// resting state (a crash either becomes a fresh Spawning attempt or settles
// on Stopped once the restart budget is spent).
type State int32

const (
	StateStopped State = iota
	StateSpawning
	StateInitializing
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateSpawning:
		return "spawning"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "stopped"
	}
}

// Sink receives a notification the analyzer subprocess sent unsolicited:
// window/showMessage, window/logMessage, textDocument/publishDiagnostics.
// Per spec.md §9's redesign note, the teacher's callback-style sink becomes
// a plain function value, swapped wholesale on rebind rather than a
// registered/deregistered listener.
type Sink func(method string, params json.RawMessage)

func noopSink(string, json.RawMessage) {}

// Options configures a Process's timing and restart policy, defaulted per
// spec.md §4.3/§5.
type Options struct {
	InitTimeout   time.Duration
	IdleTimeout   time.Duration
	StopGrace     time.Duration
	RestartBudget int
	RestartWindow time.Duration
	RestartDelay  time.Duration
}

// DefaultOptions matches the defaults spec.md §4.3 names explicitly.
func DefaultOptions() Options {
	return Options{
		InitTimeout:   10 * time.Second,
		IdleTimeout:   5 * time.Minute,
		StopGrace:     2 * time.Second,
		RestartBudget: 3,
		RestartWindow: 60 * time.Second,
		RestartDelay:  1 * time.Second,
	}
}

type stopReason int

const (
	stopReasonNeverStarted stopReason = iota
	stopReasonIdle
	stopReasonGraceful
	stopReasonCrashExhausted
)

// Process supervises one child analyzer subprocess for one languageId.
type Process struct {
	languageID string
	cfg        LanguageConfig
	opts       Options

	exec   executor.Executor
	clk    clock.Clock
	logger *zap.SugaredLogger

	mu         sync.Mutex
	state      State
	reason     stopReason
	child      executor.Process
	conn       jsonrpc2.Conn
	idleTimer  clock.Timer
	restarts   []time.Time
	stopping   bool
	runDone    chan struct{}

	sink atomic.Value // Sink
}

// NewProcess returns a Process for languageID, not yet started.
func NewProcess(languageID string, cfg LanguageConfig, opts Options, exec executor.Executor, clk clock.Clock, logger *zap.SugaredLogger) *Process {
	p := &Process{
		languageID: languageID,
		cfg:        cfg,
		opts:       opts,
		exec:       exec,
		clk:        clk,
		logger:     logger.With("languageId", languageID),
		state:      StateStopped,
		reason:     stopReasonNeverStarted,
	}
	p.sink.Store(Sink(noopSink))
	return p
}

// LanguageID reports the language this Process was built for.
func (p *Process) LanguageID() string { return p.languageID }

// State reports the current lifecycle state.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Rebind atomically swaps the notification sink, per spec.md §4.4's
// requirement that a client reconnecting to an in-use analyzer takes over
// delivery of subsequent notifications.
func (p *Process) Rebind(sink Sink) {
	if sink == nil {
		sink = noopSink
	}
	p.sink.Store(sink)
}

func (p *Process) currentSink() Sink {
	return p.sink.Load().(Sink)
}

// EnsureRunning starts the child process if it is not already Running,
// honoring the restart budget when the prior stop was a crash. It blocks
// until the analyzer is Running or the attempt definitively fails.
func (p *Process) EnsureRunning(ctx context.Context) error {
	p.mu.Lock()
	switch p.state {
	case StateRunning:
		p.mu.Unlock()
		return nil
	case StateStopped:
		if p.reason == stopReasonCrashExhausted && !p.withinRestartBudgetLocked() {
			p.mu.Unlock()
			return &errors.AnalyzerUnavailableError{LanguageID: p.languageID, Reason: "restart budget exhausted"}
		}
	default:
		p.mu.Unlock()
		return &errors.AnalyzerUnavailableError{LanguageID: p.languageID, Reason: fmt.Sprintf("analyzer is %s", p.state)}
	}
	p.mu.Unlock()
	return p.spawn(ctx)
}

// withinRestartBudgetLocked prunes restart timestamps outside the sliding
// window and reports whether another attempt is still permitted.
func (p *Process) withinRestartBudgetLocked() bool {
	cutoff := p.clk.Now().Add(-p.opts.RestartWindow)
	kept := p.restarts[:0]
	for _, t := range p.restarts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	p.restarts = kept
	return len(p.restarts) < p.opts.RestartBudget
}

// spawn drives Spawning -> Initializing -> Running.
func (p *Process) spawn(ctx context.Context) error {
	p.mu.Lock()
	p.state = StateSpawning
	p.stopping = false
	p.mu.Unlock()

	cmd := exec.Command(p.cfg.Command, p.cfg.Args...)
	child, err := p.exec.Start(cmd, &stderrLogWriter{logger: p.logger})
	if err != nil {
		p.settleStopped(stopReasonNeverStarted)
		return &errors.AnalyzerUnavailableError{LanguageID: p.languageID, Reason: fmt.Sprintf("starting %q: %v", p.cfg.Command, err)}
	}

	stream := jsonrpc2.NewStream(&rwc{w: child.Stdin(), r: child.Stdout()})
	conn := jsonrpc2.NewConn(stream)
	done := make(chan struct{})

	p.mu.Lock()
	p.child = child
	p.conn = conn
	p.runDone = done
	p.state = StateInitializing
	p.mu.Unlock()

	go conn.Go(ctx, p.notificationHandler())
	go p.watch(child, conn, done)

	initCtx, cancel := context.WithTimeout(ctx, p.opts.InitTimeout)
	defer cancel()
	if err := p.handshake(initCtx); err != nil {
		conn.Close()
		child.Kill()
		p.settleStopped(stopReasonNeverStarted)
		return &errors.AnalyzerUnavailableError{LanguageID: p.languageID, Reason: fmt.Sprintf("initializing: %v", err)}
	}

	p.mu.Lock()
	p.state = StateRunning
	p.idleTimer = p.clk.NewTimer(p.opts.IdleTimeout)
	idleTimer := p.idleTimer
	p.mu.Unlock()
	go p.idleWatch(idleTimer, done)
	return nil
}

// handshake sends "initialize" with this proxy's declared client
// capabilities (spec.md §4.3), then "initialized".
func (p *Process) handshake(ctx context.Context) error {
	params := &protocol.InitializeParams{
		Capabilities: clientCapabilities(),
	}
	var result protocol.InitializeResult
	if _, err := p.conn.Call(ctx, protocol.MethodInitialize, params, &result); err != nil {
		return fmt.Errorf("initialize call: %w", err)
	}
	if err := p.conn.Notify(ctx, protocol.MethodInitialized, &protocol.InitializedParams{}); err != nil {
		return fmt.Errorf("initialized notification: %w", err)
	}
	return nil
}

// SendRequest issues an outbound request and waits for the analyzer's
// reply, restarting the analyzer first if it is not currently Running.
func (p *Process) SendRequest(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	if err := p.EnsureRunning(ctx); err != nil {
		return nil, err
	}
	p.mu.Lock()
	conn := p.conn
	p.resetIdleTimerLocked()
	p.mu.Unlock()

	var result json.RawMessage
	if _, err := conn.Call(ctx, method, params, &result); err != nil {
		return nil, fmt.Errorf("analyzer request %q: %w", method, err)
	}
	return result, nil
}

// SendNotification issues an outbound notification, restarting the
// analyzer first if needed.
func (p *Process) SendNotification(ctx context.Context, method string, params interface{}) error {
	if err := p.EnsureRunning(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	conn := p.conn
	p.resetIdleTimerLocked()
	p.mu.Unlock()

	if err := conn.Notify(ctx, method, params); err != nil {
		return fmt.Errorf("analyzer notification %q: %w", method, err)
	}
	return nil
}

// Stop drives Running/Initializing -> Stopping -> Stopped: shutdown, exit,
// close stdin, wait up to the grace period, then kill, per spec.md §4.3.
func (p *Process) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.state == StateStopped {
		p.mu.Unlock()
		return nil
	}
	p.state = StateStopping
	p.stopping = true
	conn := p.conn
	child := p.child
	if p.idleTimer != nil {
		p.idleTimer.Stop()
	}
	p.mu.Unlock()

	if conn != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, p.opts.StopGrace)
		conn.Call(shutdownCtx, protocol.MethodShutdown, nil, nil)
		conn.Notify(shutdownCtx, protocol.MethodExit, nil)
		cancel()
	}
	if child != nil {
		child.Stdin().Close()
		select {
		case <-time.After(p.opts.StopGrace):
			child.Kill()
		case <-p.runDoneChan():
		}
	}
	p.settleStopped(stopReasonGraceful)
	return nil
}

func (p *Process) runDoneChan() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.runDone == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return p.runDone
}

// watch blocks until the child exits or the connection drops, then
// classifies the exit as a deliberate Stop or a crash and reacts per
// spec.md §4.3's Crashed transition.
func (p *Process) watch(child executor.Process, conn jsonrpc2.Conn, done chan struct{}) {
	defer close(done)
	<-conn.Done()

	p.mu.Lock()
	deliberate := p.stopping
	p.mu.Unlock()
	if deliberate {
		return
	}

	p.logger.Warnw("analyzer connection closed unexpectedly", "err", conn.Err())
	child.Kill()
	p.onCrash()
}

// onCrash records the crash and settles on Stopped. Within the restart
// budget it then waits RestartDelay, and the next request respawns the
// analyzer; beyond the budget it sends window/showMessage to the sink.
func (p *Process) onCrash() {
	p.mu.Lock()
	p.restarts = append(p.restarts, p.clk.Now())
	withinBudget := p.withinRestartBudgetLocked()
	p.mu.Unlock()

	if !withinBudget {
		p.settleStopped(stopReasonCrashExhausted)
		p.currentSink()("window/showMessage", showMessageJSON(fmt.Sprintf(
			"The %s analyzer crashed and exceeded its restart budget; code intelligence for this language is unavailable.", p.languageID)))
		return
	}

	p.settleStopped(stopReasonCrashExhausted)
	p.clk.Sleep(p.opts.RestartDelay)
	// The next SendRequest/SendNotification will observe Stopped with a
	// restart still available and respawn lazily; spec.md leaves eager
	// vs. lazy respawn unspecified, and lazy avoids spawning a child no
	// session currently needs.
}

func (p *Process) settleStopped(reason stopReason) {
	p.mu.Lock()
	p.state = StateStopped
	p.reason = reason
	p.conn = nil
	p.child = nil
	p.mu.Unlock()
}

// resetIdleTimerLocked must be called with p.mu held. It pushes back the
// idle deadline after outbound traffic, per spec.md §4.3's idle policy. The
// timer itself and its watcher goroutine are (re)armed once per run, in
// spawn, so that a restart after an idle stop or a crash gets its own fresh
// watcher rather than relying on one that already exited with the prior
// run's done channel.
func (p *Process) resetIdleTimerLocked() {
	if p.idleTimer != nil {
		p.idleTimer.Reset(p.opts.IdleTimeout)
	}
}

func (p *Process) idleWatch(timer clock.Timer, done <-chan struct{}) {
	select {
	case <-timer.C():
		p.logger.Infow("analyzer idle timeout elapsed, stopping")
		p.Stop(context.Background())
		p.settleStopped(stopReasonIdle)
	case <-done:
	}
}

// notificationHandler forwards the three analyzer-originated notification
// methods spec.md §4.5 names to the currently bound sink; anything else is
// acknowledged and dropped.
func (p *Process) notificationHandler() jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		switch req.Method() {
		case protocol.MethodWindowShowMessage, protocol.MethodWindowLogMessage, protocol.MethodTextDocumentPublishDiagnostics:
			p.currentSink()(req.Method(), req.Params())
		}
		return reply(ctx, nil, nil)
	}
}

// rwc adapts an analyzer child's separate stdin/stdout pipes into the
// io.ReadWriteCloser go.lsp.dev/jsonrpc2 expects.
type rwc struct {
	w io.WriteCloser
	r io.ReadCloser
}

func (c *rwc) Read(p []byte) (int, error)  { return c.r.Read(p) }
func (c *rwc) Write(p []byte) (int, error) { return c.w.Write(p) }
func (c *rwc) Close() error {
	werr := c.w.Close()
	rerr := c.r.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// stderrLogWriter routes an analyzer child's stderr to the structured log,
// per spec.md §6's "stderr is captured to logs".
type stderrLogWriter struct {
	logger *zap.SugaredLogger
}

func (w *stderrLogWriter) Write(p []byte) (int, error) {
	w.logger.Debugw("analyzer stderr", "output", string(p))
	return len(p), nil
}

func showMessageJSON(message string) json.RawMessage {
	data, _ := json.Marshal(&protocol.ShowMessageParams{
		Type:    protocol.MessageTypeError,
		Message: message,
	})
	return data
}
