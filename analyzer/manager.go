package analyzer

import (
	"context"
	"sync"

	tally "github.com/uber-go/tally/v4"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/opencanvas/lsp-proxy/internal/clock"
	"github.com/opencanvas/lsp-proxy/internal/errors"
	"github.com/opencanvas/lsp-proxy/internal/executor"
)

// Module provides a Manager to the Fx graph and stops every analyzer it
// started when the application shuts down.
var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(registerLifecycle),
)

// Manager owns at most one Process per languageId, lazily started on first
// use and shared across every session that opens a document of that
// language, per spec.md §4.1/§4.4.
type Manager interface {
	// GetOrCreate returns the Process for languageID, starting it if this
	// is the first caller to need it. Concurrent callers for the same
	// languageID coalesce onto a single spawn attempt.
	GetOrCreate(ctx context.Context, languageID string) (*Process, error)
	// Rebind atomically points languageID's notification sink at sink,
	// used when a reconnecting session takes over an analyzer already in
	// use, per spec.md §4.4.
	Rebind(languageID string, sink Sink)
	// StopAll stops every running analyzer, per spec.md §6's shutdown
	// sequence.
	StopAll(ctx context.Context) error
}

type starting struct {
	done chan struct{}
	err  error
}

type manager struct {
	configs map[string]LanguageConfig
	opts    Options
	exec    executor.Executor
	clk     clock.Clock
	logger  *zap.SugaredLogger
	scope   tally.Scope

	mu         sync.Mutex
	processes  map[string]*Process
	inFlight   map[string]*starting
}

// Params is the Fx input for New.
type Params struct {
	fx.In

	Config   config.Provider
	Executor executor.Executor
	Clock    clock.Clock
	Logger   *zap.SugaredLogger
	Scope    tally.Scope
}

// New returns a Manager reading analyzer commands from the Fx-provided
// config.Provider.
func New(p Params) (Manager, error) {
	configs, err := LoadLanguageConfigs(p.Config)
	if err != nil {
		return nil, err
	}
	return &manager{
		configs:   configs,
		opts:      DefaultOptions(),
		exec:      p.Executor,
		clk:       p.Clock,
		logger:    p.Logger,
		scope:     p.Scope,
		processes: make(map[string]*Process),
		inFlight:  make(map[string]*starting),
	}, nil
}

func registerLifecycle(lc fx.Lifecycle, m Manager) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return m.StopAll(ctx)
		},
	})
}

func (m *manager) GetOrCreate(ctx context.Context, languageID string) (*Process, error) {
	cfg, ok := Resolve(m.configs, languageID)
	if !ok {
		return nil, &errors.AnalyzerUnavailableError{LanguageID: languageID, Reason: "no analyzer configured for this language"}
	}

	for {
		m.mu.Lock()
		if p, ok := m.processes[languageID]; ok {
			m.mu.Unlock()
			if err := p.EnsureRunning(ctx); err != nil {
				return nil, err
			}
			return p, nil
		}
		if s, ok := m.inFlight[languageID]; ok {
			m.mu.Unlock()
			select {
			case <-s.done:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		s := &starting{done: make(chan struct{})}
		m.inFlight[languageID] = s
		m.mu.Unlock()

		p := NewProcess(languageID, cfg, m.opts, m.exec, m.clk, m.logger)
		err := p.EnsureRunning(ctx)

		m.mu.Lock()
		if err == nil {
			m.processes[languageID] = p
		}
		delete(m.inFlight, languageID)
		m.updateGaugeLocked()
		s.err = err
		m.mu.Unlock()
		close(s.done)

		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

func (m *manager) Rebind(languageID string, sink Sink) {
	m.mu.Lock()
	p, ok := m.processes[languageID]
	m.mu.Unlock()
	if ok {
		p.Rebind(sink)
	}
}

func (m *manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	processes := make([]*Process, 0, len(m.processes))
	for _, p := range m.processes {
		processes = append(processes, p)
	}
	m.processes = make(map[string]*Process)
	m.updateGaugeLocked()
	m.mu.Unlock()

	var err error
	for _, p := range processes {
		err = multierr.Append(err, p.Stop(ctx))
	}
	return err
}

// updateGaugeLocked must be called with m.mu held.
func (m *manager) updateGaugeLocked() {
	if m.scope == nil {
		return
	}
	m.scope.Gauge("running_analyzers").Update(float64(len(m.processes)))
}
