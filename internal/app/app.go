// Package app wires every subsystem into one Fx graph, mirroring the
// teacher's app.Module: a flat fx.Options list of each package's Module
// plus the handful of process-wide values (the tally root scope, this
// graph's own shutdown hook) the teacher also provides inline rather than
// through a dedicated package.
package app

import (
	"context"
	"time"

	tally "github.com/uber-go/tally/v4"
	"go.uber.org/fx"

	"github.com/opencanvas/lsp-proxy/analyzer"
	"github.com/opencanvas/lsp-proxy/gateway"
	"github.com/opencanvas/lsp-proxy/internal/clock"
	"github.com/opencanvas/lsp-proxy/internal/core"
	"github.com/opencanvas/lsp-proxy/internal/executor"
	"github.com/opencanvas/lsp-proxy/internal/fs"
	"github.com/opencanvas/lsp-proxy/repository/session"
	"github.com/opencanvas/lsp-proxy/transport"
	"github.com/opencanvas/lsp-proxy/workspace"
)

// Module defines the lsp-proxy application.
var Module = fx.Options(
	core.ConfigModule,
	core.LoggerModule,
	fs.Module,
	executor.Module,
	workspace.Module,
	session.Module,
	analyzer.Module,
	gateway.Module,
	transport.Module,

	fx.Provide(clock.New),
	fx.Provide(newRootScope),

	// StopTimeout bounds the whole OnStop sequence (transport closing its
	// listener, analyzer.Manager stopping subprocesses; live sessions are not
	// closed by it) with one shared deadline, per spec.md §4.7/§6. main.go turns
	// a deadline-expiry error from this into the process's exit code.
	fx.StopTimeout(ShutdownDeadline),

	fx.Invoke(registerSupervisor),
)

// newRootScope provides the tally.Scope shared across every gauge this
// proxy emits (analyzer.Manager's running_analyzers, repository/session's
// active_sessions), closing its reporter on shutdown the same way the
// teacher's app.Module does inline.
func newRootScope(lc fx.Lifecycle) tally.Scope {
	rs, closer := tally.NewRootScope(tally.ScopeOptions{
		Tags: map[string]string{
			"service": "lsp-proxy",
		},
	}, time.Second)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return closer.Close()
		},
	})

	return rs
}
