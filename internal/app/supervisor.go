package app

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ShutdownDeadline is the hard-kill budget between a stop signal and the
// process being torn down regardless of what cleanup is still running, per
// spec.md §4.7/§6. Module installs it as the Fx graph's StopTimeout, so it
// bounds every OnStop hook together: transport refusing new connections
// and analyzer.Manager draining subprocesses. No OnStop hook closes live
// proxy.Sessions, so they send no didClose during shutdown.
const ShutdownDeadline = 10 * time.Second

// registerSupervisor logs process-wide start/stop transitions. Its hook is
// registered last, so its OnStart runs after every other hook has started
// and its OnStop runs before any other hook stops. The actual shutdown
// ordering (stop accepting connections, then drain analyzers) is
// expressed by Fx's own reverse-order-of-registration OnStop sequencing:
// transport.Module's OnStop (http.Server.Shutdown, which closes the
// listener but leaves already-upgraded WebSocket connections open) is
// registered after analyzer.Module's, so Fx stops the transport first and
// the analyzer manager second. The deadline
// itself is enforced by Module's fx.StopTimeout(ShutdownDeadline), not by
// this hook: main.go observes whether that deadline was hit by checking
// the error application.Stop returns and exiting 1 if so.
func registerSupervisor(lc fx.Lifecycle, logger *zap.SugaredLogger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("lsp-proxy started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("lsp-proxy stopping")
			return nil
		},
	})
}
