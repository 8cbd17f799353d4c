package main

import (
	"context"
	"os"

	"go.uber.org/fx"

	"github.com/opencanvas/lsp-proxy/internal/app"
)

// main drives the Fx application through Start/Done/Stop by hand instead of
// fx.App.Run, so it can report the exit codes spec.md §6 documents: 0 for a
// clean signal-triggered shutdown, 1 for an unrecoverable startup error or a
// shutdown that blew past app.ShutdownDeadline.
func main() {
	application := fx.New(app.Module)

	startCtx, cancel := context.WithTimeout(context.Background(), application.StartTimeout())
	defer cancel()
	if err := application.Start(startCtx); err != nil {
		os.Exit(1)
	}

	<-application.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), application.StopTimeout())
	defer stopCancel()
	if err := application.Stop(stopCtx); err != nil {
		os.Exit(1)
	}
}
