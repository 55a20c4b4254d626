//go:build unix

package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/cellsim/internal/engine"
)

// watchCheckpointSignal turns SIGUSR1 into checkpoint requests until ctx
// is done.
func watchCheckpointSignal(ctx context.Context, eng *engine.Engine, logger *slog.Logger) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case sig := <-ch:
				logger.Info("checkpoint requested", "signal", sig)
				eng.RequestCheckpoint()
			case <-ctx.Done():
				return
			}
		}
	}()
}
