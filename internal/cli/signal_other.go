//go:build !unix

package cli

import (
	"context"
	"log/slog"

	"github.com/roach88/cellsim/internal/engine"
)

// watchCheckpointSignal is a no-op where SIGUSR1 does not exist.
func watchCheckpointSignal(context.Context, *engine.Engine, *slog.Logger) {}
