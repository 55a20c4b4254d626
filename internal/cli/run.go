package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/cellsim/internal/compiler"
	"github.com/roach88/cellsim/internal/count"
	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/sim"
	"github.com/roach88/cellsim/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database   string
	Seed       int64
	Iterations int64
	ShowCounts bool

	// IDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs engine.RunIDGenerator
}

// RunOutput is the JSON payload of a finished run.
type RunOutput struct {
	sim.Result
	Rows []count.Row `json:"count_rows,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <model-dir>",
		Short: "Run a model to its final iteration",
		Long: `Run a CUE model to its final iteration.

With --db the run, its count buffers and a closing checkpoint are recorded
in a SQLite database (created if it doesn't exist). Without it everything
stays in memory. On Unix, SIGUSR1 writes a checkpoint at the next event
boundary; SIGINT and SIGTERM stop the run.

Example:
  cellsim run ./models/fill_and_drain
  cellsim run --db ./runs.db --seed 7 ./models/fill_and_drain`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModel(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (optional)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", -1, "override the model seed")
	cmd.Flags().Int64Var(&opts.Iterations, "iterations", -1, "override the model iteration count")
	cmd.Flags().BoolVar(&opts.ShowCounts, "counts", false, "print count buffers after the run")

	return cmd
}

func runModel(opts *RunOptions, modelDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	logger.Debug("loading model", "dir", modelDir)
	loaded, err := LoadModel(modelDir)
	if err != nil {
		return reportLoadError(formatter, err)
	}
	m := loaded.Model
	if opts.Seed >= 0 {
		m.Config.Seed = uint64(opts.Seed)
	}
	if opts.Iterations >= 0 {
		m.Config.Iterations = opts.Iterations
	}
	if errs := compiler.Validate(m); len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	runner := &sim.Runner{Logger: logger, IDs: opts.IDs}
	if opts.Database != "" {
		logger.Debug("opening database", "path", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		runner.Store = st
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	runner.OnStart = func(s *sim.Simulation) {
		watchCheckpointSignal(ctx, s.Engine, logger)
	}

	res, s, err := runner.Run(ctx, m)
	if err != nil {
		return reportRunError(formatter, res, err)
	}

	out := RunOutput{Result: res}
	if opts.ShowCounts {
		for _, b := range s.Buffers.Buffers() {
			out.Rows = append(out.Rows, s.Buffers.Rows(b)...)
		}
	}
	return outputRunResult(formatter, out)
}

// reportLoadError prints a model load failure. Compile errors are model
// findings (exit 1); missing or unreadable directories are command errors.
func reportLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load model", err)
	}
	_ = formatter.Error(loadErr.Code, loadErr.Error(), nil)
	if loadErr.Field != "" {
		return WrapExitError(ExitFailure, "model does not compile", err)
	}
	return WrapExitError(ExitCommandError, "failed to load model", err)
}

func reportRunError(formatter *OutputFormatter, res sim.Result, err error) error {
	code := string(engine.CodeOf(err))
	if code == "" {
		code = ErrCodeGeneric
	}
	details := map[string]any{"status": res.Status, "iteration": res.Iteration}
	if res.RunID == "" {
		details = nil
	}
	_ = formatter.Error(code, err.Error(), details)
	return WrapExitError(ExitFailure, "run "+statusWord(res.Status), err)
}

func statusWord(status string) string {
	if status == "" {
		return store.StatusFailed
	}
	return status
}

func outputRunResult(formatter *OutputFormatter, out RunOutput) error {
	if formatter.JSON() {
		return formatter.SuccessForRun(out.RunID, out)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s %s\n", out.RunID, out.Status)
	fmt.Fprintf(w, "  model hash:     %s\n", out.ModelHash)
	fmt.Fprintf(w, "  iteration:      %g\n", out.Iteration)
	fmt.Fprintf(w, "  time:           %g s\n", out.Time)
	fmt.Fprintf(w, "  live molecules: %d\n", out.LiveMolecules)
	fmt.Fprintf(w, "  releases fired: %d\n", out.Releases)
	fmt.Fprintf(w, "  counts fired:   %d\n", out.Counts)
	if len(out.Rows) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	return formatter.Table(countHeader, countTable(out.Rows))
}

var countHeader = []string{"BUFFER", "COLUMN", "ITERATION", "TIME", "VALUE"}

func countTable(rows []count.Row) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Buffer,
			r.Column,
			strconv.FormatFloat(r.Iteration, 'g', -1, 64),
			strconv.FormatFloat(r.Time, 'g', -1, 64),
			strconv.FormatFloat(r.Value, 'g', -1, 64),
		})
	}
	return out
}
