package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/cellsim/internal/compiler"
	"github.com/roach88/cellsim/internal/sim"
)

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
	Until float64
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump <model-dir>",
		Short: "Print the scheduler state of a model",
		Long: `Build a model and print its scheduled events.

With --until the model runs in memory up to that iteration first, so the
dump shows each event's next firing time and pattern position at that
point. In JSON mode the output is the checkpoint snapshot.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(opts, args[0], cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Until, "until", 0, "run to this iteration before dumping")

	return cmd
}

func runDump(opts *DumpOptions, modelDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	loaded, err := LoadModel(modelDir)
	if err != nil {
		return reportLoadError(formatter, err)
	}
	if errs := compiler.Validate(loaded.Model); len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	s, err := sim.Build(loaded.Model, sim.Options{Logger: logger, RunID: "dump"})
	if err != nil {
		return reportRunError(formatter, sim.Result{}, err)
	}
	if opts.Until > 0 {
		if err := s.Engine.Run(commandContext(cmd), min(opts.Until, s.Until())); err != nil {
			return reportRunError(formatter, sim.Result{}, err)
		}
	}

	if formatter.JSON() {
		return formatter.Success(s.Engine.Snapshot())
	}
	s.Engine.Dump(formatter.Writer)
	return nil
}
