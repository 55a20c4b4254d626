package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// CheckpointOptions holds flags for the checkpoint command.
type CheckpointOptions struct {
	StoreOptions
	Latest bool
}

// NewCheckpointCommand creates the checkpoint command.
func NewCheckpointCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckpointOptions{StoreOptions: StoreOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "checkpoint <run-id>",
		Short: "Inspect the checkpoints of a recorded run",
		Long: `List the checkpoints a run wrote, or print the latest snapshot.

Example:
  cellsim checkpoint --db ./runs.db 019a...
  cellsim checkpoint --db ./runs.db --latest 019a...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckpoint(opts, args[0], cmd)
		},
	}

	addDatabaseFlag(cmd, &opts.Database)
	cmd.Flags().BoolVar(&opts.Latest, "latest", false, "print the latest snapshot")
	return cmd
}

func runCheckpoint(opts *CheckpointOptions, runID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	st, err := openExistingStore(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := commandContext(cmd)
	if _, err := st.GetRun(ctx, runID); err != nil {
		return reportStoreError(formatter, "failed to read checkpoints", err)
	}

	if opts.Latest {
		rec, err := st.LatestCheckpoint(ctx, runID)
		if err != nil {
			return reportStoreError(formatter, "failed to read checkpoint", err)
		}
		snap, err := rec.Snapshot()
		if err != nil {
			return reportStoreError(formatter, "failed to decode checkpoint", err)
		}
		if formatter.JSON() {
			return formatter.SuccessForRun(runID, snap)
		}

		w := formatter.Writer
		fmt.Fprintf(w, "Checkpoint %s\n", rec.Hash)
		fmt.Fprintf(w, "  iteration:      %g\n", snap.Iteration)
		fmt.Fprintf(w, "  time:           %g s\n", snap.Time)
		fmt.Fprintf(w, "  seed:           %d\n", snap.Seed)
		fmt.Fprintf(w, "  rng draws:      %d\n", snap.RNGDraws)
		fmt.Fprintf(w, "  live molecules: %d\n", snap.LiveMolecules)
		fmt.Fprintln(w)
		rows := make([][]string, 0, len(snap.Events))
		for _, ev := range snap.Events {
			rows = append(rows, []string{ev.Type, ev.Name, strconv.FormatFloat(ev.EventTime, 'g', -1, 64)})
		}
		return formatter.Table([]string{"TYPE", "EVENT", "TIME"}, rows)
	}

	recs, err := st.ReadCheckpoints(ctx, runID)
	if err != nil {
		return reportStoreError(formatter, "failed to read checkpoints", err)
	}
	if formatter.JSON() {
		return formatter.SuccessForRun(runID, recs)
	}
	if len(recs) == 0 {
		fmt.Fprintln(formatter.Writer, "No checkpoints")
		return nil
	}
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []string{
			strconv.FormatFloat(r.Iteration, 'g', -1, 64),
			strconv.FormatFloat(r.Time, 'g', -1, 64),
			shortHash(r.Hash),
		})
	}
	return formatter.Table([]string{"ITERATION", "TIME", "HASH"}, rows)
}
