package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CountsOptions holds flags for the counts command.
type CountsOptions struct {
	StoreOptions
	Buffer string
}

// NewCountsCommand creates the counts command.
func NewCountsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CountsOptions{StoreOptions: StoreOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "counts <run-id>",
		Short: "Print the count buffers of a recorded run",
		Long: `Print the reaction-data rows a run appended, in append order.

Example:
  cellsim counts --db ./runs.db 019a...
  cellsim counts --db ./runs.db --buffer out --format json 019a...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCounts(opts, args[0], cmd)
		},
	}

	addDatabaseFlag(cmd, &opts.Database)
	cmd.Flags().StringVar(&opts.Buffer, "buffer", "", "only print this buffer")
	return cmd
}

func runCounts(opts *CountsOptions, runID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	st, err := openExistingStore(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := commandContext(cmd)
	if _, err := st.GetRun(ctx, runID); err != nil {
		return reportStoreError(formatter, "failed to read counts", err)
	}
	rows, err := st.ReadCounts(ctx, runID, opts.Buffer)
	if err != nil {
		return reportStoreError(formatter, "failed to read counts", err)
	}

	if formatter.JSON() {
		return formatter.SuccessForRun(runID, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(formatter.Writer, "No count rows")
		return nil
	}
	return formatter.Table(countHeader, countTable(rows))
}
