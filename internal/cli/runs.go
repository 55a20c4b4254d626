package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/cellsim/internal/store"
)

// StoreOptions holds flags for commands that read a run database.
type StoreOptions struct {
	*RootOptions
	Database string
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Long: `List the runs recorded in a database, oldest first.

Example:
  cellsim runs --db ./runs.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListRuns(opts, cmd)
		},
	}

	addDatabaseFlag(cmd, &opts.Database)
	return cmd
}

func addDatabaseFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVar(dst, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
}

// openExistingStore opens a database for reading. Unlike run, it refuses
// to create a missing file.
func openExistingStore(formatter *OutputFormatter, path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		msg := fmt.Sprintf("database not found: %s", path)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return nil, NewExitError(ExitCommandError, msg)
	}
	st, err := store.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// reportStoreError maps a store read failure to an exit error. Unknown runs
// and missing checkpoints are command errors.
func reportStoreError(formatter *OutputFormatter, what string, err error) error {
	if errors.Is(err, store.ErrRunNotFound) || errors.Is(err, store.ErrCheckpointNotFound) {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, what, err)
	}
	_ = formatter.Error(ErrCodeStore, err.Error(), nil)
	return WrapExitError(ExitCommandError, what, err)
}

func runListRuns(opts *StoreOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	st, err := openExistingStore(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(commandContext(cmd))
	if err != nil {
		return reportStoreError(formatter, "failed to list runs", err)
	}

	if formatter.JSON() {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			r.ModelName,
			r.Status,
			strconv.FormatUint(r.Seed, 10),
			strconv.FormatFloat(r.FinalIteration, 'g', -1, 64) + "/" + strconv.FormatInt(r.Iterations, 10),
			shortHash(r.ModelHash),
		})
	}
	return formatter.Table([]string{"RUN", "MODEL", "STATUS", "SEED", "ITERATION", "HASH"}, rows)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
