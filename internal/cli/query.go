package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <type> <sql> [param]...",
		Short: "Run a SQL query and map the rows to records",
		Long: `Run an arbitrary SELECT and bind each row to a record of the given
type. Placeholders in the SQL are filled from the trailing arguments.
Columns outside the type's schema become dynamic attributes.`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(rootOpts, args[0], args[1], args[2:], cmd)
		},
	}
}

func runQuery(opts *RootOptions, typeName, query string, params []string, cmd *cobra.Command) error {
	rt, err := NewRuntime(opts.ConfigPath)
	if err != nil {
		return err
	}
	defer rt.Close()

	sqlParams := make([]any, len(params))
	for i, p := range params {
		sqlParams[i] = p
	}
	records, err := rt.Env.GetObjectsByQuery(cmd.Context(), typeName, query, sqlParams...)
	if err != nil {
		return WrapExitError(ExitFailure, "query", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Emit(records, func(w io.Writer) {
		for _, r := range records {
			renderRecord(w, r)
		}
		fmt.Fprintf(w, "%d record(s)\n", len(records))
	})
}
