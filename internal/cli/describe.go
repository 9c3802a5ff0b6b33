package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gorecord/gorecord/internal/gateway"
)

// DescribeResult is the JSON payload of the describe command.
type DescribeResult struct {
	Table       string               `json:"table"`
	Columns     []gateway.ColumnMeta `json:"columns"`
	ForeignKeys []gateway.ForeignKey `json:"foreign_keys,omitempty"`
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "describe <table>",
		Short:         "Show the columns and foreign keys of a table",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(rootOpts, args[0], cmd)
		},
	}
}

func runDescribe(opts *RootOptions, table string, cmd *cobra.Command) error {
	rt, err := NewRuntime(opts.ConfigPath)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	metas, err := rt.Env.Gateway.DescribeTable(ctx, table)
	if err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("describe %s", table), err)
	}
	fks, err := rt.Env.Gateway.ForeignKeys(ctx, table)
	if err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("foreign keys of %s", table), err)
	}

	result := DescribeResult{Table: table, Columns: metas, ForeignKeys: fks}
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Emit(result, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "COLUMN\tTYPE\tNULLABLE\tKEY\tGENERATED\tDEFAULT")
		for _, m := range metas {
			key := ""
			if m.PrimaryKey {
				key = fmt.Sprintf("%d", m.KeyOrdinal)
			}
			def := ""
			if m.HasDefault {
				def = m.Default
			}
			fmt.Fprintf(tw, "%s\t%s\t%v\t%s\t%v\t%s\n", m.Name, m.DeclType, m.Nullable, key, m.Generated, def)
		}
		tw.Flush()
		for _, fk := range fks {
			fmt.Fprintf(w, "fk: %s -> %s(%s)\n", fk.FromColumn, fk.RefTable, fk.RefColumn)
		}
	})
}
