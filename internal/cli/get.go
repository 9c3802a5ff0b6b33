package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gorecord/gorecord/internal/attr"
	"github.com/gorecord/gorecord/internal/record"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <type> <key>...",
		Short:         "Load one record by its identity",
		Long:          "Load a record of the given type by its key. Compound keys take one argument per key column, in key order.",
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, args[0], args[1:], cmd)
		},
	}
}

func runGet(opts *RootOptions, typeName string, keys []string, cmd *cobra.Command) error {
	rt, err := NewRuntime(opts.ConfigPath)
	if err != nil {
		return err
	}
	defer rt.Close()

	keyVals := make([]any, len(keys))
	for i, k := range keys {
		keyVals[i] = k
	}
	r, err := record.ByKey(cmd.Context(), rt.Env, typeName, keyVals...)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("load %s", typeName), err)
	}
	if !r.IsLoaded() {
		return NewExitError(ExitFailure, fmt.Sprintf("%s %v not found", typeName, keys))
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Emit(r, func(w io.Writer) {
		renderRecord(w, r)
	})
}

func renderRecord(w io.Writer, r *record.Record) {
	fmt.Fprintf(w, "%s %v\n", r.Type(), r.GetID())
	names := r.Binding().Attrs()
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %s\n", name, attr.Format(r.Get(name)))
	}
}
