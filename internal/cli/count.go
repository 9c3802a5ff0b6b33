package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// CountOptions holds flags for the count command.
type CountOptions struct {
	*RootOptions
	Filters []string
}

// CountResult is the JSON payload of the count command.
type CountResult struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CountOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "count <type>",
		Short:         "Count records of a type",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Filters, "filter", nil, "attribute filter, attr=value (repeatable)")

	return cmd
}

func runCount(opts *CountOptions, typeName string, cmd *cobra.Command) error {
	rt, err := NewRuntime(opts.ConfigPath)
	if err != nil {
		return err
	}
	defer rt.Close()

	filters, err := parseFilters(opts.Filters)
	if err != nil {
		return err
	}
	n, err := rt.Env.CountAllObjects(cmd.Context(), typeName, filters)
	if err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("count %s", typeName), err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Emit(CountResult{Type: typeName, Count: n}, func(w io.Writer) {
		fmt.Fprintln(w, n)
	})
}

// parseFilters splits repeated attr=value flags into a filter map.
// A bare attr with no "=" filters on NULL.
func parseFilters(raw []string) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	filters := make(map[string]any, len(raw))
	for _, f := range raw {
		attrName, value, found := strings.Cut(f, "=")
		if attrName == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("bad filter %q: want attr=value", f))
		}
		if !found {
			filters[attrName] = nil
			continue
		}
		filters[attrName] = value
	}
	return filters, nil
}
