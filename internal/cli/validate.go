package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ValidationIssue is one problem found while checking the
// declarations against the live schema.
type ValidationIssue struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ValidationResult is the JSON payload of the validate-defs command.
type ValidationResult struct {
	Checked int               `json:"checked"`
	Issues  []ValidationIssue `json:"issues,omitempty"`
}

// NewValidateDefsCommand creates the validate-defs command.
func NewValidateDefsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "validate-defs",
		Short:         "Check the entity declarations against the database schema",
		Long:          "Compile every CUE entity declaration and verify its table binds cleanly: table exists, no attribute collisions, usable primary key, declared relation targets are registered.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidateDefs(rootOpts, cmd)
		},
	}
}

func runValidateDefs(opts *RootOptions, cmd *cobra.Command) error {
	rt, err := NewRuntime(opts.ConfigPath)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	result := ValidationResult{}
	for _, name := range rt.Env.Registry.Names() {
		def, _ := rt.Env.Registry.DefinitionFor(name)
		result.Checked++

		binding, err := rt.Env.Catalog.BindingFor(ctx, def)
		if err != nil {
			result.Issues = append(result.Issues, ValidationIssue{Type: name, Message: err.Error()})
			continue
		}
		for attrName := range def.Types {
			if !binding.HasAttr(attrName) {
				result.Issues = append(result.Issues, ValidationIssue{
					Type:    name,
					Message: fmt.Sprintf("declared attribute %q has no column in %s", attrName, binding.Table),
				})
			}
		}
		for _, rel := range def.Relations {
			if _, ok := rt.Env.Registry.DefinitionFor(rel.TargetType); !ok {
				result.Issues = append(result.Issues, ValidationIssue{
					Type:    name,
					Message: fmt.Sprintf("relation %s targets unregistered type %q", rel.SourceAttr, rel.TargetType),
				})
			}
		}
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	emitErr := formatter.Emit(result, func(w io.Writer) {
		for _, issue := range result.Issues {
			fmt.Fprintf(w, "%s: %s\n", issue.Type, issue.Message)
		}
		fmt.Fprintf(w, "%d definition(s) checked, %d issue(s)\n", result.Checked, len(result.Issues))
	})
	if emitErr != nil {
		return emitErr
	}
	if len(result.Issues) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation issue(s)", len(result.Issues)))
	}
	return nil
}
