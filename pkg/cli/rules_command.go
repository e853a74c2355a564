package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JuanMarchetto/truss/pkg/config"
	"github.com/JuanMarchetto/truss/pkg/console"
)

// NewRulesCommand creates the rules command, which lists the rule ids that
// diagnostics carry and configuration files may name.
func NewRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the validation rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOutput, _ := cmd.Flags().GetBool("json")
			names := config.KnownRuleNames()
			out := cmd.OutOrStdout()

			if jsonOutput {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				if err := encoder.Encode(names); err != nil {
					return ioError(fmt.Errorf("failed to write rules: %w", err))
				}
				return nil
			}
			fmt.Fprint(out, console.RenderSlice("", names))
			return nil
		},
	}
	cmd.Flags().BoolP("json", "j", false, "Output rule names as a JSON array")
	return cmd
}
