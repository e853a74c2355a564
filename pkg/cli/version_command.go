package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/JuanMarchetto/truss/pkg/constants"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (%s %s/%s)\n",
				constants.CLIName, version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
