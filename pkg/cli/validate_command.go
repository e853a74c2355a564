package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JuanMarchetto/truss/pkg/constants"
	"github.com/JuanMarchetto/truss/pkg/logger"
)

var validateCommandLog = logger.New("cli:validate_command")

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [path]...",
		Short: "Validate GitHub Actions workflow files",
		Long: `Validate one or more GitHub Actions workflow files without running them.

Paths may be files, directories (searched recursively for .yml and .yaml
files) or glob patterns such as '.github/**/*.yml'. Use '-' to read a workflow
from standard input. With no path, ` + DefaultWorkflowDir + ` is validated.

A .truss.yml, .truss.yaml or .truss.toml file found in the first path's
directory or one of its parents can disable rules, change their severity and
ignore files.

Exit status is 0 when no file has errors, 1 when some file has errors, 2 for
usage or configuration errors and 3 when a file cannot be read.

Examples:
  ` + constants.CLIName + ` validate                              # Validate .github/workflows
  ` + constants.CLIName + ` validate ci.yml release.yml           # Validate specific files
  ` + constants.CLIName + ` validate '.github/**/*.yml'           # Validate files matching a glob
  ` + constants.CLIName + ` validate - < ci.yml                   # Validate standard input
  ` + constants.CLIName + ` validate --json                       # Output results in JSON format
  ` + constants.CLIName + ` validate --severity error             # Show errors only
  ` + constants.CLIName + ` validate --watch                      # Revalidate on changes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := ValidateOptions{
				Paths:  args,
				Stdin:  cmd.InOrStdin(),
				Stdout: cmd.OutOrStdout(),
				Stderr: cmd.ErrOrStderr(),
			}
			opts.Quiet, _ = cmd.Flags().GetBool("quiet")
			opts.JSON, _ = cmd.Flags().GetBool("json")
			opts.Severity, _ = cmd.Flags().GetString("severity")
			opts.ConfigPath, _ = cmd.Flags().GetString("config")
			opts.NoConfig, _ = cmd.Flags().GetBool("no-config")
			opts.Sequential, _ = cmd.Flags().GetBool("sequential")
			opts.Stats, _ = cmd.Flags().GetBool("stats")
			opts.Watch, _ = cmd.Flags().GetBool("watch")
			opts.Actionlint, _ = cmd.Flags().GetBool("actionlint")

			validateCommandLog.Printf("Running validate command: paths=%v, json=%t, watch=%t", args, opts.JSON, opts.Watch)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if opts.Watch {
				var stop context.CancelFunc
				ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()
			}
			return RunValidate(ctx, opts)
		},
	}

	cmd.Flags().BoolP("quiet", "q", false, "Print diagnostics only, without source context or summary")
	cmd.Flags().BoolP("json", "j", false, "Output results in JSON format")
	cmd.Flags().String("severity", "info", "Minimum severity to report: error, warning or info")
	cmd.Flags().StringP("config", "c", "", "Configuration file (default: discovered .truss.yml)")
	cmd.Flags().Bool("no-config", false, "Ignore configuration files")
	cmd.Flags().Bool("sequential", false, "Run rules and files one at a time")
	cmd.Flags().Bool("stats", false, "Display a per-file statistics table")
	cmd.Flags().BoolP("watch", "w", false, "Revalidate files when they change")
	cmd.Flags().Bool("actionlint", false, "Also report actionlint findings as warnings")

	_ = cmd.RegisterFlagCompletionFunc("severity", cobra.FixedCompletions(
		[]string{"error", "warning", "info"}, cobra.ShellCompDirectiveNoFileComp))
	cmd.ValidArgsFunction = func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"yml", "yaml"}, cobra.ShellCompDirectiveFilterFileExt
	}
	return cmd
}
