package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JuanMarchetto/truss/pkg/cli"
	"github.com/JuanMarchetto/truss/pkg/constants"
)

// Build-time variables set by the release build
var (
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   constants.CLIName,
	Short: "Semantic validator for GitHub Actions workflows",
	Long: `truss checks GitHub Actions workflow files for mistakes that YAML syntax
checks miss: unknown job dependencies and dependency cycles, step output
references that cannot resolve, invalid cron schedules, malformed expressions,
script injection risks and more.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.Version = version
	rootCmd.AddCommand(cli.NewValidateCommand())
	rootCmd.AddCommand(cli.NewRulesCommand())
	rootCmd.AddCommand(cli.NewVersionCommand(version))
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the root command and returns the process exit code. A
// validation failure has already been reported by the command itself.
func run(args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, cli.ErrValidationFailed) {
		cli.PrintValidationError(rootCmd.ErrOrStderr(), err)
		if cli.ExitCode(err) == cli.ExitUsage {
			fmt.Fprintf(rootCmd.ErrOrStderr(), "Run '%s --help' for usage.\n", rootCmd.CommandPath())
		}
	}
	return cli.ExitCode(err)
}
