// Package cli is the command-line surface: one command invocation is one page
// activation.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"healthmate/internal/app"
)

type options struct {
	configFile string
	profile    string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "healthmate",
		Short:         "healthmate tracks daily health metrics and meals from your terminal",
		Long:          "healthmate logs sleep, water, steps, mood, weight and meals per day against the MyHealthMate backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "Path to config file (default $HEALTHMATE_CONFIG or <config dir>/healthmate/config.yaml)")
	root.PersistentFlags().StringVar(&opts.profile, "profile", "", "Session profile to use (default from config)")

	root.AddCommand(
		newLoginCmd(opts),
		newSignupCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newStatusCmd(opts),
		newVersionCmd(),
		newRecordCmd(opts, healthKind),
		newRecordCmd(opts, mealKind),
		newCoachCmd(opts),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute(ctx context.Context) {
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		printError(root, err)
		os.Exit(1)
	}
}

func printError(cmd *cobra.Command, err error) {
	var re *app.RedirectError
	if errors.As(err, &re) {
		fmt.Fprintln(cmd.ErrOrStderr(), re.Notice)
		fmt.Fprintln(cmd.ErrOrStderr(), "Run `healthmate login` to continue.")
		return
	}
	fmt.Fprintln(cmd.ErrOrStderr(), err)
}
