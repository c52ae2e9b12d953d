package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/authy/authy/internal/dispatch"
)

var (
	runUppercase   bool
	runReplaceDash string
	runPrefix      string
)

var runCmd = &cobra.Command{
	Use:   "run -- <command> [args...]",
	Short: "Run a command with visible secrets injected into its environment",
	Long: `Run injects every secret visible to the current scope into the child's
environment, transforms its name per --uppercase/--replace-dash/--prefix,
and exits with the child's own exit code. Run-only session tokens may use
this command even when they cannot use get.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runUppercase, "uppercase", false, "uppercase injected variable names")
	runCmd.Flags().StringVar(&runReplaceDash, "replace-dash", "", "single character to replace dashes with in variable names")
	runCmd.Flags().StringVar(&runPrefix, "prefix", "", "prefix applied to every injected variable name")
}

// runRun bypasses the normal exitWithError mapping: a dispatched child's
// own exit code is the process exit code (spec.md section 6), not a
// Kind-derived one.
func runRun(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		exitWithError(err)
		return nil
	}

	var dash rune
	if runReplaceDash != "" {
		dash = []rune(runReplaceDash)[0]
	}
	transform := dispatch.TransformOpts{
		Uppercase:   runUppercase,
		DashReplace: dash,
		Prefix:      runPrefix,
	}

	result, err := svc.Run(cmd.Context(), transform, args)
	if err != nil {
		exitWithError(err)
		return nil
	}

	os.Exit(result.ExitCode)
	return nil
}
