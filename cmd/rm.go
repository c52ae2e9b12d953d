package cmd

import (
	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Remove a secret",
	Args:  cobra.ExactArgs(1),
	RunE:  runRm,
}

func init() {
	rootCmd.AddCommand(rmCmd)
}

func runRm(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		exitWithError(err)
		return nil
	}

	if err := svc.Remove(args[0]); err != nil {
		exitWithError(err)
		return nil
	}

	printf("removed %s\n", args[0])
	return nil
}
