package cmd

import (
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print a secret's value to stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		exitWithError(err)
		return nil
	}

	value, err := svc.Get(args[0])
	if err != nil {
		exitWithError(err)
		return nil
	}

	printf("%s\n", value)
	return nil
}
