package cmd

import (
	"github.com/spf13/cobra"
)

var rotateCmd = &cobra.Command{
	Use:   "rotate <name>",
	Short: "Replace a secret's value, reading the new value from stdin",
	Args:  cobra.ExactArgs(1),
	RunE:  runRotate,
}

func init() {
	rootCmd.AddCommand(rotateCmd)
}

func runRotate(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		exitWithError(err)
		return nil
	}

	value, err := readStdinValue()
	if err != nil {
		exitWithError(err)
		return nil
	}

	entry, err := svc.Rotate(args[0], value)
	if err != nil {
		exitWithError(err)
		return nil
	}

	printf("rotated %s to version %d\n", args[0], entry.Version)
	return nil
}
