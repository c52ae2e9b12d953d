package cmd

import (
	"github.com/spf13/cobra"
)

var storeTags string

var storeCmd = &cobra.Command{
	Use:   "store <name>",
	Short: "Store a secret, reading its value from stdin",
	Args:  cobra.ExactArgs(1),
	RunE:  runStore,
}

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.Flags().StringVar(&storeTags, "tags", "", "comma-separated tags")
}

func runStore(cmd *cobra.Command, args []string) error {
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

	entry, err := svc.Store(args[0], value, splitTags(storeTags))
	if err != nil {
		exitWithError(err)
		return nil
	}

	printf("stored %s (version %d)\n", args[0], entry.Version)
	return nil
}
