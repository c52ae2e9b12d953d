package cmd

import (
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the authy version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printf("authy %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
