package cmd

import (
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var listTable bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List secret names visible to the current scope",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listTable, "table", false, "render as a table instead of one name per line")
}

func runList(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		exitWithError(err)
		return nil
	}

	names, err := svc.List()
	if err != nil {
		exitWithError(err)
		return nil
	}

	if !listTable {
		for _, name := range names {
			printf("%s\n", name)
		}
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Name"})
	rows := make([][]string, len(names))
	for i, name := range names {
		rows[i] = []string{name}
	}
	_ = table.Bulk(rows)
	_ = table.Render()
	return nil
}
