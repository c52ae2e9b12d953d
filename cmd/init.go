package cmd

import (
	"github.com/spf13/cobra"

	"github.com/authy/authy/internal/facade"
	"github.com/authy/authy/internal/vaultstore"
)

var initGenerateKeyfile string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new, empty vault",
	Long: `Init creates a new encrypted vault at the resolved home directory. At
least one recipient must be supplied: a passphrase (flag, AUTHY_PASSPHRASE,
or an interactive prompt) and/or a freshly generated identity keyfile.`,
	Example: `  # Passphrase-protected vault
  authy init

  # Keyfile-only vault, for unattended use
  authy init --generate-keyfile /tmp/k`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initGenerateKeyfile, "generate-keyfile", "", "generate an identity keypair and write its private half to this path")
}

func runInit(cmd *cobra.Command, args []string) error {
	recipients, err := recipientsFromFlags(initGenerateKeyfile)
	if err != nil {
		exitWithError(err)
		return nil
	}

	home := vaultstore.ResolveHome(resolveHome())
	if _, err := facade.Init(home, recipients, keyfileFlag); err != nil {
		exitWithError(err)
		return nil
	}

	printf("Vault initialized at %s\n", home)
	return nil
}
