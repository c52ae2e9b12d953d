// Package cmd is the thin cobra CLI wrapping internal/facade. No business
// logic lives here: each command resolves credentials, calls exactly one
// facade method, and prints the result, per spec.md section 1.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/authy/authy/internal/config"
)

var (
	homeFlag           string
	jsonOutput         bool
	passphraseFlag     string
	keyfileFlag        string
	tokenFlag          string
	nonInteractiveFlag bool

	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "authy",
	Short: "A local, single-operator secrets manager",
	Long: `Authy stores secrets in a single encrypted vault file and exposes them to
scripts and subprocesses under policy-scoped, revocable session tokens.

There is no server and no daemon: every command opens the vault, performs
one operation, and exits.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command, mapping any returned error to the
// stable exit codes spec.md section 7 defines.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		exitWithError(err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homeFlag, "home", "", "vault home directory (default $AUTHY_HOME or ~/.authy)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit errors as a structured JSON object on stderr (payloads stay plain text)")
	rootCmd.PersistentFlags().StringVar(&passphraseFlag, "passphrase", "", "vault passphrase (prefer AUTHY_PASSPHRASE)")
	rootCmd.PersistentFlags().StringVar(&keyfileFlag, "keyfile", "", "path to an identity keyfile (prefer AUTHY_KEYFILE)")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "session token (prefer AUTHY_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&nonInteractiveFlag, "non-interactive", false, "never prompt; fail with NoCredentials instead")
}

// resolveHome folds the --home flag, AUTHY_HOME, and the optional config
// file's path_override into the single override vaultstore.ResolveHome
// expects, in that priority order.
func resolveHome() string {
	if homeFlag != "" {
		return homeFlag
	}
	if env := os.Getenv("AUTHY_HOME"); env != "" {
		return env
	}
	return config.Load().VaultPathOverride
}

func printf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, format, args...)
}

func eprintf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
}
