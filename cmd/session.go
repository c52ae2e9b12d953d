package cmd

import (
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/authy/authy/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage revocable session tokens",
}

var (
	sessionScope   string
	sessionTTL     string
	sessionLabel   string
	sessionRunOnly bool
)

var sessionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a session token scoped to a policy",
	Args:  cobra.NoArgs,
	RunE:  runSessionCreate,
}

var sessionRevokeCmd = &cobra.Command{
	Use:   "revoke <id>",
	Short: "Revoke a session by id",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionRevoke,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessionList,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionCreateCmd, sessionRevokeCmd, sessionListCmd)

	sessionCreateCmd.Flags().StringVar(&sessionScope, "scope", "", "policy name this session is scoped to (required)")
	sessionCreateCmd.Flags().StringVar(&sessionTTL, "ttl", "1h", "session lifetime, e.g. 90m, 12h, 2d")
	sessionCreateCmd.Flags().StringVar(&sessionLabel, "label", "", "human-readable label")
	sessionCreateCmd.Flags().BoolVar(&sessionRunOnly, "run-only", false, "token may only be used via `run`, never `get`")
	_ = sessionCreateCmd.MarkFlagRequired("scope")
}

func runSessionCreate(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		exitWithError(err)
		return nil
	}

	ttl, err := session.ParseTTL(sessionTTL)
	if err != nil {
		exitWithError(err)
		return nil
	}

	token, rec, err := svc.SessionCreate(sessionScope, ttl, sessionLabel, sessionRunOnly)
	if err != nil {
		exitWithError(err)
		return nil
	}

	printf("%s\n", token)
	printf("id: %s  scope: %s  expires: %s\n", rec.ID, rec.Scope, rec.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"))
	return nil
}

func runSessionRevoke(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		exitWithError(err)
		return nil
	}

	if err := svc.SessionRevoke(args[0]); err != nil {
		exitWithError(err)
		return nil
	}

	printf("revoked %s\n", args[0])
	return nil
}

func runSessionList(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		exitWithError(err)
		return nil
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	for _, rec := range svc.SessionList() {
		status := green("active")
		if rec.Revoked {
			status = red("revoked")
		}
		printf("%s  scope=%s  expires=%s  run-only=%v  %s\n",
			rec.ID, rec.Scope, humanize.Time(rec.ExpiresAt), rec.RunOnly, status)
	}
	return nil
}
