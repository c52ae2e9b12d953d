package cmd

import (
	"fmt"

	"github.com/authy/authy/internal/apperr"
	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the tamper-evident audit log",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the audit log's hash chain",
	Args:  cobra.NoArgs,
	RunE:  runAuditVerify,
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print audit log entries",
	Args:  cobra.NoArgs,
	RunE:  runAuditList,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd, auditListCmd)
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		exitWithError(err)
		return nil
	}

	ok, seq, err := svc.VerifyAuditChain()
	if err != nil {
		exitWithError(err)
		return nil
	}
	if !ok {
		exitWithError(apperr.New(apperr.AuditChainBroken, fmt.Sprintf("audit chain broken at sequence %d", seq)))
		return nil
	}

	printf("OK\n")
	return nil
}

func runAuditList(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		exitWithError(err)
		return nil
	}

	entries, err := svc.AuditEntries()
	if err != nil {
		exitWithError(err)
		return nil
	}

	for _, e := range entries {
		printf("%d  %s  %s  %s  %s\n", e.Sequence, e.Timestamp.Format("2006-01-02T15:04:05Z07:00"), e.Operation, e.SecretName, e.Outcome)
	}
	return nil
}
