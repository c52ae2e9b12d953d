package cmd

import (
	"github.com/spf13/cobra"

	"github.com/authy/authy/internal/vaultstore"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage named glob allow/deny policies",
}

var (
	policyAllow       string
	policyDeny        string
	policyDescription string
	policyRunOnly     bool
	policyTestScope   string
)

var policyCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create or overwrite a named policy",
	Args:  cobra.ExactArgs(1),
	RunE:  runPolicyCreate,
}

var policyTestCmd = &cobra.Command{
	Use:   "test <name>",
	Short: "Report whether a policy would permit reading a secret name",
	Args:  cobra.ExactArgs(1),
	RunE:  runPolicyTest,
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List policy names",
	Args:  cobra.NoArgs,
	RunE:  runPolicyList,
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyCreateCmd, policyTestCmd, policyListCmd)

	policyCreateCmd.Flags().StringVar(&policyAllow, "allow", "", "comma-separated allow glob patterns")
	policyCreateCmd.Flags().StringVar(&policyDeny, "deny", "", "comma-separated deny glob patterns")
	policyCreateCmd.Flags().StringVar(&policyDescription, "description", "", "human-readable description")
	policyCreateCmd.Flags().BoolVar(&policyRunOnly, "run-only", false, "sessions under this policy may only be used via `run`, never `get`")

	policyTestCmd.Flags().StringVar(&policyTestScope, "scope", "", "policy name to test against (required)")
	_ = policyTestCmd.MarkFlagRequired("scope")
}

func runPolicyCreate(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		exitWithError(err)
		return nil
	}

	p := &vaultstore.Policy{
		Name:        args[0],
		Allow:       splitTags(policyAllow),
		Deny:        splitTags(policyDeny),
		Description: policyDescription,
		RunOnly:     policyRunOnly,
	}
	if err := svc.CreatePolicy(p); err != nil {
		exitWithError(err)
		return nil
	}

	printf("policy %s created\n", p.Name)
	return nil
}

func runPolicyTest(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		exitWithError(err)
		return nil
	}

	allowed, err := svc.TestPolicy(policyTestScope, args[0])
	if err != nil {
		exitWithError(err)
		return nil
	}

	if allowed {
		printf("ALLOWED\n")
	} else {
		printf("DENIED\n")
	}
	return nil
}

func runPolicyList(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		exitWithError(err)
		return nil
	}

	for _, name := range svc.ListPolicies() {
		printf("%s\n", name)
	}
	return nil
}
