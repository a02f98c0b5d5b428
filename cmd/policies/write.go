package policies

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/stephnangue/vaultclient/api"
	"github.com/stephnangue/vaultclient/api/sys"
	"github.com/stephnangue/vaultclient/cmd/helpers"
)

var WriteCmd = &cobra.Command{
	Use:           "write <name> <policy_file>",
	SilenceUsage:  true,
	SilenceErrors: true,
	Short:         "Write a policy",
	Long: `
Usage: vaultclient policy write <name> <policy_file>

  Uploads an ACL policy. The policy is read from a file or from stdin by
  using "-" as the filename.

    $ vaultclient policy write my-policy ./policy.hcl
`,
	Args: cobra.ExactArgs(2),
	RunE: runWrite,
}

func runWrite(cmd *cobra.Command, args []string) error {
	name := args[0]
	policyPath := args[1]

	var content []byte
	var err error
	if policyPath == "-" {
		content, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		content, err = os.ReadFile(policyPath)
		if err != nil {
			return fmt.Errorf("failed to read policy file: %w", err)
		}
	}

	c, err := helpers.Client()
	if err != nil {
		return err
	}

	if _, err := api.Execute[api.Empty](cmd.Context(), c, sys.WritePolicy{Name: name, Policy: string(content)}); err != nil {
		return fmt.Errorf("error writing policy: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Success! Uploaded policy: %s\n", name)
	return nil
}
