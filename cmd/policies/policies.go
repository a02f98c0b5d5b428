package policies

import (
	"github.com/spf13/cobra"
)

var PoliciesCmd = &cobra.Command{
	Use:   "policy",
	Short: "Interact with ACL policies",
	Long: `
The policy command groups subcommands for interacting with ACL policies.

Examples:

  Create a policy from stdin:

    $ vaultclient policy write my-policy - <<EOF
    path "secret/data/myapp/*" {
      capabilities = ["create", "read", "update", "delete", "list"]
    }
    EOF

  Read a policy:

    $ vaultclient policy read my-policy

  List all policies:

    $ vaultclient policy list

  Delete a policy:

    $ vaultclient policy delete my-policy
`,
}

func init() {
	PoliciesCmd.AddCommand(WriteCmd)
	PoliciesCmd.AddCommand(ReadCmd)
	PoliciesCmd.AddCommand(ListCmd)
	PoliciesCmd.AddCommand(DeleteCmd)
}
