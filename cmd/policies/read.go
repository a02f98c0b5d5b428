package policies

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stephnangue/vaultclient/api"
	"github.com/stephnangue/vaultclient/api/sys"
	"github.com/stephnangue/vaultclient/cmd/helpers"
)

var ReadCmd = &cobra.Command{
	Use:           "read <name>",
	SilenceUsage:  true,
	SilenceErrors: true,
	Short:         "Read a policy",
	Long: `
Usage: vaultclient policy read <name>

  Prints the rules of the named policy.

    $ vaultclient policy read my-policy
`,
	Args: cobra.ExactArgs(1),
	RunE: runRead,
}

func runRead(cmd *cobra.Command, args []string) error {
	name := args[0]

	c, err := helpers.Client()
	if err != nil {
		return err
	}

	policy, err := api.Execute[*sys.PolicyOutput](cmd.Context(), c, sys.ReadPolicy{Name: name})
	if err != nil {
		if api.IsNotFound(err) {
			return fmt.Errorf("policy not found: %s", name)
		}
		return fmt.Errorf("error reading policy: %w", err)
	}

	if helpers.FlagFormat != "" && helpers.FlagFormat != helpers.FormatTable {
		return helpers.Output(cmd.OutOrStdout(), policy)
	}
	fmt.Fprintln(cmd.OutOrStdout(), policy.Policy)
	return nil
}
