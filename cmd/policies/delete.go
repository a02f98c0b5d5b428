package policies

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stephnangue/vaultclient/api"
	"github.com/stephnangue/vaultclient/api/sys"
	"github.com/stephnangue/vaultclient/cmd/helpers"
)

var DeleteCmd = &cobra.Command{
	Use:           "delete <name>",
	SilenceUsage:  true,
	SilenceErrors: true,
	Short:         "Delete a policy",
	Long: `
Usage: vaultclient policy delete <name>

  Deletes the named policy. The root and default policies cannot be
  deleted.

    $ vaultclient policy delete my-policy
`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	c, err := helpers.Client()
	if err != nil {
		return err
	}

	if _, err := api.Execute[api.Empty](cmd.Context(), c, sys.DeletePolicy{Name: args[0]}); err != nil {
		return fmt.Errorf("error deleting policy: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Success! Deleted policy: %s\n", args[0])
	return nil
}
