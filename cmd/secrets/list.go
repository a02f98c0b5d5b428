package secrets

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stephnangue/vaultclient/api"
	"github.com/stephnangue/vaultclient/api/sys"
	"github.com/stephnangue/vaultclient/cmd/helpers"
)

var (
	ListCmd = &cobra.Command{
		Use:           "list",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "List enabled secrets engines",
		Long: `
Usage: vaultclient secrets list

  Lists the enabled secrets engines with their path, type, version and
  lease TTLs.

      $ vaultclient secrets list
`,
		Args: cobra.NoArgs,
		RunE: runList,
	}
)

func runList(cmd *cobra.Command, args []string) error {
	c, err := helpers.Client()
	if err != nil {
		return err
	}

	mounts, err := api.Execute[map[string]*sys.MountOutput](cmd.Context(), c, sys.ListMounts{})
	if err != nil {
		return fmt.Errorf("error listing secrets engines: %w", err)
	}
	return helpers.PrintMounts(cmd.OutOrStdout(), mounts)
}
