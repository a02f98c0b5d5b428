package auth

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
		Short:         "List enabled auth methods",
		Long: `
Usage: vaultclient auth list

  Lists the enabled auth methods with their path, type, accessor and
  description.

      $ vaultclient auth list
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

	auths, err := api.Execute[map[string]*sys.AuthMountOutput](cmd.Context(), c, sys.ListAuth{})
	if err != nil {
		return fmt.Errorf("error listing auth methods: %w", err)
	}
	return helpers.PrintMounts(cmd.OutOrStdout(), auths)
}
