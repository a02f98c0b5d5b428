package policies

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stephnangue/vaultclient/api"
	"github.com/stephnangue/vaultclient/api/sys"
	"github.com/stephnangue/vaultclient/cmd/helpers"
)

var ListCmd = &cobra.Command{
	Use:           "list",
	SilenceUsage:  true,
	SilenceErrors: true,
	Short:         "List policies",
	Args:          cobra.NoArgs,
	RunE:          runList,
}

func runList(cmd *cobra.Command, args []string) error {
	c, err := helpers.Client()
	if err != nil {
		return err
	}

	names, err := api.Execute[[]string](cmd.Context(), c, sys.ListPolicies{})
	if err != nil {
		return fmt.Errorf("error listing policies: %w", err)
	}

	if helpers.FlagFormat != "" && helpers.FlagFormat != helpers.FormatTable {
		return helpers.Output(cmd.OutOrStdout(), names)
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}
