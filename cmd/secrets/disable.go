package secrets

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stephnangue/vaultclient/api"
	"github.com/stephnangue/vaultclient/api/sys"
	"github.com/stephnangue/vaultclient/cmd/helpers"
)

var (
	DisableCmd = &cobra.Command{
		Use:           "disable PATH",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "Disable a secrets engine",
		Long: `
Usage: vaultclient secrets disable PATH

  Disables the secrets engine at PATH. All data stored by the engine is
  removed by the server.

      $ vaultclient secrets disable team-a/
`,
		Args: cobra.ExactArgs(1),
		RunE: runDisable,
	}
)

func runDisable(cmd *cobra.Command, args []string) error {
	c, err := helpers.Client()
	if err != nil {
		return err
	}

	if _, err := api.Execute[api.Empty](cmd.Context(), c, sys.DisableMount{Path: args[0]}); err != nil {
		return fmt.Errorf("error disabling secrets engine at %s: %w", args[0], err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Success! Disabled the secrets engine (if it existed) at: %s\n", args[0])
	return nil
}
