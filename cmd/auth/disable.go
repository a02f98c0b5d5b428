package auth

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
		Short:         "Disable an auth method",
		Long: `
Usage: vaultclient auth disable PATH

  Disables the auth method at PATH. Tokens issued by the method are revoked
  by the server.

      $ vaultclient auth disable userpass/
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

	if _, err := api.Execute[api.Empty](cmd.Context(), c, sys.DisableAuth{Path: args[0]}); err != nil {
		return fmt.Errorf("error disabling auth method at %s: %w", args[0], err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Success! Disabled the auth method (if it existed) at: %s\n", args[0])
	return nil
}
