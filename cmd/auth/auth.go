package auth

import "github.com/spf13/cobra"

var (
	AuthCmd = &cobra.Command{
		Use:   "auth",
		Short: "Manage auth methods",
		Long: `
Usage: vaultclient auth <subcommand> [options]

  This command groups subcommands for managing auth methods.

  List all enabled auth methods:

      $ vaultclient auth list

  Enable a new auth method:

      $ vaultclient auth enable --type=userpass

  Please see the individual subcommand help for detailed usage information.
`,
	}
)

func init() {
	AuthCmd.AddCommand(EnableCmd)
	AuthCmd.AddCommand(DisableCmd)
	AuthCmd.AddCommand(ListCmd)
}
