package secrets

import "github.com/spf13/cobra"

var (
	SecretsCmd = &cobra.Command{
		Use:   "secrets",
		Short: "Manage secrets engines",
		Long: `
Usage: vaultclient secrets <subcommand> [options]

  This command groups subcommands for managing secrets engines.

  List all enabled secrets engines:

      $ vaultclient secrets list

  Enable a KV version 2 engine at kv/:

      $ vaultclient secrets enable --type=kv --version=2 --path=kv

  Please see the individual subcommand help for detailed usage information.
`,
	}
)

func init() {
	SecretsCmd.AddCommand(EnableCmd)
	SecretsCmd.AddCommand(DisableCmd)
	SecretsCmd.AddCommand(ListCmd)
	SecretsCmd.AddCommand(TuneCmd)
}
