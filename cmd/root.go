package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stephnangue/vaultclient/cmd/auth"
	"github.com/stephnangue/vaultclient/cmd/basic"
	"github.com/stephnangue/vaultclient/cmd/helpers"
	"github.com/stephnangue/vaultclient/cmd/login"
	"github.com/stephnangue/vaultclient/cmd/operator"
	"github.com/stephnangue/vaultclient/cmd/policies"
	"github.com/stephnangue/vaultclient/cmd/secrets"
	"github.com/stephnangue/vaultclient/cmd/wrapping"
)

var (
	rootCmd = &cobra.Command{
		Use:   "vaultclient",
		Short: "vaultclient is a command line client for Vault-compatible secrets services",
		Long: `vaultclient reads and writes secrets, logs in with the supported auth
methods and handles response-wrapping tokens against a Vault-compatible
secrets service.

The server address, token and namespace are read from VAULT_ADDR,
VAULT_TOKEN and VAULT_NAMESPACE, from the file given with --config, or from
the flags below, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch strings.ToLower(helpers.FlagFormat) {
			case helpers.FormatTable, helpers.FormatJSON, helpers.FormatYAML:
				return nil
			default:
				return fmt.Errorf("unknown output format: %s", helpers.FlagFormat)
			}
		},
	}
)

// Execute runs the CLI and exits with a non-zero status on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&helpers.FlagAddress, "address", "a", "", "Address of the server (can also use VAULT_ADDR env var)")
	flags.StringVarP(&helpers.FlagNamespace, "namespace", "n", "", "Namespace to use for the command (can also use VAULT_NAMESPACE env var)")
	flags.StringVarP(&helpers.FlagConfig, "config", "c", "", "Path to an HCL client configuration file")
	flags.StringVarP(&helpers.FlagFormat, "format", "f", helpers.FormatTable, "Output format: table, json, yaml")
	flags.StringVar(&helpers.FlagLogLevel, "log-level", "", "Log level of client diagnostics: trace, debug, info, warn, error")

	rootCmd.AddCommand(basic.ReadCmd)
	rootCmd.AddCommand(basic.WriteCmd)
	rootCmd.AddCommand(basic.DeleteCmd)
	rootCmd.AddCommand(basic.ListCmd)
	rootCmd.AddCommand(login.LoginCmd)
	rootCmd.AddCommand(wrapping.WrapCmd)
	rootCmd.AddCommand(wrapping.UnwrapCmd)
	rootCmd.AddCommand(operator.StatusCmd)
	rootCmd.AddCommand(auth.AuthCmd)
	rootCmd.AddCommand(secrets.SecretsCmd)
	rootCmd.AddCommand(policies.PoliciesCmd)
}
