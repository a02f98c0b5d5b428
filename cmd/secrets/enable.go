package secrets

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stephnangue/vaultclient/api"
	"github.com/stephnangue/vaultclient/api/sys"
	"github.com/stephnangue/vaultclient/cmd/helpers"
)

var (
	enableType        string
	enablePath        string
	enableDescription string
	enableVersion     string
	enableDefaultTTL  string
	enableMaxTTL      string

	EnableCmd = &cobra.Command{
		Use:           "enable",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "Enable a secrets engine",
		Long: `
Usage: vaultclient secrets enable [options]

  Enables a secrets engine. By default, engines are enabled at the path
  corresponding to their TYPE, but users can customize the path using the
  --path option.

  Enable PKI at pki/:

      $ vaultclient secrets enable --type=pki --max-lease-ttl=87600h

  Enable KV version 2 at team-a/:

      $ vaultclient secrets enable --type=kv --version=2 --path=team-a
`,
		RunE: runEnable,
	}
)

func init() {
	EnableCmd.Flags().StringVar(&enableType, "type", "", "Type of the secrets engine (e.g., kv, pki, ssh) (required)")
	EnableCmd.Flags().StringVar(&enablePath, "path", "", "Path where the engine will be mounted (default: <type>/)")
	EnableCmd.Flags().StringVar(&enableDescription, "description", "", "Human-friendly description of the engine")
	EnableCmd.Flags().StringVar(&enableVersion, "version", "", "Engine version option, e.g. 2 for KV version 2")
	EnableCmd.Flags().StringVar(&enableDefaultTTL, "default-lease-ttl", "", "Default lease TTL of the engine")
	EnableCmd.Flags().StringVar(&enableMaxTTL, "max-lease-ttl", "", "Maximum lease TTL of the engine")
	EnableCmd.MarkFlagRequired("type")
}

func runEnable(cmd *cobra.Command, args []string) error {
	c, err := helpers.Client()
	if err != nil {
		return err
	}

	path := enablePath
	if path == "" {
		path = enableType
	}
	path = strings.Trim(path, "/") + "/"

	input := sys.MountInput{
		Type:        enableType,
		Description: enableDescription,
		Config: sys.MountConfigInput{
			DefaultLeaseTTL: enableDefaultTTL,
			MaxLeaseTTL:     enableMaxTTL,
		},
	}
	if enableVersion != "" {
		input.Options = map[string]string{"version": enableVersion}
	}

	if _, err := api.Execute[api.Empty](cmd.Context(), c, sys.EnableMount{Path: path, Input: input}); err != nil {
		return fmt.Errorf("error enabling %s secrets engine: %w", enableType, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Success! Enabled the %s secrets engine at: %s\n", enableType, path)
	return nil
}
