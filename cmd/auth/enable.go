package auth

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

	EnableCmd = &cobra.Command{
		Use:           "enable",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "Enable an auth method",
		Long: `
Usage: vaultclient auth enable [options]

  Enables an auth method. By default, auth methods are enabled at the path
  corresponding to their TYPE, but users can customize the path using the
  --path option.

  Enable userpass at userpass/:

      $ vaultclient auth enable --type=userpass

  Enable JWT at jwt-prod/:

      $ vaultclient auth enable --type=jwt --path=jwt-prod
`,
		RunE: runEnable,
	}
)

func init() {
	EnableCmd.Flags().StringVar(&enableType, "type", "", "Type of the auth method (e.g., userpass, approle, jwt) (required)")
	EnableCmd.Flags().StringVar(&enablePath, "path", "", "Path where the auth method will be enabled (default: <type>/)")
	EnableCmd.Flags().StringVar(&enableDescription, "description", "", "Human-friendly description of the auth method")
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

	_, err = api.Execute[api.Empty](cmd.Context(), c, sys.EnableAuth{
		Path:  path,
		Input: sys.AuthMountInput{Type: enableType, Description: enableDescription},
	})
	if err != nil {
		return fmt.Errorf("error enabling %s auth: %w", enableType, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Success! Enabled %s auth method at: %s\n", enableType, path)
	return nil
}
