package basic

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/stephnangue/vaultclient/api"
	"github.com/stephnangue/vaultclient/cmd/helpers"
)

var (
	DeleteCmd = &cobra.Command{
		Use:           "delete PATH",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "Delete data at a path",
		Long: `
Usage: vaultclient delete PATH

  Deletes data at the given path.

  Delete a KV version 1 secret:

      $ vaultclient delete secret/my-app

  Delete an ACL policy:

      $ vaultclient delete sys/policies/acl/reader
`,
		Args: cobra.ExactArgs(1),
		RunE: runDelete,
	}
)

func runDelete(cmd *cobra.Command, args []string) error {
	path := args[0]

	c, err := helpers.Client()
	if err != nil {
		return err
	}

	if _, err := api.Execute[*api.Resource](cmd.Context(), c, api.Raw{Op: api.Operation{Method: http.MethodDelete, Path: path}}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Success! Data deleted (if it existed) at: %s\n", trimPath(path))
	return nil
}
