package basic

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stephnangue/vaultclient/api"
	"github.com/stephnangue/vaultclient/cmd/helpers"
)

var (
	ListCmd = &cobra.Command{
		Use:           "list PATH",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "List keys under a path",
		Long: `
Usage: vaultclient list PATH

  Lists the keys under the given path. Keys ending with "/" are folders.

  List KV version 1 secrets:

      $ vaultclient list secret/

  List KV version 2 secrets:

      $ vaultclient list kv/metadata/
`,
		Args: cobra.ExactArgs(1),
		RunE: runList,
	}
)

func runList(cmd *cobra.Command, args []string) error {
	path := trimPath(args[0]) + "/"

	c, err := helpers.Client()
	if err != nil {
		return err
	}

	res, err := api.Execute[*api.Resource](cmd.Context(), c, api.Raw{Op: api.Operation{Method: api.MethodList, Path: path}})
	if err != nil {
		if api.IsNotFound(err) {
			return fmt.Errorf("no value found at %s", path)
		}
		return fmt.Errorf("failed to list %s: %w", path, err)
	}

	keys, err := api.DecodeData[struct {
		Keys []string `json:"keys"`
	}](res)
	if err != nil {
		return fmt.Errorf("unexpected response data: %w", err)
	}
	return helpers.Output(cmd.OutOrStdout(), keys.Keys)
}
