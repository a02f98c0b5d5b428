package basic

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/stephnangue/vaultclient/api"
	"github.com/stephnangue/vaultclient/cmd/helpers"
)

var (
	WriteCmd = &cobra.Command{
		Use:           "write PATH [K=V...]",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "Write data to a path",
		Long: `
Usage: vaultclient write [options] PATH [K=V...]

  Writes data to the given path. The data is given as K=V pairs or as JSON
  on stdin when the only argument after the path is "-". Values starting
  with "@" are read from the named file.

  Write a KV version 1 secret:

      $ vaultclient write secret/my-app username=app password=@pass.txt

  Write a KV version 2 secret from JSON:

      $ vaultclient write kv/data/my-app - <<EOF
      {"data": {"username": "app"}}
      EOF
`,
		Args: cobra.MinimumNArgs(1),
		RunE: runWrite,
	}
)

func runWrite(cmd *cobra.Command, args []string) error {
	path := args[0]

	data, err := helpers.ParseData(args[1:], cmd.InOrStdin())
	if err != nil {
		return err
	}

	c, err := helpers.Client()
	if err != nil {
		return err
	}

	res, err := api.Execute[*api.Resource](cmd.Context(), c, api.Raw{Op: api.Operation{Method: http.MethodPost, Path: path, Body: data}})
	if err != nil {
		return fmt.Errorf("failed to write to %s: %w", path, err)
	}

	out, err := dataMap(res)
	if err != nil {
		return err
	}
	if out == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Success! Data written to: %s\n", trimPath(path))
		return nil
	}
	return helpers.Output(cmd.OutOrStdout(), out)
}
