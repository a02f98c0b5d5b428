package basic

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stephnangue/vaultclient/api"
	"github.com/stephnangue/vaultclient/cmd/helpers"
)

var (
	ReadCmd = &cobra.Command{
		Use:           "read PATH",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "Read data from a path",
		Long: `
Usage: vaultclient read [options] PATH

  Reads data from the given path. The path is relative to /v1/ and is sent
  as is, so KV version 2 secrets are read under their data/ prefix.

  Read a KV version 1 secret:

      $ vaultclient read secret/my-app

  Read a KV version 2 secret:

      $ vaultclient read kv/data/my-app

  Mask sensitive fields in the output:

      $ vaultclient read --mask=password secret/db
`,
		Args: cobra.ExactArgs(1),
		RunE: runRead,
	}

	readMask []string
)

func init() {
	ReadCmd.Flags().StringSliceVar(&readMask, "mask", nil, "Fields whose value is replaced by a mask in the output")
}

func runRead(cmd *cobra.Command, args []string) error {
	path := args[0]

	c, err := helpers.Client()
	if err != nil {
		return err
	}

	res, err := api.Execute[*api.Resource](cmd.Context(), c, api.Raw{Op: api.Operation{Method: http.MethodGet, Path: path}})
	if err != nil {
		if api.IsNotFound(err) {
			return fmt.Errorf("no value found at %s", path)
		}
		return fmt.Errorf("failed to read from %s: %w", path, err)
	}

	data, err := dataMap(res)
	if err != nil {
		return err
	}
	if data == nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "No data found at path: %s\n", path)
		return nil
	}
	if len(readMask) > 0 {
		data = helpers.MaskFields(data, readMask)
	}
	return helpers.Output(cmd.OutOrStdout(), data)
}

// dataMap returns the data field of a response as a map, or nil when the
// response carried none.
func dataMap(res *api.Resource) (map[string]any, error) {
	if res == nil || res.Data == nil {
		return nil, nil
	}
	m, err := api.DecodeData[map[string]any](res)
	if err != nil {
		return nil, fmt.Errorf("unexpected response data: %w", err)
	}
	return m, nil
}

func trimPath(path string) string {
	return strings.Trim(path, "/")
}
