package login

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stephnangue/vaultclient/api"
	"github.com/stephnangue/vaultclient/cmd/helpers"
)

var (
	LoginCmd = &cobra.Command{
		Use:           "login [options] [AUTH K=V...]",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "Authenticate locally",
		Long: `
Usage: vaultclient login [options] [AUTH K=V...]

  Authenticates users or machines using the provided arguments. A successful
  authentication results in a token, printed on success.

  By default the token auth method is used and the token is given as the
  only argument or as token=... :

      $ vaultclient login s.3jnbMAKl1i4YS3QoKdbHzGXq

  Other methods are selected with --method. Additional "K=V" pairs carry
  the method's parameters:

      $ vaultclient login --method=userpass username=alice password=@pass.txt
      $ vaultclient login --method=approle role_id=... secret_id=...
      $ vaultclient login --method=jwt role=ci jwt_file=/var/run/token
      $ vaultclient login --method=aws role=web region=eu-west-1
      $ vaultclient login --method=oidc role=engineer

  If an auth method is enabled at a non-standard path, the --method flag
  still refers to the canonical type, but the --path flag refers to the
  enabled path:

      $ vaultclient login --method=jwt --path=jwt-prod role=ci jwt=...
`,
		RunE: run,
	}

	flagMethod    string
	flagPath      string
	flagTokenOnly bool

	Handlers = map[string]LoginHandler{
		"token":    TokenHandler{},
		"userpass": UserpassHandler{},
		"approle":  AppRoleHandler{},
		"jwt":      JWTHandler{},
		"aws":      AWSHandler{},
		"oidc":     OIDCHandler{},
	}
)

// LoginHandler is the interface that any auth handlers must implement to
// enable auth via the CLI. It turns the K=V arguments into an auth method;
// the login itself, and the token swap, happen in the command.
type LoginHandler interface {
	Method(cmd *cobra.Command, c *api.Client, m map[string]string) (api.AuthMethod, error)
}

func init() {
	LoginCmd.Flags().StringVarP(&flagMethod, "method", "m", "token", "The auth method to use")
	LoginCmd.Flags().StringVarP(&flagPath, "path", "p", "", "The path on which the method was enabled")
	LoginCmd.Flags().BoolVar(&flagTokenOnly, "token-only", false, "Print only the issued token")
}

func run(cmd *cobra.Command, args []string) error {
	handler, ok := Handlers[flagMethod]
	if !ok {
		return fmt.Errorf("unknown auth method: %s. Use \"vaultclient auth list\" to see the "+
			"complete list of auth methods", flagMethod)
	}

	// A lone argument without "=" is the token of the token method.
	if flagMethod == "token" && len(args) == 1 && !strings.Contains(args[0], "=") {
		args = []string{"token=" + args[0]}
	}
	m, err := helpers.ParseStringMap(args)
	if err != nil {
		return err
	}
	if flagPath != "" {
		m["mount"] = flagPath
	}

	c, err := helpers.Client()
	if err != nil {
		return err
	}

	method, err := handler.Method(cmd, c, m)
	if err != nil {
		return err
	}

	info, err := c.Auth().Login(cmd.Context(), method)
	if err != nil {
		return fmt.Errorf("error authenticating: %w", err)
	}

	if flagTokenOnly {
		fmt.Fprintln(cmd.OutOrStdout(), info.ClientToken)
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Success! You are now authenticated.")
	return printAuth(cmd.OutOrStdout(), info)
}

func printAuth(w io.Writer, info *api.AuthInfo) error {
	if helpers.FlagFormat != "" && helpers.FlagFormat != helpers.FormatTable {
		return helpers.Output(w, info)
	}

	rows := [][]any{
		{"token", info.ClientToken},
		{"token_accessor", info.Accessor},
		{"token_duration", helpers.FormatDuration(info.LeaseDuration)},
		{"token_renewable", info.Renewable},
		{"token_policies", fmt.Sprint(info.TokenPolicies)},
		{"policies", fmt.Sprint(info.Policies)},
	}

	keys := make([]string, 0, len(info.Metadata))
	for k := range info.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, []any{"token_meta_" + k, info.Metadata[k]})
	}

	return helpers.PrintTable(w, []string{"Key", "Value"}, rows)
}

func requiredArg(m map[string]string, key string) (string, error) {
	v := m[key]
	if v == "" {
		return "", fmt.Errorf("%q is required", key)
	}
	return v, nil
}
