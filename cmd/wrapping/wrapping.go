package wrapping

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/stephnangue/vaultclient/api"
	"github.com/stephnangue/vaultclient/cmd/helpers"
)

var (
	WrapCmd = &cobra.Command{
		Use:           "wrap [options] K=V...",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "Wrap data in a single-use token",
		Long: `
Usage: vaultclient wrap [options] K=V...

  Wraps the given data in a response-wrapping token. The token can be
  unwrapped exactly once, by anyone holding it, before its TTL runs out.

      $ vaultclient wrap --ttl=10m password=s3cr3t

  Inspect a wrapping token without consuming it:

      $ vaultclient wrap lookup s.wrapping-token
`,
		Args: cobra.MinimumNArgs(1),
		RunE: runWrap,
	}

	LookupCmd = &cobra.Command{
		Use:           "lookup TOKEN",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "Look up the properties of a wrapping token",
		Long: `
Usage: vaultclient wrap lookup TOKEN

  Shows the creation time, TTL and creation path of a wrapping token. The
  token is not consumed.
`,
		Args: cobra.ExactArgs(1),
		RunE: runLookup,
	}

	UnwrapCmd = &cobra.Command{
		Use:           "unwrap [TOKEN]",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "Unwrap a wrapped secret",
		Long: `
Usage: vaultclient unwrap [TOKEN]

  Unwraps a wrapped secret. Without an argument, the client token itself is
  treated as the wrapping token. A token can only be unwrapped once.

      $ vaultclient unwrap s.wrapping-token
`,
		Args: cobra.MaximumNArgs(1),
		RunE: runUnwrap,
	}

	flagTTL string
)

func init() {
	WrapCmd.Flags().StringVar(&flagTTL, "ttl", "5m", "Lifetime of the wrapping token, e.g. 90s, 10m or 1d")
	WrapCmd.AddCommand(LookupCmd)
}

func runWrap(cmd *cobra.Command, args []string) error {
	ttl, err := helpers.ParseDuration(flagTTL)
	if err != nil {
		return fmt.Errorf("invalid ttl %q: %w", flagTTL, err)
	}

	data, err := helpers.ParseData(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	c, err := helpers.Client()
	if err != nil {
		return err
	}

	wrapped, err := api.Wrap[map[string]any](cmd.Context(), c, api.WrapData[map[string]any]{Data: data}, ttl)
	if err != nil {
		return fmt.Errorf("error wrapping data: %w", err)
	}
	return printWrapInfo(cmd.OutOrStdout(), &wrapped.Info)
}

func runLookup(cmd *cobra.Command, args []string) error {
	c, err := helpers.Client()
	if err != nil {
		return err
	}

	info, err := api.LookupWrapToken(cmd.Context(), c, args[0])
	if err != nil {
		return fmt.Errorf("error looking up wrapping token: %w", err)
	}
	return printWrapInfo(cmd.OutOrStdout(), info)
}

func runUnwrap(cmd *cobra.Command, args []string) error {
	c, err := helpers.Client()
	if err != nil {
		return err
	}

	token := c.Token()
	if len(args) == 1 {
		token = args[0]
	}

	res, err := api.UnwrapToken[*api.Resource](cmd.Context(), c, token, api.Raw{})
	if err != nil {
		return fmt.Errorf("error unwrapping: %w", err)
	}

	// Wrapped logins carry their payload in the auth block.
	if res.Auth != nil {
		return helpers.Output(cmd.OutOrStdout(), res.Auth)
	}
	if res.Data == nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "The wrapped response carried no data")
		return nil
	}
	data, err := api.DecodeData[map[string]any](res)
	if err != nil {
		return fmt.Errorf("unexpected response data: %w", err)
	}
	return helpers.Output(cmd.OutOrStdout(), data)
}

func printWrapInfo(w io.Writer, info *api.WrapInfo) error {
	out := map[string]any{
		"wrapping_token":               info.Token,
		"wrapping_accessor":            info.Accessor,
		"wrapping_token_ttl":           helpers.FormatDuration(info.TTL),
		"wrapping_token_creation_time": info.CreationTime.Format(time.RFC3339),
		"wrapping_token_creation_path": info.CreationPath,
	}
	if info.WrappedAccessor != "" {
		out["wrapped_accessor"] = info.WrappedAccessor
	}
	return helpers.Output(w, out)
}
