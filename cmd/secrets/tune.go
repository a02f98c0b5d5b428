package secrets

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stephnangue/vaultclient/api"
	"github.com/stephnangue/vaultclient/api/sys"
	"github.com/stephnangue/vaultclient/cmd/helpers"
)

var (
	tuneDefaultTTL  string
	tuneMaxTTL      string
	tuneDescription string

	TuneCmd = &cobra.Command{
		Use:           "tune [options] PATH",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "Tune a secrets engine",
		Long: `
Usage: vaultclient secrets tune [options] PATH

  Tunes the configuration of the secrets engine at PATH and prints the
  resulting configuration.

      $ vaultclient secrets tune --max-lease-ttl=72h pki/
`,
		Args: cobra.ExactArgs(1),
		RunE: runTune,
	}
)

func init() {
	TuneCmd.Flags().StringVar(&tuneDefaultTTL, "default-lease-ttl", "", "Default lease TTL of the engine")
	TuneCmd.Flags().StringVar(&tuneMaxTTL, "max-lease-ttl", "", "Maximum lease TTL of the engine")
	TuneCmd.Flags().StringVar(&tuneDescription, "description", "", "Human-friendly description of the engine")
}

func runTune(cmd *cobra.Command, args []string) error {
	c, err := helpers.Client()
	if err != nil {
		return err
	}
	path := args[0]

	_, err = api.Execute[api.Empty](cmd.Context(), c, sys.TuneMount{Path: path, Config: sys.MountConfigInput{
		DefaultLeaseTTL: tuneDefaultTTL,
		MaxLeaseTTL:     tuneMaxTTL,
		Description:     tuneDescription,
	}})
	if err != nil {
		return fmt.Errorf("error tuning secrets engine at %s: %w", path, err)
	}

	tuned, err := api.Execute[*sys.MountConfigOutput](cmd.Context(), c, sys.ReadMountTune{Path: path})
	if err != nil {
		return fmt.Errorf("error reading tuned configuration: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Success! Tuned the secrets engine at: %s\n", path)
	return helpers.Output(cmd.OutOrStdout(), map[string]any{
		"default_lease_ttl": helpers.FormatDuration(tuned.DefaultLeaseTTL),
		"max_lease_ttl":     helpers.FormatDuration(tuned.MaxLeaseTTL),
	})
}
