package operator

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stephnangue/vaultclient/api"
	"github.com/stephnangue/vaultclient/api/sys"
	"github.com/stephnangue/vaultclient/cmd/helpers"
)

var (
	StatusCmd = &cobra.Command{
		Use:           "status",
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "Print seal and HA status",
		Long: `
Usage: vaultclient status

  Prints the current state of the server: whether it is initialized and
  sealed, the seal type and the server version. No token is needed.

  The command fails when the server cannot be reached or is sealed.

      $ vaultclient status
`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
)

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := helpers.Client()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	seal, err := api.Execute[*sys.SealStatusResponse](ctx, c, sys.SealStatus{})
	if err != nil {
		return fmt.Errorf("error checking seal status: %w", err)
	}

	health, err := api.Execute[*sys.HealthResponse](ctx, c, sys.Health{StandbyOK: true, PerfStandbyOK: true})
	if err != nil {
		return fmt.Errorf("error checking health: %w", err)
	}

	out := map[string]any{
		"initialized":  seal.Initialized,
		"sealed":       seal.Sealed,
		"seal_type":    seal.Type,
		"total_shares": seal.N,
		"threshold":    seal.T,
		"version":      health.Version,
		"build_date":   seal.BuildDate,
		"storage_type": seal.StorageType,
		"cluster_name": health.ClusterName,
		"ha_standby":   health.Standby,
		"server_time":  time.Unix(health.ServerTimeUTC, 0).UTC().Format(time.RFC3339),
	}
	if err := helpers.Output(cmd.OutOrStdout(), out); err != nil {
		return err
	}

	if seal.Sealed {
		return fmt.Errorf("server is sealed")
	}
	return nil
}
