package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/RiskOverlay/internal/application/refresh"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/RiskOverlay/pkg/errors"
)

func newRegionCmd() *cobra.Command {
	var out, at string
	cmd := &cobra.Command{
		Use:   "region",
		Short: "Print the unioned alert region as GeoJSON",
		Long: "region fetches the alert feed and writes the risk region as a GeoJSON\n" +
			"FeatureCollection with one feature per polygon. Datasets are not loaded.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			opts, err := buildOptions(nil, at)
			if err != nil {
				return err
			}
			opts.RegionOnly = true

			snap, err := refreshOnce(cmd.Context(), cliCtx, opts)
			if err != nil {
				return err
			}
			if snap.Feed.State == refresh.FeedUnavailable {
				cliCtx.Logger.Warn(refresh.FeedUnavailableNotice, logging.SnapshotID(snap.ID))
			}

			data, err := json.MarshalIndent(snap.RegionFeatureCollection(), "", "  ")
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeSerialization, "encoding region")
			}
			data = append(data, '\n')
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return errors.Wrapf(err, errors.ErrCodeInternal, "writing %s", out)
			}
			cliCtx.Logger.Info("region written", logging.String("path", out), logging.Int("features", snap.Alerts.Contours))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "file", "f", "", "write to this file instead of stdout")
	cmd.Flags().StringVar(&at, "at", "", "evaluate alert validity at this RFC 3339 time")
	return cmd
}
