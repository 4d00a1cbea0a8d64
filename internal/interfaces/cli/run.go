package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/RiskOverlay/internal/application/refresh"
	"github.com/turtacn/RiskOverlay/internal/domain/facility"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/RiskOverlay/pkg/errors"
)

type runOptions struct {
	categories []string
	details    bool
	at         string
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Refresh once and print the risk summary",
		Long: "run fetches the alert feed, loads every configured dataset and prints how many\n" +
			"facilities of each category lie inside the unioned alert region.",
		Example: "  riskoverlay run\n  riskoverlay run --category hospitais --category ubs --details\n  riskoverlay -o json run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(cmd, opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.categories, "category", nil, "restrict to these categories (repeatable, aliases accepted)")
	cmd.Flags().BoolVar(&opts.details, "details", false, "list the facilities inside the region")
	cmd.Flags().StringVar(&opts.at, "at", "", "evaluate alert validity at this RFC 3339 time")
	return cmd
}

// runResult is the JSON shape of "run".
type runResult struct {
	*refresh.Snapshot
	Degraded bool `json:"degraded"`
}

func runRefresh(cmd *cobra.Command, opts *runOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	ropts, err := buildOptions(opts.categories, opts.at)
	if err != nil {
		return err
	}

	snap, err := refreshOnce(cmd.Context(), cliCtx, ropts)
	if err != nil {
		return err
	}
	return PrintResult(cmd, runResult{Snapshot: snap, Degraded: snap.Degraded()}, func() string {
		return formatSnapshot(snap, opts.details)
	})
}

func buildOptions(categories []string, at string) (refresh.Options, error) {
	var opts refresh.Options
	for _, raw := range categories {
		c, err := facility.ParseCategory(raw)
		if err != nil {
			return opts, err
		}
		opts.Categories = append(opts.Categories, c)
	}
	if at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return opts, errors.Wrap(err, errors.ErrCodeValidation, "--at must be an RFC 3339 time")
		}
		opts.At = t
	}
	return opts, nil
}

// refreshOnce builds the app, refreshes and releases the backends.
func refreshOnce(ctx context.Context, cliCtx *CLIContext, opts refresh.Options) (*refresh.Snapshot, error) {
	app, err := NewApp(ctx, cliCtx.Config, cliCtx.Logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			cliCtx.Logger.Warn("closing backends failed", logging.Err(cerr))
		}
	}()
	return app.Refresher.Refresh(ctx, opts)
}

func formatSnapshot(snap *refresh.Snapshot, details bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Snapshot %s at %s (%s)\n", snap.ID, snap.CreatedAt.Format(time.RFC3339), snap.Duration.Round(time.Millisecond))
	fmt.Fprintf(&sb, "Alert feed: %s", snap.Feed.State)
	if snap.Feed.State == refresh.FeedOK {
		fmt.Fprintf(&sb, ", %d valid, %d invalid, %d inactive polygons, %d region contours",
			snap.Alerts.Valid, len(snap.Alerts.Invalid), snap.Alerts.Inactive, snap.Alerts.Contours)
	}
	sb.WriteString("\n")
	if snap.Feed.Notice != "" {
		fmt.Fprintf(&sb, "NOTICE: %s\n", snap.Feed.Notice)
	}
	sb.WriteString("\n")

	rows := snap.Rows()
	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		table = append(table, []string{r.Name, strconv.Itoa(r.Inside), strconv.Itoa(r.Total), strconv.Itoa(r.Dropped)})
	}
	sb.WriteString(FormatTable([]string{"CATEGORY", "INSIDE", "TOTAL", "DROPPED"}, table))

	var failed []refresh.DatasetResult
	for _, d := range snap.Datasets {
		if d.Failed() {
			failed = append(failed, d)
		}
	}
	if len(failed) > 0 {
		sb.WriteString("\nSkipped datasets:\n")
		for _, d := range failed {
			fmt.Fprintf(&sb, "  %s [%s]: %s\n", d.Name, d.Code, d.Error)
		}
	}

	if details {
		for _, r := range rows {
			p := snap.Partition(r.Category)
			if len(p.Inside) == 0 {
				continue
			}
			fmt.Fprintf(&sb, "\n%s inside the risk region:\n", r.Name)
			for _, rec := range p.Inside {
				sb.WriteString("  - " + rec.Label)
				if rec.Municipality != "" {
					sb.WriteString(" (" + rec.Municipality + ")")
				}
				fmt.Fprintf(&sb, " %.5f, %.5f\n", rec.Latitude, rec.Longitude)
			}
		}
	}
	return sb.String()
}
