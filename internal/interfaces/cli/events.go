package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/RiskOverlay/internal/application/refresh"
	"github.com/turtacn/RiskOverlay/internal/config"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/database/redis"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/RiskOverlay/pkg/errors"
)

type eventSource interface {
	Run(ctx context.Context, h kafka.Handler) error
	Close() error
}

var openEvents = func(cfg config.KafkaConfig, log logging.Logger) (eventSource, error) {
	return kafka.NewConsumer(cfg, log)
}

func newEventsCmd() *cobra.Command {
	var (
		limit  int
		latest bool
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail snapshot events from Kafka",
		Long: "events joins the configured consumer group and prints every snapshot event published by serve.\n" +
			"With --latest it prints the last snapshot kept in Redis and exits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if latest {
				return printLatest(cmd, cliCtx)
			}
			kcfg := cliCtx.Config.Kafka
			if len(kcfg.Brokers) == 0 {
				return errors.New(errors.ErrCodeValidation, "kafka.brokers is not configured")
			}

			src, err := openEvents(kcfg, cliCtx.Logger)
			if err != nil {
				return err
			}
			defer src.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			seen := 0
			return src.Run(ctx, func(_ context.Context, env *kafka.EventEnvelope) error {
				if err := printEvent(cmd.OutOrStdout(), cliCtx.OutputFormat, env); err != nil {
					return err
				}
				seen++
				if limit > 0 && seen >= limit {
					cancel()
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "stop after this many events")
	cmd.Flags().BoolVar(&latest, "latest", false, "print the last snapshot stored in Redis and exit")
	return cmd
}

func printLatest(cmd *cobra.Command, cliCtx *CLIContext) error {
	rcfg := cliCtx.Config.Redis
	if !rcfg.Enabled {
		return errors.New(errors.ErrCodeValidation, "redis is not enabled")
	}
	ctx := cmd.Context()
	c, err := redis.NewClient(ctx, rcfg, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer c.Close()

	payload, err := redis.NewPublisher(c, rcfg.Channel, rcfg.LatestTTL).Latest(ctx)
	if err != nil {
		return err
	}
	if cliCtx.OutputFormat == OutputJSON {
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", payload)
		return err
	}
	var ev refresh.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "decoding latest snapshot")
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), formatEvent(ev))
	return err
}

func printEvent(w io.Writer, format string, env *kafka.EventEnvelope) error {
	if format == OutputJSON {
		data, err := json.Marshal(env)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "encoding event")
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}
	if env.EventType != kafka.EventSnapshotCompleted {
		_, err := fmt.Fprintf(w, "%s %s (%s)\n", env.Timestamp.Format(time.RFC3339), env.EventType, env.EventID)
		return err
	}

	var ev refresh.Event
	if err := env.DecodePayload(&ev); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, formatEvent(ev))
	return err
}

func formatEvent(ev refresh.Event) string {
	parts := make([]string, 0, len(ev.Rows))
	for _, r := range ev.Rows {
		parts = append(parts, string(r.Category)+"="+strconv.Itoa(r.Inside)+"/"+strconv.Itoa(r.Total))
	}
	line := fmt.Sprintf("%s snapshot %s feed=%s alerts=%d contours=%d %s",
		ev.CreatedAt.Format(time.RFC3339), ev.SnapshotID, ev.Feed, ev.Valid, ev.Contours, strings.Join(parts, " "))
	if len(ev.DatasetErrors) > 0 {
		line += fmt.Sprintf(" dataset_errors=%d", len(ev.DatasetErrors))
	}
	return line
}
