package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/turtacn/RiskOverlay/internal/application/refresh"
	"github.com/turtacn/RiskOverlay/internal/config"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/watch"
	httpserver "github.com/turtacn/RiskOverlay/internal/interfaces/http"
	"github.com/turtacn/RiskOverlay/internal/interfaces/http/handlers"
	"github.com/turtacn/RiskOverlay/internal/interfaces/http/middleware"
)

func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the overlay API and run scheduled refreshes",
		Long: "serve exposes the read-only HTTP API. When scheduling or file watching is\n" +
			"enabled it also refreshes in the background and publishes every snapshot to\n" +
			"the configured sinks (Kafka, Redis, MinIO archive).",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if port > 0 {
				cliCtx.Config.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cliCtx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}

func serve(ctx context.Context, cliCtx *CLIContext) error {
	cfg := cliCtx.Config
	log := cliCtx.Logger

	app, err := NewApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			log.Warn("closing backends failed", logging.Err(cerr))
		}
	}()

	sched, err := newScheduler(ctx, app)
	if err != nil {
		return err
	}
	if sched != nil {
		defer sched.Stop()
	}

	if cliCtx.ConfigPath != "" {
		config.Watch(cliCtx.ConfigPath, func(*config.Config) {
			log.Warn("configuration file changed, restart to apply", logging.String("path", cliCtx.ConfigPath))
		}, func(err error) {
			log.Warn("configuration file changed but is invalid", logging.Err(err))
		})
	}

	srv := httpserver.NewServer(cfg.Server, newRouter(app), log)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return srv.Stop(context.WithoutCancel(ctx))
}

// newScheduler starts cron and file-watch refreshes when enabled. It returns
// nil when neither is.
func newScheduler(ctx context.Context, app *App) (*refresh.Scheduler, error) {
	cfg := app.Config
	if !cfg.Schedule.Enabled && !cfg.Watch.Enabled {
		return nil, nil
	}

	pub, err := app.Publisher(ctx)
	if err != nil {
		return nil, err
	}
	locker, err := app.Locker(ctx)
	if err != nil {
		return nil, err
	}
	opts := []refresh.SchedulerOption{refresh.WithRunTimeout(cfg.Server.RequestTimeout)}
	if pub.Len() > 0 {
		opts = append(opts, refresh.WithPublisher(pub))
	}
	if locker != nil {
		opts = append(opts, refresh.WithLocker(locker))
	}
	sched := refresh.NewScheduler(app.Refresher, app.Logger, opts...)

	if cfg.Schedule.Enabled {
		if err := sched.Start(ctx, cfg.Schedule.Cron); err != nil {
			return nil, err
		}
		go sched.RunOnce(ctx, refresh.ReasonStart)
	}
	if cfg.Watch.Enabled {
		paths := refresh.WatchPaths(cfg.Datasets)
		if len(paths) == 0 {
			app.Logger.Warn("watch enabled but no file datasets configured")
		} else {
			w, err := watch.New(paths, cfg.Watch.Debounce, app.Logger)
			if err != nil {
				sched.Stop()
				return nil, err
			}
			go w.Run(ctx, sched.OnChange(ctx))
		}
	}
	return sched, nil
}

func newRouter(app *App) *gin.Engine {
	cfg := app.Config
	rc := httpserver.RouterConfig{
		OverlayHandler: handlers.NewOverlayHandler(app.Refresher, cfg.Server.RequestTimeout, app.Logger),
		HealthHandler:  handlers.NewHealthHandler(Version, app.HealthCheckers()...),
		Logging:        middleware.DefaultLoggingConfig(),
		Logger:         app.Logger,
		Metrics:        app.Metrics,
		Mode:           cfg.Server.Mode,
	}
	if app.Collector != nil {
		rc.MetricsCollector = app.Collector
		rc.MetricsPath = cfg.Metrics.Path
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = cfg.Server.CORSOrigins
		rc.CORS = &cors
	}
	if cfg.Server.RateLimit > 0 {
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.Server.RateLimit
		if cfg.Server.RateBurst > 0 {
			rl.BurstSize = cfg.Server.RateBurst
		}
		rc.RateLimit = &rl
	}
	return httpserver.NewRouter(rc)
}
