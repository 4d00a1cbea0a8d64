package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/RiskOverlay/internal/config"
	"github.com/turtacn/RiskOverlay/internal/domain/facility"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/logging"
)

func testApp(t *testing.T, mutate func(*config.Config)) *App {
	t.Helper()
	cfg, err := config.Load(fixture(t, ""))
	require.NoError(t, err)
	mutate(cfg)

	app, err := NewApp(context.Background(), cfg, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestNewScheduler_Disabled(t *testing.T) {
	app := testApp(t, func(*config.Config) {})

	sched, err := newScheduler(context.Background(), app)
	require.NoError(t, err)
	assert.Nil(t, sched)
}

func TestNewScheduler_StartupRun(t *testing.T) {
	app := testApp(t, func(c *config.Config) {
		c.Schedule.Enabled = true
		c.Schedule.Cron = "0 0 1 1 *"
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched, err := newScheduler(ctx, app)
	require.NoError(t, err)
	require.NotNil(t, sched)
	defer sched.Stop()

	require.Eventually(t, func() bool { return sched.Last() != nil }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, sched.Last().Summary.Inside[facility.CategoryHospital])
}
