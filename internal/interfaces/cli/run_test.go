package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/RiskOverlay/internal/application/refresh"
	"github.com/turtacn/RiskOverlay/internal/config"
	"github.com/turtacn/RiskOverlay/internal/domain/facility"
	"github.com/turtacn/RiskOverlay/internal/domain/risk"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// -----------------------------------------------------------------------
// run
// -----------------------------------------------------------------------

func TestRun_Text(t *testing.T) {
	out, _, err := execute(t, "--config", fixture(t, ""), "run", "--details")
	require.NoError(t, err)

	assert.Contains(t, out, "Alert feed: ok, 1 valid")
	assert.Regexp(t, regexp.MustCompile(`Hospitais\s+1\s+3\s+0`), out)
	assert.Regexp(t, regexp.MustCompile(`Barragens\s+0\s+0\s+0`), out)
	assert.Contains(t, out, "Hospitais inside the risk region:")
	assert.Contains(t, out, "  - Hospital A -29.50000, -51.50000")
	assert.NotContains(t, out, "Hospital B")
	assert.NotContains(t, out, "NOTICE")
}

func TestRun_JSON(t *testing.T) {
	out, _, err := execute(t, "--config", fixture(t, ""), "-o", "json", "run", "--category", "hospitais")
	require.NoError(t, err)

	var res struct {
		ID       string `json:"id"`
		Degraded bool   `json:"degraded"`
		Feed     struct {
			State string `json:"state"`
		} `json:"feed"`
		Datasets []struct {
			Name string `json:"name"`
			Kept int    `json:"kept"`
		} `json:"datasets"`
		Partitions []risk.Partition `json:"partitions"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.NotEmpty(t, res.ID)
	assert.False(t, res.Degraded)
	assert.Equal(t, "ok", res.Feed.State)
	require.Len(t, res.Datasets, 1)
	assert.Equal(t, 3, res.Datasets[0].Kept)
	require.Len(t, res.Partitions, 1)
	require.Len(t, res.Partitions[0].Inside, 1)
	assert.Equal(t, "Hospital A", res.Partitions[0].Inside[0].Label)
}

func TestRun_FeedDownStillReports(t *testing.T) {
	cfg := fixture(t, "file://"+filepath.Join(t.TempDir(), "missing.geojson"))
	out, _, err := execute(t, "--config", cfg, "run")
	require.NoError(t, err)

	assert.Contains(t, out, "Alert feed: unavailable")
	assert.Contains(t, out, "NOTICE: "+refresh.FeedUnavailableNotice)
	assert.Regexp(t, regexp.MustCompile(`Hospitais\s+0\s+3\s+0`), out)
}

func TestRun_UnknownCategory(t *testing.T) {
	_, _, err := execute(t, "--config", fixture(t, ""), "run", "--category", "volcano")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownCategory))
}

func TestRun_BadAt(t *testing.T) {
	_, _, err := execute(t, "--config", fixture(t, ""), "run", "--at", "yesterday")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestBuildOptions(t *testing.T) {
	opts, err := buildOptions([]string{"UBS", "Escolas"}, "2024-05-03T12:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, []facility.Category{facility.CategoryBasicHealthUnit, facility.CategorySchool}, opts.Categories)
	assert.Equal(t, time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC), opts.At)
}

// -----------------------------------------------------------------------
// region
// -----------------------------------------------------------------------

func TestRegion_Stdout(t *testing.T) {
	out, _, err := execute(t, "--config", fixture(t, ""), "region")
	require.NoError(t, err)

	fc, err := geojson.UnmarshalFeatureCollection([]byte(out))
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	_, ok := fc.Features[0].Geometry.(orb.Polygon)
	assert.True(t, ok)
}

func TestRegion_File(t *testing.T) {
	target := filepath.Join(t.TempDir(), "region.geojson")
	out, _, err := execute(t, "--config", fixture(t, ""), "region", "-f", target)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	assert.Len(t, fc.Features, 1)
}

func TestRegion_FeedDownIsEmpty(t *testing.T) {
	cfg := fixture(t, "file://"+filepath.Join(t.TempDir(), "missing.geojson"))
	out, _, err := execute(t, "--config", cfg, "region")
	require.NoError(t, err)

	fc, err := geojson.UnmarshalFeatureCollection([]byte(out))
	require.NoError(t, err)
	assert.Empty(t, fc.Features)
}

// -----------------------------------------------------------------------
// events
// -----------------------------------------------------------------------

type fakeEvents struct {
	envs   []*kafka.EventEnvelope
	closed bool
}

func (f *fakeEvents) Run(ctx context.Context, h kafka.Handler) error {
	for _, env := range f.envs {
		if ctx.Err() != nil {
			return nil
		}
		if err := h(ctx, env); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeEvents) Close() error {
	f.closed = true
	return nil
}

func snapshotEnvelope(t *testing.T, id string) *kafka.EventEnvelope {
	t.Helper()
	env, err := kafka.NewEventEnvelope(kafka.EventSnapshotCompleted, refresh.EventSource, refresh.Event{
		SnapshotID: id,
		CreatedAt:  time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC),
		Feed:       refresh.FeedOK,
		Valid:      2,
		Contours:   1,
		Rows:       []risk.SummaryRow{{Category: facility.CategoryHospital, Inside: 1, Total: 3}},
	})
	require.NoError(t, err)
	return env
}

func eventsFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "riskoverlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\nkafka:\n  brokers: [localhost:9092]\n"), 0o600))
	return path
}

func TestEvents_PrintsUntilLimit(t *testing.T) {
	fake := &fakeEvents{envs: []*kafka.EventEnvelope{
		snapshotEnvelope(t, "s1"),
		snapshotEnvelope(t, "s2"),
	}}
	orig := openEvents
	openEvents = func(config.KafkaConfig, logging.Logger) (eventSource, error) { return fake, nil }
	t.Cleanup(func() { openEvents = orig })

	out, _, err := execute(t, "--config", eventsFixture(t), "events", "--limit", "1")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-03T12:00:00Z snapshot s1 feed=ok alerts=2 contours=1 hospital=1/3\n", out)
	assert.True(t, fake.closed)
}

func TestEvents_NoBrokers(t *testing.T) {
	_, _, err := execute(t, "--config", fixture(t, ""), "events")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestPrintEvent_JSONAndForeignType(t *testing.T) {
	var buf bytes.Buffer
	env := snapshotEnvelope(t, "s9")
	require.NoError(t, printEvent(&buf, OutputJSON, env))

	var back kafka.EventEnvelope
	require.NoError(t, json.Unmarshal([]byte(buf.String()), &back))
	assert.Equal(t, env.EventID, back.EventID)

	buf.Reset()
	other, err := kafka.NewEventEnvelope("riskoverlay.other", "test", map[string]int{"n": 1})
	require.NoError(t, err)
	require.NoError(t, printEvent(&buf, OutputText, other))
	assert.Contains(t, buf.String(), "riskoverlay.other ("+other.EventID+")")
}

func latestFixture(t *testing.T) (string, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	path := filepath.Join(t.TempDir(), "riskoverlay.yaml")
	cfg := fmt.Sprintf("log:\n  level: error\nredis:\n  enabled: true\n  addr: %s\n  channel: overlay.test\n", mr.Addr())
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path, mr
}

func TestEvents_Latest(t *testing.T) {
	cfg, mr := latestFixture(t)
	var ev refresh.Event
	require.NoError(t, snapshotEnvelope(t, "s7").DecodePayload(&ev))
	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	require.NoError(t, mr.Set("overlay.test:latest", string(payload)))

	out, _, err := execute(t, "--config", cfg, "events", "--latest")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-03T12:00:00Z snapshot s7 feed=ok alerts=2 contours=1 hospital=1/3\n", out)

	out, _, err = execute(t, "--config", cfg, "-o", "json", "events", "--latest")
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), out)
}

func TestEvents_LatestNothingPublished(t *testing.T) {
	cfg, _ := latestFixture(t)
	_, _, err := execute(t, "--config", cfg, "events", "--latest")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestEvents_LatestNeedsRedis(t *testing.T) {
	_, _, err := execute(t, "--config", fixture(t, ""), "events", "--latest")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}
