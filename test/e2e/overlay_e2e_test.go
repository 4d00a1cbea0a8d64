//go:build e2e

package e2e_test

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/RiskOverlay/pkg/client"
)

func TestE2E_Probes(t *testing.T) {
	ctx := testContext(t)

	live, err := env.sdk.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alive", live.Status)

	ready, err := env.sdk.Readiness(ctx)
	require.NoError(t, err, "components: %+v", ready)
	assert.True(t, ready.Ready())
}

func TestE2E_SummaryCounts(t *testing.T) {
	s, err := env.sdk.Summary(testContext(t))
	require.NoError(t, err)
	require.NotEmpty(t, s.SnapshotID)
	require.NotEmpty(t, s.Categories, "server has no datasets configured")

	for _, row := range s.Categories {
		assert.GreaterOrEqual(t, row.Inside, 0, row.Category)
		assert.LessOrEqual(t, row.Inside, row.Total, row.Category)
	}
	if !s.Feed.Available() {
		assert.NotEmpty(t, s.Feed.Notice)
		for _, row := range s.Categories {
			assert.Zero(t, row.Inside, "feed down but %s has records inside", row.Category)
		}
	}
}

func TestE2E_CategoryPartition(t *testing.T) {
	ctx := testContext(t)
	s, err := env.sdk.Summary(ctx)
	require.NoError(t, err)

	for _, row := range s.Categories {
		row := row
		t.Run(row.Category, func(t *testing.T) {
			all, err := env.sdk.Category(ctx, row.Category, client.SubsetAll)
			require.NoError(t, err)
			assert.Len(t, all.Records, all.Total)

			inside := 0
			for _, r := range all.Records {
				if r.Inside {
					inside++
				}
				assert.True(t, r.Latitude >= -90 && r.Latitude <= 90, r.Label)
				assert.True(t, r.Longitude >= -180 && r.Longitude <= 180, r.Label)
			}
			assert.Equal(t, all.Inside, inside)
		})
	}
}

func TestE2E_Region(t *testing.T) {
	region, err := env.sdk.Region(testContext(t))
	require.NoError(t, err)
	assert.NotEmpty(t, region.SnapshotID)

	for _, f := range region.Features.Features {
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			t.Errorf("region feature has geometry %s", f.Geometry.GeoJSONType())
		}
	}
	if region.Notice != "" {
		assert.Empty(t, region.Features.Features)
	}
}

func TestE2E_UnknownCategory(t *testing.T) {
	_, err := env.sdk.Category(testContext(t), "volcano", "")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
}
