package alert

import (
	"math"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/RiskOverlay/pkg/errors"
)

func square(x0, y0, x1, y1 float64) orb.Polygon {
	return orb.Polygon{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}}
}

func TestNormalize_ValidShapes(t *testing.T) {
	t.Parallel()

	raws := []Raw{
		{ID: "a", Geometry: square(0, 0, 1, 1), Properties: map[string]interface{}{"descricao": "Chuvas intensas", "cor": "#FF0000"}},
		{ID: "b", Geometry: orb.Ring{{0, 0}, {1, 0}, {0, 1}}},
		{ID: "c", Geometry: orb.MultiPolygon{square(2, 2, 3, 3), square(4, 4, 5, 5)}, Properties: map[string]interface{}{"description": "Vendaval"}},
	}
	valid, invalid := Normalize(raws)

	assert.Empty(t, invalid)
	require.Len(t, valid, 4)
	assert.Equal(t, "a", valid[0].ID)
	assert.Equal(t, "Chuvas intensas", valid[0].Description)
	assert.Equal(t, "#FF0000", valid[0].Color)
	assert.Equal(t, "b", valid[1].ID)
	assert.Equal(t, "b", valid[1].Description)
	assert.Equal(t, "c#0", valid[2].ID)
	assert.Equal(t, "c#1", valid[3].ID)
	assert.Equal(t, "Vendaval", valid[3].Description)
}

func TestNormalize_TwoVertexRingIsInvalid(t *testing.T) {
	t.Parallel()

	raws := []Raw{
		{ID: "line", Geometry: orb.Polygon{{{0, 0}, {1, 1}, {0, 0}}}},
		{ID: "ok", Geometry: square(0, 0, 1, 1)},
	}
	valid, invalid := Normalize(raws)

	require.Len(t, valid, 1)
	assert.Equal(t, "ok", valid[0].ID)
	require.Len(t, invalid, 1)
	assert.Equal(t, 0, invalid[0].Index)
	assert.Equal(t, "line", invalid[0].ID)
	assert.Contains(t, invalid[0].Reason, "2 distinct vertices")
	assert.True(t, errors.IsInvalidGeometry(invalid[0].Err))
}

func TestNormalize_RejectsBadGeometry(t *testing.T) {
	t.Parallel()

	raws := []Raw{
		{Geometry: nil},
		{Geometry: orb.Point{1, 2}},
		{Geometry: orb.Polygon{{{0, 0}, {math.NaN(), 0}, {1, 1}, {0, 1}}}},
		{Geometry: orb.Polygon{{{0, 0}, {1, 0}, {1, 1}}, {{0.1, 0.1}, {0.2, 0.2}}}},
		{Geometry: orb.MultiPolygon{}},
		{Geometry: orb.MultiPolygon{square(0, 0, 1, 1), {{{0, 0}, {0, 0}, {0, 0}}}}},
	}
	valid, invalid := Normalize(raws)

	require.Len(t, valid, 1)
	assert.Equal(t, "alert-5#0", valid[0].ID)

	reasons := make([]string, 0, len(invalid))
	for _, inv := range invalid {
		reasons = append(reasons, inv.Reason)
	}
	require.Len(t, invalid, 6, reasons)
	assert.Equal(t, "missing geometry", invalid[0].Reason)
	assert.Contains(t, invalid[1].Reason, "Point")
	assert.Contains(t, invalid[2].Reason, "non-finite")
	assert.Contains(t, invalid[3].Reason, "hole 1")
	assert.Equal(t, "empty multipolygon", invalid[4].Reason)
	assert.Equal(t, "alert-5#1", invalid[5].ID)
	assert.Equal(t, 5, invalid[5].Index)
}

func TestNormalize_TimeWindow(t *testing.T) {
	t.Parallel()

	raws := []Raw{{
		ID:       "w",
		Geometry: square(0, 0, 1, 1),
		Properties: map[string]interface{}{
			"inicio": "2024-05-01T00:00:00Z",
			"fim":    "2024-05-03 12:00:00",
		},
	}}
	valid, _ := Normalize(raws)
	require.Len(t, valid, 1)
	p := valid[0]
	require.NotNil(t, p.Issued)
	require.NotNil(t, p.Expires)
	assert.True(t, p.Active(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)))
	assert.False(t, p.Active(time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)))
	assert.False(t, p.Active(time.Date(2024, 5, 4, 0, 0, 0, 0, time.UTC)))

	open := Polygon{}
	assert.True(t, open.Active(time.Now()))
}

func TestNormalize_CopiesGeometry(t *testing.T) {
	t.Parallel()

	geom := square(0, 0, 1, 1)
	valid, _ := Normalize([]Raw{{ID: "x", Geometry: geom}})
	require.Len(t, valid, 1)
	geom[0][0] = orb.Point{9, 9}
	assert.Equal(t, orb.Point{0, 0}, valid[0].Geometry[0][0])
}
