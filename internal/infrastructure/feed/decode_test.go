package feed

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/RiskOverlay/pkg/errors"
)

func TestDecode_SingleFeature(t *testing.T) {
	raws, err := Decode([]byte(`{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,0]]]},"properties":{"description":"x"}}`))
	require.Nil(t, err)
	require.Len(t, raws, 1)
	_, ok := raws[0].Geometry.(orb.Polygon)
	assert.True(t, ok)
}

func TestDecode_BareGeometry(t *testing.T) {
	raws, err := Decode([]byte(`{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,0]]]}`))
	require.Nil(t, err)
	require.Len(t, raws, 1)
	assert.Empty(t, raws[0].ID)
}

func TestDecode_Errors(t *testing.T) {
	for _, body := range []string{`not json`, `{}`, `{"type":"FeatureCollection","features":"nope"}`} {
		_, err := Decode([]byte(body))
		require.NotNil(t, err, body)
		assert.True(t, errors.IsFeedUnavailable(err), body)
	}
}

func TestDecode_EmptyCollection(t *testing.T) {
	raws, err := Decode([]byte(`{"type":"FeatureCollection","features":[]}`))
	require.Nil(t, err)
	assert.Empty(t, raws)
}
