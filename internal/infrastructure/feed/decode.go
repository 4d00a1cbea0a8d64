package feed

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/turtacn/RiskOverlay/internal/domain/alert"
	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// Decode parses a GeoJSON document into raw alerts. A FeatureCollection
// yields one record per feature; a lone Feature or bare geometry yields one.
// Features without geometry are kept so the alert normalizer can report
// them as invalid.
func Decode(body []byte) ([]alert.Raw, *errors.AppError) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFeedUnavailable, "alert feed is not valid JSON")
	}

	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(body)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeFeedUnavailable, "malformed feature collection")
		}
		raws := make([]alert.Raw, 0, len(fc.Features))
		for _, f := range fc.Features {
			raws = append(raws, fromFeature(f))
		}
		return raws, nil
	case "Feature":
		f, err := geojson.UnmarshalFeature(body)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeFeedUnavailable, "malformed feature")
		}
		return []alert.Raw{fromFeature(f)}, nil
	case "":
		return nil, errors.New(errors.ErrCodeFeedUnavailable, "alert feed has no GeoJSON type")
	default:
		g, err := geojson.UnmarshalGeometry(body)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeFeedUnavailable, "malformed geometry")
		}
		return []alert.Raw{{Geometry: g.Geometry()}}, nil
	}
}

func fromFeature(f *geojson.Feature) alert.Raw {
	raw := alert.Raw{Geometry: f.Geometry, Properties: map[string]interface{}(f.Properties)}
	switch id := f.ID.(type) {
	case nil:
	case string:
		raw.ID = id
	case float64:
		raw.ID = fmt.Sprintf("%g", id)
	default:
		raw.ID = fmt.Sprint(id)
	}
	if raw.ID == "" {
		raw.ID = f.Properties.MustString("id", "")
	}
	return raw
}
