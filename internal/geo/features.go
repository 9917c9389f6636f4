package geo

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/OCAP2/mapdraw/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// Feature kinds written to the "kind" property of exported features.
const (
	KindMarker = "marker"
	KindLine   = "line"
)

// FeatureCollection builds a GeoJSON FeatureCollection from committed
// drawings. Markers come first, then lines, each in commit order.
func FeatureCollection(markers []core.Marker, lines []core.Line) geom.GeoJSONFeatureCollection {
	fc := make(geom.GeoJSONFeatureCollection, 0, len(markers)+len(lines))
	for _, m := range markers {
		fc = append(fc, geom.GeoJSONFeature{
			Geometry: Point(m.Position).AsGeometry(),
			ID:       m.ID,
			Properties: map[string]interface{}{
				"kind":        KindMarker,
				"description": m.Label,
				"createdAt":   m.CreatedAt.Format(time.RFC3339),
			},
		})
	}
	for _, l := range lines {
		fc = append(fc, geom.GeoJSONFeature{
			Geometry: LineString(l.Vertices).AsGeometry(),
			ID:       l.ID,
			Properties: map[string]interface{}{
				"kind":        KindLine,
				"description": l.Label,
				"createdAt":   l.CreatedAt.Format(time.RFC3339),
				"vertices":    len(l.Vertices),
			},
		})
	}
	return fc
}

// MarshalFeatureCollection encodes committed drawings as GeoJSON.
func MarshalFeatureCollection(markers []core.Marker, lines []core.Line) ([]byte, error) {
	data, err := json.Marshal(FeatureCollection(markers, lines))
	if err != nil {
		return nil, fmt.Errorf("failed to encode feature collection: %w", err)
	}
	return data, nil
}
