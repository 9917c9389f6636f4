package geo

import (
	"encoding/json"
	"fmt"

	"github.com/OCAP2/mapdraw/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// LineString converts a vertex sequence into a geom.LineString. A single
// vertex produces a one-point line string, which map renderers draw as
// nothing; that is the expected look of a draft after its first click.
func LineString(line core.Polyline) geom.LineString {
	flatCoords := make([]float64, 0, len(line)*2)
	for _, v := range line {
		flatCoords = append(flatCoords, v.Lng, v.Lat)
	}
	seq := geom.NewSequence(flatCoords, geom.DimXY)
	return geom.NewLineString(seq)
}

// Point converts a position into a geom.Point.
func Point(p core.LngLat) geom.Point {
	return geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: p.Lng, Y: p.Lat},
			Type: geom.DimXY,
		},
	)
}

// LineGeoJSON encodes line as a GeoJSON LineString geometry.
func LineGeoJSON(line core.Polyline) (json.RawMessage, error) {
	raw, err := LineString(line).AsGeometry().MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode line geometry: %w", err)
	}
	return raw, nil
}

// PointGeoJSON encodes p as a GeoJSON Point geometry.
func PointGeoJSON(p core.LngLat) (json.RawMessage, error) {
	raw, err := Point(p).AsGeometry().MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode point geometry: %w", err)
	}
	return raw, nil
}
