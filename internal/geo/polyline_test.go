package geo

import (
	"encoding/json"
	"testing"

	"github.com/OCAP2/mapdraw/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineGeoJSON(t *testing.T) {
	raw, err := LineGeoJSON(core.Polyline{{Lng: 10, Lat: 20}, {Lng: 11, Lat: 21}, {Lng: 12, Lat: 22}})
	require.NoError(t, err)

	var decoded struct {
		Type        string      `json:"type"`
		Coordinates [][]float64 `json:"coordinates"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "LineString", decoded.Type)
	assert.Equal(t, [][]float64{{10, 20}, {11, 21}, {12, 22}}, decoded.Coordinates)
}

func TestPointGeoJSON(t *testing.T) {
	raw, err := PointGeoJSON(core.LngLat{Lng: 37.6, Lat: 55.8})
	require.NoError(t, err)

	var decoded struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "Point", decoded.Type)
	assert.Equal(t, []float64{37.6, 55.8}, decoded.Coordinates)
}
