package memory

import (
	"testing"

	"github.com/OCAP2/mapdraw/internal/surface"
	"github.com/OCAP2/mapdraw/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineLayer(id string, visible bool, pts ...core.LngLat) surface.Layer {
	return surface.Layer{
		ID:         id,
		Geometry:   surface.LineGeometry(pts),
		Paint:      surface.Paint{Color: "#808080", Width: 6},
		Layout:     surface.Layout{Visible: visible},
		Properties: map[string]any{"description": "Created: 18.10.2026"},
	}
}

func TestNew(t *testing.T) {
	s := New()

	require.NotNil(t, s)
	assert.Equal(t, DefaultHitTolerance, s.tolerance)
	assert.Empty(t, s.LayerIDs())
	assert.Empty(t, s.Markers())
	assert.Empty(t, s.Popups())
}

func TestWithHitTolerance(t *testing.T) {
	s := New(WithHitTolerance(5))
	assert.Equal(t, 5.0, s.tolerance)
}

func TestAddAndRemoveLayer(t *testing.T) {
	s := New()
	s.AddLayer(lineLayer("a", true, core.LngLat{Lng: 0, Lat: 0}, core.LngLat{Lng: 1, Lat: 1}))
	s.AddLayer(lineLayer("b", true))

	assert.True(t, s.HasLayer("a"))
	assert.Equal(t, []string{"a", "b"}, s.LayerIDs())

	s.RemoveLayer("a")
	assert.False(t, s.HasLayer("a"))
	assert.Equal(t, []string{"b"}, s.LayerIDs())

	ops := s.Ops()
	assert.Equal(t, []Op{
		{Kind: OpAddLayer, ID: "a"},
		{Kind: OpAddLayer, ID: "b"},
		{Kind: OpRemoveLayer, ID: "a"},
	}, ops)
}

func TestAddLayer_CopiesGeometry(t *testing.T) {
	s := New()
	pts := core.Polyline{{Lng: 1, Lat: 1}, {Lng: 2, Lat: 2}}
	l := surface.Layer{ID: "a", Geometry: surface.Geometry{Kind: surface.GeometryLine, Vertices: pts}}
	s.AddLayer(l)

	pts[0].Lng = 99

	got, ok := s.Layer("a")
	require.True(t, ok)
	assert.Equal(t, 1.0, got.Geometry.Vertices[0].Lng)
}

func TestMissingTargetsAreNoOps(t *testing.T) {
	s := New()

	s.RemoveLayer("nope")
	s.SetPaint("nope", surface.Paint{Color: "red"})
	s.SetVisibility("nope", false)
	s.RemoveMarker("nope")
	s.SetMarkerVisibility("nope", false)

	assert.Empty(t, s.Ops())
}

func TestSetPaintAndVisibility(t *testing.T) {
	s := New()
	s.AddLayer(lineLayer("a", true))

	s.SetPaint("a", surface.Paint{Color: "#FFBF00", Width: 6, Dash: []float64{3, 2}})
	s.SetVisibility("a", false)

	l, ok := s.Layer("a")
	require.True(t, ok)
	assert.Equal(t, "#FFBF00", l.Paint.Color)
	assert.Equal(t, []float64{3, 2}, l.Paint.Dash)
	assert.False(t, l.Layout.Visible)
}

func TestMarkers(t *testing.T) {
	s := New()
	s.AddMarker(surface.Marker{ID: "m1", LngLat: core.LngLat{Lng: 37.6, Lat: 55.8}, Popup: "hi"})
	s.AddMarker(surface.Marker{ID: "m2"})

	m, ok := s.Marker("m1")
	require.True(t, ok)
	assert.True(t, m.Visible)
	assert.Equal(t, "hi", m.Marker.Popup)

	s.SetMarkerVisibility("m1", false)
	m, _ = s.Marker("m1")
	assert.False(t, m.Visible)

	s.RemoveMarker("m1")
	_, ok = s.Marker("m1")
	assert.False(t, ok)

	require.Len(t, s.Markers(), 1)
	assert.Equal(t, "m2", s.Markers()[0].Marker.ID)
}

func TestShowPopup(t *testing.T) {
	s := New()
	s.ShowPopup(surface.Popup{LngLat: core.LngLat{Lng: 1, Lat: 2}, HTML: "label"})

	require.Len(t, s.Popups(), 1)
	assert.Equal(t, "label", s.Popups()[0].HTML)
}

func TestClick_MapWide(t *testing.T) {
	s := New()
	var got surface.Event
	s.On(surface.EventClick, "", func(e surface.Event) { got = e })

	s.Click(core.LngLat{Lng: 37.6, Lat: 55.8})

	assert.Equal(t, surface.EventClick, got.Type)
	assert.Equal(t, core.LngLat{Lng: 37.6, Lat: 55.8}, got.LngLat)
	assert.Empty(t, got.Layer)
}

func TestClick_HitsLineLayer(t *testing.T) {
	s := New()
	s.AddLayer(lineLayer("line-1", true, core.LngLat{Lng: 0, Lat: 0}, core.LngLat{Lng: 1, Lat: 0}))

	var layerEvent surface.Event
	hits := 0
	s.On(surface.EventClick, "line-1", func(e surface.Event) {
		hits++
		layerEvent = e
	})

	s.Click(core.LngLat{Lng: 0.5, Lat: 0.001}) // ~111m off the line
	require.Equal(t, 1, hits)
	assert.Equal(t, "line-1", layerEvent.Layer)
	assert.Equal(t, "Created: 18.10.2026", layerEvent.Properties["description"])

	s.Click(core.LngLat{Lng: 0.5, Lat: 1}) // far away
	assert.Equal(t, 1, hits)
}

func TestClick_HiddenLayerNotHit(t *testing.T) {
	s := New()
	s.AddLayer(lineLayer("line-1", false, core.LngLat{Lng: 0, Lat: 0}, core.LngLat{Lng: 1, Lat: 0}))

	hits := 0
	s.On(surface.EventClick, "line-1", func(surface.Event) { hits++ })
	s.Click(core.LngLat{Lng: 0.5, Lat: 0})

	assert.Equal(t, 0, hits)
}

func TestClick_TopmostLayerWins(t *testing.T) {
	s := New()
	s.AddLayer(lineLayer("below", true, core.LngLat{Lng: 0, Lat: 0}, core.LngLat{Lng: 1, Lat: 0}))
	s.AddLayer(lineLayer("above", true, core.LngLat{Lng: 0, Lat: 0}, core.LngLat{Lng: 1, Lat: 0}))

	var layer string
	s.On(surface.EventClick, "", func(e surface.Event) { layer = e.Layer })
	s.Click(core.LngLat{Lng: 0.5, Lat: 0})

	assert.Equal(t, "above", layer)
}

func TestDoubleClick(t *testing.T) {
	s := New()
	calls := 0
	s.Once(surface.EventDoubleClick, func(surface.Event) { calls++ })

	s.DoubleClick(core.LngLat{})
	s.DoubleClick(core.LngLat{})

	assert.Equal(t, 1, calls)
}
