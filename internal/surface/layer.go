package surface

import "github.com/OCAP2/mapdraw/pkg/core"

// GeometryKind is the shape of a layer's backing source.
type GeometryKind string

const (
	GeometryPoint GeometryKind = "Point"
	GeometryLine  GeometryKind = "LineString"
)

// Geometry is the data source behind a layer. A point uses the first vertex.
type Geometry struct {
	Kind     GeometryKind
	Vertices core.Polyline
}

// LineGeometry wraps a vertex sequence as a line source.
func LineGeometry(v core.Polyline) Geometry {
	return Geometry{Kind: GeometryLine, Vertices: v.Clone()}
}

// Paint holds the visual properties of a layer. A nil Dash draws solid.
type Paint struct {
	Color string    `json:"color"`
	Width float64   `json:"width"`
	Dash  []float64 `json:"dash,omitempty"`
}

// Layout holds properties that change how a layer is laid out.
type Layout struct {
	Join    string `json:"join,omitempty"`
	Cap     string `json:"cap,omitempty"`
	Visible bool   `json:"visible"`
}

// Layer is a named, styled rendering unit backed by a geometry source.
// The source carries the same name as the layer.
type Layer struct {
	ID         string
	Geometry   Geometry
	Paint      Paint
	Layout     Layout
	Properties map[string]any
}

// Marker is a point marker element with an optional popup.
type Marker struct {
	ID        string
	LngLat    core.LngLat
	Popup     string
	ClassName string
}

// Popup is a transient info bubble anchored to a position.
type Popup struct {
	LngLat core.LngLat
	HTML   string
}
