// Package surface describes the map rendering capabilities the drawing
// tools depend on. The map engine itself (tiles, pan, zoom, projection)
// lives behind this interface.
package surface

import "github.com/OCAP2/mapdraw/pkg/core"

// EventType identifies a pointer event delivered by the map.
type EventType string

const (
	EventClick       EventType = "click"
	EventDoubleClick EventType = "dblclick"
)

// Event is a pointer event in geographic coordinates. Layer and Properties
// are set when the pointer hit a named layer.
type Event struct {
	Type       EventType
	LngLat     core.LngLat
	Layer      string
	Properties map[string]any
}

// Handler receives map events. Handlers run on the surface's event goroutine.
type Handler func(Event)

// Surface is the set of map capabilities used by the drawing tools.
// Removing something that does not exist is a no-op on every implementation.
type Surface interface {
	// On subscribes h to ev. An empty layerID subscribes to the whole map;
	// otherwise h only sees events that hit that layer.
	On(ev EventType, layerID string, h Handler) (cancel func())
	// Once subscribes h to the next map-wide ev only.
	Once(ev EventType, h Handler) (cancel func())

	AddLayer(l Layer)
	RemoveLayer(id string)
	HasLayer(id string) bool
	SetPaint(id string, p Paint)
	SetVisibility(id string, visible bool)

	AddMarker(m Marker)
	RemoveMarker(id string)
	SetMarkerVisibility(id string, visible bool)

	ShowPopup(p Popup)
}
