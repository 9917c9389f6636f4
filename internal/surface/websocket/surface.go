// Package websocket implements the map surface on top of a browser
// connection. Surface commands become envelopes for the browser's map
// client, and pointer events reported by the browser are dispatched to the
// subscribed tool handlers.
package websocket

import (
	"sync"

	"github.com/OCAP2/mapdraw/internal/geo"
	"github.com/OCAP2/mapdraw/internal/surface"
	"github.com/OCAP2/mapdraw/pkg/core"
	"github.com/OCAP2/mapdraw/pkg/streaming"
	"github.com/rs/zerolog"
)

// Sender delivers envelopes to the browser.
type Sender interface {
	Send(env streaming.Envelope) error
}

// Surface is a surface.Surface whose map lives in a browser. It remembers
// which layers and markers exist so existence checks answer locally.
type Surface struct {
	*surface.Registry

	sender Sender
	logger zerolog.Logger

	mu      sync.RWMutex
	layers  map[string]struct{}
	markers map[string]struct{}
}

// Verify Surface implements surface.Surface
var _ surface.Surface = (*Surface)(nil)

// NewSurface creates a surface sending its commands through sender.
func NewSurface(sender Sender, logger zerolog.Logger) *Surface {
	return &Surface{
		Registry: surface.NewRegistry(),
		sender:   sender,
		logger:   logger,
		layers:   make(map[string]struct{}),
		markers:  make(map[string]struct{}),
	}
}

// HandleClick dispatches a click reported by the browser.
func (s *Surface) HandleClick(p streaming.ClickPayload) {
	s.Dispatch(surface.Event{
		Type:       surface.EventClick,
		LngLat:     p.LngLat,
		Layer:      p.Layer,
		Properties: p.Properties,
	})
}

// HandleDoubleClick dispatches a double click reported by the browser.
func (s *Surface) HandleDoubleClick(p streaming.ClickPayload) {
	s.Dispatch(surface.Event{
		Type:   surface.EventDoubleClick,
		LngLat: p.LngLat,
	})
}

func (s *Surface) send(typ string, payload any) {
	env, err := streaming.NewEnvelope(typ, payload)
	if err == nil {
		err = s.sender.Send(env)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("type", typ).Msg("Failed to send surface command")
	}
}

// AddLayer sends the layer with its geometry encoded as GeoJSON.
func (s *Surface) AddLayer(l surface.Layer) {
	geometry, err := encodeGeometry(l.Geometry)
	if err != nil {
		s.logger.Warn().Err(err).Str("layer", l.ID).Msg("Failed to encode layer geometry")
		return
	}

	s.mu.Lock()
	s.layers[l.ID] = struct{}{}
	s.mu.Unlock()

	s.send(streaming.TypeAddLayer, streaming.AddLayerPayload{
		ID:         l.ID,
		Geometry:   geometry,
		Paint:      paintPayload(l.Paint),
		Layout:     streaming.LayoutPayload{Join: l.Layout.Join, Cap: l.Layout.Cap, Visible: l.Layout.Visible},
		Properties: l.Properties,
	})
}

// RemoveLayer removes the layer and its source if it exists.
func (s *Surface) RemoveLayer(id string) {
	s.mu.Lock()
	_, ok := s.layers[id]
	delete(s.layers, id)
	s.mu.Unlock()
	if !ok {
		return
	}
	s.send(streaming.TypeRemoveLayer, streaming.RemoveLayerPayload{ID: id})
}

// HasLayer reports whether the layer was added and not removed.
func (s *Surface) HasLayer(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.layers[id]
	return ok
}

// SetPaint restyles an existing layer.
func (s *Surface) SetPaint(id string, p surface.Paint) {
	if !s.HasLayer(id) {
		return
	}
	s.send(streaming.TypeSetPaint, streaming.SetPaintPayload{ID: id, Paint: paintPayload(p)})
}

// SetVisibility shows or hides an existing layer.
func (s *Surface) SetVisibility(id string, visible bool) {
	if !s.HasLayer(id) {
		return
	}
	s.send(streaming.TypeSetVisibility, streaming.SetVisibilityPayload{ID: id, Visible: visible})
}

// AddMarker places a marker element.
func (s *Surface) AddMarker(m surface.Marker) {
	s.mu.Lock()
	s.markers[m.ID] = struct{}{}
	s.mu.Unlock()

	s.send(streaming.TypeAddMarker, streaming.AddMarkerPayload{
		ID:        m.ID,
		LngLat:    m.LngLat,
		Popup:     m.Popup,
		ClassName: m.ClassName,
	})
}

// RemoveMarker removes a marker element if it exists.
func (s *Surface) RemoveMarker(id string) {
	s.mu.Lock()
	_, ok := s.markers[id]
	delete(s.markers, id)
	s.mu.Unlock()
	if !ok {
		return
	}
	s.send(streaming.TypeRemoveMarker, streaming.RemoveMarkerPayload{ID: id})
}

// SetMarkerVisibility shows or hides an existing marker element.
func (s *Surface) SetMarkerVisibility(id string, visible bool) {
	s.mu.RLock()
	_, ok := s.markers[id]
	s.mu.RUnlock()
	if !ok {
		return
	}
	s.send(streaming.TypeSetMarkerVisibility, streaming.SetVisibilityPayload{ID: id, Visible: visible})
}

// ShowPopup opens a popup on the browser map.
func (s *Surface) ShowPopup(p surface.Popup) {
	s.send(streaming.TypeShowPopup, streaming.PopupPayload{LngLat: p.LngLat, HTML: p.HTML})
}

func encodeGeometry(g surface.Geometry) ([]byte, error) {
	if g.Kind == surface.GeometryPoint {
		var p core.LngLat
		if len(g.Vertices) > 0 {
			p = g.Vertices[0]
		}
		return geo.PointGeoJSON(p)
	}
	return geo.LineGeoJSON(g.Vertices)
}

func paintPayload(p surface.Paint) streaming.PaintPayload {
	return streaming.PaintPayload{Color: p.Color, Width: p.Width, Dash: p.Dash}
}
