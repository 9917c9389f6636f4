// Package memory implements an in-process map surface. It keeps layers,
// markers and popups in maps and journals every mutation, which makes it
// the surface of choice for tests and headless sessions.
package memory

import (
	"sync"

	"github.com/OCAP2/mapdraw/internal/geo"
	"github.com/OCAP2/mapdraw/internal/queue"
	"github.com/OCAP2/mapdraw/internal/surface"
	"github.com/OCAP2/mapdraw/pkg/core"
)

// DefaultHitTolerance is how close, in Web Mercator meters, a click must be
// to a line layer to count as hitting it.
const DefaultHitTolerance = 1000.0

const journalLimit = 10_000

// Operation kinds recorded in the journal.
const (
	OpAddLayer            = "add_layer"
	OpRemoveLayer         = "remove_layer"
	OpSetPaint            = "set_paint"
	OpSetVisibility       = "set_visibility"
	OpAddMarker           = "add_marker"
	OpRemoveMarker        = "remove_marker"
	OpSetMarkerVisibility = "set_marker_visibility"
	OpShowPopup           = "show_popup"
)

// Op is one journaled surface mutation.
type Op struct {
	Kind string
	ID   string
}

// MarkerRecord is a placed marker together with its visibility.
type MarkerRecord struct {
	Marker  surface.Marker
	Visible bool
}

// Option configures a Surface.
type Option func(*Surface)

// WithHitTolerance sets the click distance, in meters, that hits a line layer.
func WithHitTolerance(meters float64) Option {
	return func(s *Surface) {
		s.tolerance = meters
	}
}

// Surface is an in-memory surface.Surface.
type Surface struct {
	*surface.Registry

	mu          sync.RWMutex
	layers      map[string]*surface.Layer
	layerOrder  []string
	markers     map[string]*MarkerRecord
	markerOrder []string
	popups      []surface.Popup

	journal   *queue.Queue[Op]
	tolerance float64
}

// Verify Surface implements surface.Surface
var _ surface.Surface = (*Surface)(nil)

// New creates an empty Surface.
func New(opts ...Option) *Surface {
	s := &Surface{
		Registry:  surface.NewRegistry(),
		layers:    make(map[string]*surface.Layer),
		markers:   make(map[string]*MarkerRecord),
		journal:   queue.New[Op](journalLimit),
		tolerance: DefaultHitTolerance,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Click delivers a single click at p. The topmost visible line layer within
// the hit tolerance is reported as the clicked layer.
func (s *Surface) Click(p core.LngLat) {
	e := surface.Event{Type: surface.EventClick, LngLat: p}
	if l, ok := s.hitTest(p); ok {
		e.Layer = l.ID
		e.Properties = copyProps(l.Properties)
	}
	s.Dispatch(e)
}

// DoubleClick delivers a double click at p.
func (s *Surface) DoubleClick(p core.LngLat) {
	s.Dispatch(surface.Event{Type: surface.EventDoubleClick, LngLat: p})
}

func (s *Surface) hitTest(p core.LngLat) (surface.Layer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.layerOrder) - 1; i >= 0; i-- {
		l := s.layers[s.layerOrder[i]]
		if !l.Layout.Visible {
			continue
		}
		if geo.DistanceMeters(l.Geometry.Vertices, p) <= s.tolerance {
			return *l, true
		}
	}
	return surface.Layer{}, false
}

// AddLayer adds l, replacing any layer with the same ID.
func (s *Surface) AddLayer(l surface.Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.layers[l.ID]; !ok {
		s.layerOrder = append(s.layerOrder, l.ID)
	}
	l.Geometry.Vertices = l.Geometry.Vertices.Clone()
	l.Properties = copyProps(l.Properties)
	s.layers[l.ID] = &l
	s.journal.Push(Op{Kind: OpAddLayer, ID: l.ID})
}

// RemoveLayer removes the layer and its source.
func (s *Surface) RemoveLayer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.layers[id]; !ok {
		return
	}
	delete(s.layers, id)
	s.layerOrder = without(s.layerOrder, id)
	s.journal.Push(Op{Kind: OpRemoveLayer, ID: id})
}

// HasLayer reports whether a layer exists.
func (s *Surface) HasLayer(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.layers[id]
	return ok
}

// SetPaint replaces the paint of an existing layer.
func (s *Surface) SetPaint(id string, p surface.Paint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.layers[id]
	if !ok {
		return
	}
	l.Paint = p
	s.journal.Push(Op{Kind: OpSetPaint, ID: id})
}

// SetVisibility shows or hides an existing layer.
func (s *Surface) SetVisibility(id string, visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.layers[id]
	if !ok {
		return
	}
	l.Layout.Visible = visible
	s.journal.Push(Op{Kind: OpSetVisibility, ID: id})
}

// AddMarker places a visible marker, replacing any marker with the same ID.
func (s *Surface) AddMarker(m surface.Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markers[m.ID]; !ok {
		s.markerOrder = append(s.markerOrder, m.ID)
	}
	s.markers[m.ID] = &MarkerRecord{Marker: m, Visible: true}
	s.journal.Push(Op{Kind: OpAddMarker, ID: m.ID})
}

// RemoveMarker removes a marker element.
func (s *Surface) RemoveMarker(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markers[id]; !ok {
		return
	}
	delete(s.markers, id)
	s.markerOrder = without(s.markerOrder, id)
	s.journal.Push(Op{Kind: OpRemoveMarker, ID: id})
}

// SetMarkerVisibility shows or hides a marker element.
func (s *Surface) SetMarkerVisibility(id string, visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markers[id]
	if !ok {
		return
	}
	m.Visible = visible
	s.journal.Push(Op{Kind: OpSetMarkerVisibility, ID: id})
}

// ShowPopup records a popup.
func (s *Surface) ShowPopup(p surface.Popup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.popups = append(s.popups, p)
	s.journal.Push(Op{Kind: OpShowPopup})
}

// Layer returns a copy of a layer.
func (s *Surface) Layer(id string) (surface.Layer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.layers[id]
	if !ok {
		return surface.Layer{}, false
	}
	return *l, true
}

// LayerIDs returns layer IDs in insertion order.
func (s *Surface) LayerIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.layerOrder...)
}

// Marker returns a placed marker.
func (s *Surface) Marker(id string) (MarkerRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markers[id]
	if !ok {
		return MarkerRecord{}, false
	}
	return *m, true
}

// Markers returns placed markers in insertion order.
func (s *Surface) Markers() []MarkerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]MarkerRecord, 0, len(s.markerOrder))
	for _, id := range s.markerOrder {
		out = append(out, *s.markers[id])
	}
	return out
}

// Popups returns every popup shown so far.
func (s *Surface) Popups() []surface.Popup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]surface.Popup(nil), s.popups...)
}

// Ops returns and clears the operation journal.
func (s *Surface) Ops() []Op {
	return s.journal.Drain()
}

func without(ids []string, id string) []string {
	for i, cur := range ids {
		if cur == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func copyProps(p map[string]any) map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
