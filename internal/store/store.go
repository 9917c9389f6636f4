// Package store holds the committed drawings of one map session together
// with the active draw mode. Every tool controller and control panel of a
// session reads and writes the same Store.
package store

import (
	"sync"

	"github.com/OCAP2/mapdraw/pkg/core"
)

// ChangeKind identifies which part of the store changed.
type ChangeKind int

const (
	MarkerAdded ChangeKind = iota
	LineAdded
	MarkersCleaned
	LinesCleaned
	ModeChanged
)

func (k ChangeKind) String() string {
	switch k {
	case MarkerAdded:
		return "marker_added"
	case LineAdded:
		return "line_added"
	case MarkersCleaned:
		return "markers_cleaned"
	case LinesCleaned:
		return "lines_cleaned"
	case ModeChanged:
		return "mode_changed"
	}
	return "unknown"
}

// Change describes one mutation. Mode is the draw mode after the change and
// Prev the mode before it; both are equal unless Kind is ModeChanged.
// Count is the number of items removed by a clean.
type Change struct {
	Kind   ChangeKind
	Mode   core.DrawMode
	Prev   core.DrawMode
	Marker *core.Marker
	Line   *core.Line
	Count  int
}

// Observer is notified synchronously after each mutation.
type Observer func(Change)

// Store is the shared collection of committed markers and lines plus the
// active draw mode.
type Store struct {
	mu      sync.RWMutex
	markers []core.Marker
	lines   []core.Line
	mode    core.DrawMode

	obsMu     sync.Mutex
	nextObs   int
	observers map[int]Observer
	obsOrder  []int
}

// New creates an empty Store with no active draw mode.
func New() *Store {
	return &Store{
		observers: make(map[int]Observer),
	}
}

// Subscribe registers o and returns a function that removes it.
func (s *Store) Subscribe(o Observer) func() {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = o
	s.obsOrder = append(s.obsOrder, id)
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		if _, ok := s.observers[id]; !ok {
			return
		}
		delete(s.observers, id)
		for i, cur := range s.obsOrder {
			if cur == id {
				s.obsOrder = append(s.obsOrder[:i], s.obsOrder[i+1:]...)
				break
			}
		}
	}
}

func (s *Store) notify(c Change) {
	s.obsMu.Lock()
	obs := make([]Observer, 0, len(s.obsOrder))
	for _, id := range s.obsOrder {
		obs = append(obs, s.observers[id])
	}
	s.obsMu.Unlock()

	for _, o := range obs {
		o(c)
	}
}

// AddMarker appends m to the marker list.
func (s *Store) AddMarker(m core.Marker) {
	s.mu.Lock()
	s.markers = append(s.markers, m)
	mode := s.mode
	s.mu.Unlock()

	s.notify(Change{Kind: MarkerAdded, Mode: mode, Prev: mode, Marker: &m})
}

// AddLine appends l to the line list.
func (s *Store) AddLine(l core.Line) {
	l.Vertices = l.Vertices.Clone()

	s.mu.Lock()
	s.lines = append(s.lines, l)
	mode := s.mode
	s.mu.Unlock()

	s.notify(Change{Kind: LineAdded, Mode: mode, Prev: mode, Line: &l})
}

// CleanMarkers empties the marker list. Marker visuals on the map are the
// caller's responsibility.
func (s *Store) CleanMarkers() {
	s.mu.Lock()
	n := len(s.markers)
	s.markers = nil
	mode := s.mode
	s.mu.Unlock()

	s.notify(Change{Kind: MarkersCleaned, Mode: mode, Prev: mode, Count: n})
}

// CleanLines empties the line list. Line layers on the map are the caller's
// responsibility.
func (s *Store) CleanLines() {
	s.mu.Lock()
	n := len(s.lines)
	s.lines = nil
	mode := s.mode
	s.mu.Unlock()

	s.notify(Change{Kind: LinesCleaned, Mode: mode, Prev: mode, Count: n})
}

// SetDrawMode sets the active tool. Setting the current mode again is not a
// change and notifies nobody.
func (s *Store) SetDrawMode(mode core.DrawMode) {
	s.mu.Lock()
	prev := s.mode
	if prev == mode {
		s.mu.Unlock()
		return
	}
	s.mode = mode
	s.mu.Unlock()

	s.notify(Change{Kind: ModeChanged, Mode: mode, Prev: prev})
}

// DrawMode returns the active tool.
func (s *Store) DrawMode() core.DrawMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Markers returns a copy of the committed markers in commit order.
func (s *Store) Markers() []core.Marker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Marker(nil), s.markers...)
}

// Lines returns a copy of the committed lines in commit order.
func (s *Store) Lines() []core.Line {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Line, len(s.lines))
	for i, l := range s.lines {
		l.Vertices = l.Vertices.Clone()
		out[i] = l
	}
	return out
}

// LineIDs returns the committed line identifiers in commit order.
func (s *Store) LineIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.lines))
	for i, l := range s.lines {
		ids[i] = l.ID
	}
	return ids
}

// MarkerCount returns the number of committed markers.
func (s *Store) MarkerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.markers)
}

// LineCount returns the number of committed lines.
func (s *Store) LineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines)
}
