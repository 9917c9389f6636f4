package tool

import (
	"github.com/OCAP2/mapdraw/internal/store"
	"github.com/OCAP2/mapdraw/internal/surface"
	"github.com/OCAP2/mapdraw/pkg/core"
)

// armedSession is the marker tool's state while waiting for its click.
type armedSession struct {
	release func()
}

// MarkerTool places one marker per activation.
type MarkerTool struct {
	cfg     config
	store   *store.Store
	surface surface.Surface

	armed   *armedSession
	hidden  bool
	unwatch func()
}

// NewMarkerTool creates a marker tool bound to s. The tool stays inert until
// a surface is attached.
func NewMarkerTool(s *store.Store, opts ...Option) *MarkerTool {
	t := &MarkerTool{
		cfg:   newConfig(opts),
		store: s,
	}
	t.unwatch = s.Subscribe(t.onChange)
	return t
}

// Attach binds the map surface and arms the tool if marker mode is active.
func (t *MarkerTool) Attach(surf surface.Surface) {
	t.surface = surf
	t.sync()
}

func (t *MarkerTool) onChange(c store.Change) {
	if c.Kind == store.ModeChanged {
		t.sync()
	}
}

func (t *MarkerTool) sync() {
	active := t.store.DrawMode() == core.ModeMarker
	switch {
	case active && t.armed == nil:
		t.arm()
	case !active && t.armed != nil:
		t.disarm()
	}
}

func (t *MarkerTool) arm() {
	if t.surface == nil {
		return
	}
	t.armed = &armedSession{
		release: t.surface.On(surface.EventClick, "", t.place),
	}
	t.cfg.logger.Debug().Msg("Marker tool armed")
}

func (t *MarkerTool) disarm() {
	a := t.armed
	t.armed = nil
	a.release()
	t.cfg.logger.Debug().Msg("Marker tool disarmed")
}

func (t *MarkerTool) place(e surface.Event) {
	if t.armed == nil {
		return
	}
	t.disarm()

	now := t.cfg.now()
	m := core.Marker{
		ID:        t.cfg.newID(),
		Position:  e.LngLat,
		Label:     t.cfg.label(now),
		CreatedAt: now,
	}
	t.surface.AddMarker(surface.Marker{
		ID:     m.ID,
		LngLat: m.Position,
		Popup:  m.Label,
	})
	t.store.AddMarker(m)
	t.cfg.logger.Debug().Str("marker", m.ID).Stringer("position", m.Position).Msg("Marker placed")

	t.store.SetDrawMode(core.ModeNone)
}

// Start activates marker mode, deactivating any other tool.
func (t *MarkerTool) Start() {
	t.store.SetDrawMode(core.ModeMarker)
}

// Stop deactivates marker mode if it is active.
func (t *MarkerTool) Stop() {
	if t.store.DrawMode() == core.ModeMarker {
		t.store.SetDrawMode(core.ModeNone)
	}
}

// Active reports whether marker mode is the current draw mode.
func (t *MarkerTool) Active() bool {
	return t.store.DrawMode() == core.ModeMarker
}

// Armed reports whether the tool is currently listening for its click.
func (t *MarkerTool) Armed() bool {
	return t.armed != nil
}

// Hidden reports whether committed markers are currently hidden.
func (t *MarkerTool) Hidden() bool {
	return t.hidden
}

// Items returns the committed markers.
func (t *MarkerTool) Items() []core.Marker {
	return t.store.Markers()
}

// ToggleHidden hides every committed marker, or shows them if hidden.
func (t *MarkerTool) ToggleHidden() {
	if t.surface == nil {
		return
	}
	for _, m := range t.store.Markers() {
		t.surface.SetMarkerVisibility(m.ID, t.hidden)
	}
	t.hidden = !t.hidden
}

// DeleteAll removes every committed marker from the map and the store.
func (t *MarkerTool) DeleteAll() {
	markers := t.store.Markers()
	if t.surface != nil {
		for _, m := range markers {
			t.surface.RemoveMarker(m.ID)
		}
	}
	t.store.CleanMarkers()
	t.hidden = false
	t.cfg.logger.Debug().Int("count", len(markers)).Msg("Markers deleted")
}

// Close releases every subscription held by the tool.
func (t *MarkerTool) Close() {
	if t.armed != nil {
		t.disarm()
	}
	if t.unwatch != nil {
		t.unwatch()
		t.unwatch = nil
	}
}
