package tool

import (
	"fmt"
	"time"

	"github.com/OCAP2/mapdraw/internal/geo"
	"github.com/OCAP2/mapdraw/internal/store"
	"github.com/OCAP2/mapdraw/internal/surface"
	"github.com/OCAP2/mapdraw/pkg/core"
)

// drawSession is the line tool's state while a draft is being built.
type drawSession struct {
	draftID   string
	vertices  core.Polyline
	markerIDs []string
	label     string
	createdAt time.Time
	release   []func()
}

// LineTool builds a polyline from successive clicks and commits it on a
// double-click or when line mode is left.
type LineTool struct {
	cfg     config
	store   *store.Store
	surface surface.Surface

	draft   *drawSession
	popups  map[string]func()
	hidden  bool
	unwatch func()
}

// NewLineTool creates a line tool bound to s. The tool stays inert until a
// surface is attached.
func NewLineTool(s *store.Store, opts ...Option) *LineTool {
	t := &LineTool{
		cfg:    newConfig(opts),
		store:  s,
		popups: make(map[string]func()),
	}
	t.unwatch = s.Subscribe(t.onChange)
	return t
}

// Attach binds the map surface and opens a draft if line mode is active.
func (t *LineTool) Attach(surf surface.Surface) {
	t.surface = surf
	t.sync()
}

func (t *LineTool) onChange(c store.Change) {
	if c.Kind == store.ModeChanged {
		t.sync()
	}
}

func (t *LineTool) sync() {
	active := t.store.DrawMode() == core.ModeLine
	switch {
	case active && t.draft == nil:
		t.enter()
	case !active && t.draft != nil:
		t.leave()
	}
}

func (t *LineTool) enter() {
	if t.surface == nil {
		return
	}
	t.draft = &drawSession{draftID: t.cfg.newID()}
	t.draft.release = []func(){
		t.surface.On(surface.EventClick, "", t.addVertex),
		t.surface.Once(surface.EventDoubleClick, t.finish),
	}
	t.cfg.logger.Debug().Str("draft", t.draft.draftID).Msg("Line draft opened")
}

func (t *LineTool) addVertex(e surface.Event) {
	if t.draft == nil {
		return
	}
	t.appendVertex(e.LngLat)
}

func (t *LineTool) appendVertex(p core.LngLat) {
	d := t.draft
	if len(d.vertices) == 0 {
		d.createdAt = t.cfg.now()
		d.label = t.cfg.label(d.createdAt)
	}
	d.vertices = append(d.vertices, p)

	id := fmt.Sprintf("%s-v%d", d.draftID, len(d.vertices)-1)
	d.markerIDs = append(d.markerIDs, id)
	t.surface.AddMarker(surface.Marker{ID: id, LngLat: p, ClassName: VertexMarkerClass})

	t.render()
}

// render replaces the draft layer with one built from the current vertices.
func (t *LineTool) render() {
	d := t.draft
	if t.surface.HasLayer(d.draftID) {
		t.surface.RemoveLayer(d.draftID)
	}
	t.surface.AddLayer(surface.Layer{
		ID:       d.draftID,
		Geometry: surface.LineGeometry(d.vertices),
		Paint:    t.cfg.draftPaint,
		Layout:   surface.Layout{Join: "round", Cap: "round", Visible: true},
		Properties: map[string]any{
			"description": d.label,
		},
	})
}

// finish handles the double-click that closes a draft. Its coordinate is
// kept only when it extends a non-empty draft.
func (t *LineTool) finish(e surface.Event) {
	if t.draft == nil {
		return
	}
	if last, ok := t.draft.vertices.Last(); ok && last != e.LngLat {
		t.appendVertex(e.LngLat)
	}
	t.store.SetDrawMode(core.ModeNone)
	if t.draft != nil {
		t.leave()
	}
}

// leave releases the draft's subscriptions and commits whatever was drawn.
func (t *LineTool) leave() {
	d := t.draft
	t.draft = nil
	for _, release := range d.release {
		release()
	}
	if len(d.vertices) == 0 {
		t.cfg.logger.Debug().Str("draft", d.draftID).Msg("Empty line draft discarded")
		return
	}

	line := core.Line{
		ID:        d.draftID,
		Vertices:  d.vertices.Clone(),
		Label:     d.label,
		CreatedAt: d.createdAt,
	}
	t.store.AddLine(line)
	t.popups[line.ID] = t.surface.On(surface.EventClick, line.ID, t.showPopup(line))
	t.surface.SetPaint(line.ID, t.cfg.finalPaint)
	for _, id := range d.markerIDs {
		t.surface.RemoveMarker(id)
	}
	t.cfg.logger.Debug().Str("line", line.ID).Int("vertices", len(line.Vertices)).Msg("Line committed")
}

func (t *LineTool) showPopup(line core.Line) surface.Handler {
	return func(e surface.Event) {
		text := line.Label
		if desc, ok := e.Properties["description"].(string); ok && desc != "" {
			text = desc
		}
		// Measure against the line's own world copy, then move the anchor
		// back to the copy that was clicked.
		p := e.LngLat
		if len(line.Vertices) > 0 {
			p.Lng = geo.UnwrapLongitude(p.Lng, line.Vertices[0].Lng)
		}
		anchor := geo.ClosestPoint(line.Vertices, p)
		anchor.Lng = geo.UnwrapLongitude(anchor.Lng, e.LngLat.Lng)
		t.surface.ShowPopup(surface.Popup{LngLat: anchor, HTML: text})
	}
}

// Start activates line mode, deactivating any other tool.
func (t *LineTool) Start() {
	t.store.SetDrawMode(core.ModeLine)
}

// Stop leaves line mode if it is active, committing the draft.
func (t *LineTool) Stop() {
	if t.store.DrawMode() == core.ModeLine {
		t.store.SetDrawMode(core.ModeNone)
	}
}

// Active reports whether line mode is the current draw mode.
func (t *LineTool) Active() bool {
	return t.store.DrawMode() == core.ModeLine
}

// Drawing reports whether a draft is open.
func (t *LineTool) Drawing() bool {
	return t.draft != nil
}

// DraftID returns the open draft's identifier, or "" when idle.
func (t *LineTool) DraftID() string {
	if t.draft == nil {
		return ""
	}
	return t.draft.draftID
}

// Vertices returns a copy of the open draft's vertices.
func (t *LineTool) Vertices() core.Polyline {
	if t.draft == nil {
		return nil
	}
	return t.draft.vertices.Clone()
}

// Hidden reports whether committed lines are currently hidden.
func (t *LineTool) Hidden() bool {
	return t.hidden
}

// Items returns the committed lines.
func (t *LineTool) Items() []core.Line {
	return t.store.Lines()
}

// ToggleHidden hides every committed line, or shows them if hidden.
func (t *LineTool) ToggleHidden() {
	if t.surface == nil {
		return
	}
	for _, id := range t.store.LineIDs() {
		t.surface.SetVisibility(id, t.hidden)
	}
	t.hidden = !t.hidden
}

// DeleteAll removes every committed line from the map and the store. An
// open draft is left alone.
func (t *LineTool) DeleteAll() {
	ids := t.store.LineIDs()
	for _, id := range ids {
		if release, ok := t.popups[id]; ok {
			release()
			delete(t.popups, id)
		}
		if t.surface != nil && t.surface.HasLayer(id) {
			t.surface.RemoveLayer(id)
		}
	}
	t.store.CleanLines()
	t.hidden = false
	t.cfg.logger.Debug().Int("count", len(ids)).Msg("Lines deleted")
}

// Close commits an open draft and releases every subscription held by the
// tool.
func (t *LineTool) Close() {
	if t.draft != nil {
		t.leave()
	}
	for id, release := range t.popups {
		release()
		delete(t.popups, id)
	}
	if t.unwatch != nil {
		t.unwatch()
		t.unwatch = nil
	}
}
