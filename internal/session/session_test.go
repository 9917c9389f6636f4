package session

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/OCAP2/mapdraw/internal/controls"
	"github.com/OCAP2/mapdraw/internal/dispatcher"
	"github.com/OCAP2/mapdraw/internal/geo"
	"github.com/OCAP2/mapdraw/pkg/core"
	"github.com/OCAP2/mapdraw/pkg/streaming"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []streaming.Envelope
}

func (r *recordingSender) Send(env streaming.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, env)
	return nil
}

func (r *recordingSender) drain() []streaming.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sent
	r.sent = nil
	return out
}

func ofType(envs []streaming.Envelope, typ string) []streaming.Envelope {
	var out []streaming.Envelope
	for _, env := range envs {
		if env.Type == typ {
			out = append(out, env)
		}
	}
	return out
}

func lastControls(t *testing.T, envs []streaming.Envelope) streaming.ControlsView {
	t.Helper()
	ctl := ofType(envs, streaming.TypeControls)
	require.NotEmpty(t, ctl, "expected a controls render")
	var view streaming.ControlsView
	require.NoError(t, ctl[len(ctl)-1].Decode(&view))
	return view
}

func envelope(t *testing.T, typ string, payload any) streaming.Envelope {
	t.Helper()
	env, err := streaming.NewEnvelope(typ, payload)
	require.NoError(t, err)
	return env
}

func click(lng, lat float64) streaming.ClickPayload {
	return streaming.ClickPayload{LngLat: core.LngLat{Lng: lng, Lat: lat}}
}

func newTestSession(t *testing.T, opts Options) (*Session, *recordingSender) {
	t.Helper()
	rec := &recordingSender{}
	opts.Logger = zerolog.Nop()
	s, err := New("s1", rec, opts)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, rec
}

func readySession(t *testing.T) (*Session, *recordingSender) {
	t.Helper()
	s, rec := newTestSession(t, Options{})
	require.NoError(t, s.Handle(streaming.Envelope{Type: streaming.TypeReady}))
	rec.drain()
	return s, rec
}

func TestHello(t *testing.T) {
	s, rec := newTestSession(t, Options{Map: MapOptions{
		StyleURL: "https://tiles.example.org/style.json",
		Center:   core.LngLat{Lng: 13.4, Lat: 52.5},
		Zoom:     9,
	}})

	require.NoError(t, s.Hello())

	sent := rec.drain()
	require.Len(t, sent, 1)
	var hello streaming.HelloPayload
	require.NoError(t, sent[0].Decode(&hello))
	assert.Equal(t, "s1", hello.SessionID)
	assert.Equal(t, "https://tiles.example.org/style.json", hello.StyleURL)
	assert.Equal(t, 9.0, hello.Zoom)
}

func TestReadyRendersControls(t *testing.T) {
	s, rec := newTestSession(t, Options{})

	require.NoError(t, s.Handle(streaming.Envelope{Type: streaming.TypeReady}))

	view := lastControls(t, rec.drain())
	require.Len(t, view.Panels, 2)
	assert.Equal(t, "marker", view.Panels[0].Kind)
	assert.Equal(t, "Add marker mode: off", view.Panels[0].Buttons[0].Label)
	assert.Equal(t, "line", view.Panels[1].Kind)
}

func TestClickBeforeReady(t *testing.T) {
	s, rec := newTestSession(t, Options{})

	err := s.Handle(envelope(t, streaming.TypeClick, click(1, 1)))

	assert.ErrorIs(t, err, ErrNotReady)
	errs := ofType(rec.drain(), streaming.TypeError)
	require.Len(t, errs, 1)
	var p streaming.ErrorPayload
	require.NoError(t, errs[0].Decode(&p))
	assert.Equal(t, streaming.TypeClick, p.For)
}

func TestMarkerFlow(t *testing.T) {
	s, rec := readySession(t)

	require.NoError(t, s.Handle(envelope(t, streaming.TypeControl, streaming.ControlPayload{Kind: "marker", Action: controls.ActionToggle})))
	sent := rec.drain()
	assert.Len(t, ofType(sent, streaming.TypeControls), 1, "a button press renders once")
	assert.True(t, lastControls(t, sent).Panels[0].Buttons[0].Active)

	require.NoError(t, s.Handle(envelope(t, streaming.TypeClick, click(10, 20))))
	sent = rec.drain()

	markers := ofType(sent, streaming.TypeAddMarker)
	require.Len(t, markers, 1)
	var m streaming.AddMarkerPayload
	require.NoError(t, markers[0].Decode(&m))
	assert.Equal(t, core.LngLat{Lng: 10, Lat: 20}, m.LngLat)
	assert.Contains(t, m.Popup, "Created: ")

	view := lastControls(t, sent)
	assert.Equal(t, "Add marker mode: off", view.Panels[0].Buttons[0].Label)
	assert.Len(t, view.Panels[0].Buttons, 3)
	assert.Equal(t, core.ModeNone, s.Store().DrawMode())
	assert.Equal(t, 1, s.Store().MarkerCount())
}

func TestLineFlow(t *testing.T) {
	s, rec := readySession(t)

	require.NoError(t, s.Handle(envelope(t, streaming.TypeControl, streaming.ControlPayload{Kind: "line", Action: controls.ActionToggle})))
	require.NoError(t, s.Handle(envelope(t, streaming.TypeClick, click(0, 0))))
	require.NoError(t, s.Handle(envelope(t, streaming.TypeClick, click(1, 1))))
	require.NoError(t, s.Handle(envelope(t, streaming.TypeDblClick, click(2, 1))))

	sent := rec.drain()
	assert.Len(t, ofType(sent, streaming.TypeAddLayer), 3)
	assert.Len(t, ofType(sent, streaming.TypeRemoveLayer), 2)
	assert.Len(t, ofType(sent, streaming.TypeAddMarker), 3)
	assert.Len(t, ofType(sent, streaming.TypeRemoveMarker), 3)

	paints := ofType(sent, streaming.TypeSetPaint)
	require.Len(t, paints, 1)
	var p streaming.SetPaintPayload
	require.NoError(t, paints[0].Decode(&p))
	assert.Equal(t, "#808080", p.Paint.Color)

	lines := s.Store().Lines()
	require.Len(t, lines, 1)
	assert.Len(t, lines[0].Vertices, 3)

	// Clicking the committed line opens its popup.
	require.NoError(t, s.Handle(envelope(t, streaming.TypeClick, streaming.ClickPayload{
		LngLat:     core.LngLat{Lng: 0.5, Lat: 0.5},
		Layer:      lines[0].ID,
		Properties: map[string]any{"description": lines[0].Label},
	})))
	popups := ofType(rec.drain(), streaming.TypeShowPopup)
	require.Len(t, popups, 1)
	var popup streaming.PopupPayload
	require.NoError(t, popups[0].Decode(&popup))
	assert.Equal(t, lines[0].Label, popup.HTML)
}

func TestHideAndDeleteControls(t *testing.T) {
	s, rec := readySession(t)
	require.NoError(t, s.Handle(envelope(t, streaming.TypeControl, streaming.ControlPayload{Kind: "marker", Action: controls.ActionToggle})))
	require.NoError(t, s.Handle(envelope(t, streaming.TypeClick, click(1, 1))))
	rec.drain()

	require.NoError(t, s.Handle(envelope(t, streaming.TypeControl, streaming.ControlPayload{Kind: "marker", Action: controls.ActionHide})))
	sent := rec.drain()
	assert.Len(t, ofType(sent, streaming.TypeSetMarkerVisibility), 1)
	assert.Equal(t, "Show markers", lastControls(t, sent).Panels[0].Buttons[2].Label)

	require.NoError(t, s.Handle(envelope(t, streaming.TypeControl, streaming.ControlPayload{Kind: "marker", Action: controls.ActionDelete})))
	sent = rec.drain()
	assert.Len(t, ofType(sent, streaming.TypeRemoveMarker), 1)
	assert.Len(t, lastControls(t, sent).Panels[0].Buttons, 1)
	assert.Zero(t, s.Store().MarkerCount())
}

func TestRejectedMessages(t *testing.T) {
	s, _ := readySession(t)

	assert.ErrorIs(t, s.Handle(streaming.Envelope{Type: "teleport"}), dispatcher.ErrUnknownCommand)
	assert.ErrorIs(t,
		s.Handle(envelope(t, streaming.TypeControl, streaming.ControlPayload{Kind: "marker", Action: "explode"})),
		controls.ErrUnknownAction)
	assert.Error(t, s.Handle(streaming.Envelope{Type: streaming.TypeClick, Payload: json.RawMessage(`"x"`)}))
	assert.Error(t, s.Handle(streaming.Envelope{Type: streaming.TypeControl}))
}

func TestInvalidPointerPayloads(t *testing.T) {
	s, rec := readySession(t)
	require.NoError(t, s.Handle(envelope(t, streaming.TypeControl, streaming.ControlPayload{Kind: "line", Action: controls.ActionToggle})))
	require.NoError(t, s.Handle(envelope(t, streaming.TypeClick, click(10, 20))))
	require.NoError(t, s.Handle(envelope(t, streaming.TypeDblClick, click(11, 21))))
	lines := s.Store().Lines()
	require.Len(t, lines, 1)
	lineID := lines[0].ID
	rec.drain()

	tests := []struct {
		name    string
		typ     string
		payload string
		invalid bool
	}{
		{"far longitude on line layer", streaming.TypeClick, `{"lngLat":{"lng":1e300,"lat":20},"layer":"` + lineID + `"}`, true},
		{"large longitude", streaming.TypeClick, `{"lngLat":{"lng":1e12,"lat":20},"layer":"` + lineID + `"}`, true},
		{"latitude past pole", streaming.TypeClick, `{"lngLat":{"lng":10,"lat":95}}`, true},
		{"double-click far longitude", streaming.TypeDblClick, `{"lngLat":{"lng":-1e300,"lat":0}}`, true},
		{"overflowing number", streaming.TypeClick, `{"lngLat":{"lng":1e400,"lat":0}}`, false},
		{"coordinates as string", streaming.TypeClick, `{"lngLat":"10,20"}`, false},
		{"truncated", streaming.TypeClick, `{"lngLat":{"lng":`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errCh := make(chan error, 1)
			go func() {
				errCh <- s.Handle(streaming.Envelope{Type: tt.typ, Payload: json.RawMessage(tt.payload)})
			}()

			var err error
			select {
			case err = <-errCh:
			case <-time.After(2 * time.Second):
				t.Fatal("Handle did not return")
			}

			require.Error(t, err)
			if tt.invalid {
				assert.ErrorIs(t, err, geo.ErrInvalidCoordinates)
			}

			sent := rec.drain()
			assert.Empty(t, ofType(sent, streaming.TypeShowPopup))
			errs := ofType(sent, streaming.TypeError)
			require.Len(t, errs, 1)
			var p streaming.ErrorPayload
			require.NoError(t, errs[0].Decode(&p))
			assert.Equal(t, tt.typ, p.For)
		})
	}

	// the session keeps working afterwards
	require.NoError(t, s.Handle(envelope(t, streaming.TypeClick, streaming.ClickPayload{
		LngLat: core.LngLat{Lng: 10.5, Lat: 20.5},
		Layer:  lineID,
	})))
	assert.Len(t, ofType(rec.drain(), streaming.TypeShowPopup), 1)
}

func TestFeatures(t *testing.T) {
	s, _ := readySession(t)
	require.NoError(t, s.Handle(envelope(t, streaming.TypeControl, streaming.ControlPayload{Kind: "marker", Action: controls.ActionToggle})))
	require.NoError(t, s.Handle(envelope(t, streaming.TypeClick, click(5, 6))))

	raw, err := s.Features()
	require.NoError(t, err)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(raw, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "Point", fc.Features[0].Geometry.Type)
}

type pointRecorder struct {
	points []*influxdb2_write.Point
}

func (r *pointRecorder) WritePoint(p *influxdb2_write.Point) error {
	r.points = append(r.points, p)
	return nil
}

func TestCloseCommitsDraftAndRecordsUsage(t *testing.T) {
	usage := &pointRecorder{}
	rec := &recordingSender{}
	s, err := New("s2", rec, Options{Logger: zerolog.Nop(), Usage: usage})
	require.NoError(t, err)

	require.NoError(t, s.Handle(streaming.Envelope{Type: streaming.TypeReady}))
	require.NoError(t, s.Handle(envelope(t, streaming.TypeControl, streaming.ControlPayload{Kind: "line", Action: controls.ActionToggle})))
	require.NoError(t, s.Handle(envelope(t, streaming.TypeClick, click(0, 0))))
	require.NoError(t, s.Handle(envelope(t, streaming.TypeClick, click(3, 3))))

	s.Close()

	assert.Equal(t, 1, s.Store().LineCount())
	names := make([]string, 0, len(usage.points))
	for _, p := range usage.points {
		names = append(names, p.Name())
	}
	assert.Contains(t, names, "drawing_committed")
	assert.Contains(t, names, "draw_mode")
}
