// Package session wires one browser connection to its own store, drawing
// tools and control panels. All handlers run on the connection's read
// goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OCAP2/mapdraw/internal/controls"
	"github.com/OCAP2/mapdraw/internal/dispatcher"
	"github.com/OCAP2/mapdraw/internal/geo"
	"github.com/OCAP2/mapdraw/internal/influx"
	"github.com/OCAP2/mapdraw/internal/logging"
	"github.com/OCAP2/mapdraw/internal/store"
	"github.com/OCAP2/mapdraw/internal/surface/websocket"
	"github.com/OCAP2/mapdraw/internal/tool"
	"github.com/OCAP2/mapdraw/pkg/core"
	"github.com/OCAP2/mapdraw/pkg/streaming"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/mapdraw/internal/session"

// ErrNotReady is returned for pointer events received before the browser
// reported that its map has loaded.
var ErrNotReady = errors.New("map not ready")

// MapOptions is what the browser needs to boot its map.
type MapOptions struct {
	StyleURL string
	Center   core.LngLat
	Zoom     float64
}

// Options configures a Session.
type Options struct {
	Map    MapOptions
	Tools  []tool.Option
	Logger zerolog.Logger
	// Usage receives usage points when set.
	Usage influx.PointWriter
}

// Session is one browser's drawing state.
type Session struct {
	id      string
	sender  websocket.Sender
	logger  zerolog.Logger
	mapOpts MapOptions

	store      *store.Store
	surface    *websocket.Surface
	markers    *tool.MarkerTool
	lines      *tool.LineTool
	board      *controls.Board
	dispatcher *dispatcher.Dispatcher

	committed metric.Int64Counter

	ready       bool
	batching    bool
	unsubscribe []func()
}

// New creates a session sending to sender.
func New(id string, sender websocket.Sender, opts Options) (*Session, error) {
	logger := opts.Logger.With().Str("session", id).Logger()

	d, err := dispatcher.New(logging.NewDispatcherLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}

	committed, err := otel.Meter(instrumentationName).Int64Counter(
		"mapdraw.drawings.committed",
		metric.WithDescription("Total drawings committed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating committed counter: %w", err)
	}

	toolOpts := append([]tool.Option{tool.WithLogger(logger)}, opts.Tools...)
	st := store.New()
	s := &Session{
		id:         id,
		sender:     sender,
		logger:     logger,
		mapOpts:    opts.Map,
		store:      st,
		surface:    websocket.NewSurface(sender, logger),
		markers:    tool.NewMarkerTool(st, toolOpts...),
		lines:      tool.NewLineTool(st, toolOpts...),
		dispatcher: d,
		committed:  committed,
	}
	s.board = controls.NewBoard(
		controls.NewPanel[core.Marker](geo.KindMarker, s.markers),
		controls.NewPanel[core.Line](geo.KindLine, s.lines),
	)

	s.unsubscribe = append(s.unsubscribe, st.Subscribe(s.onChange))
	if opts.Usage != nil {
		s.unsubscribe = append(s.unsubscribe, st.Subscribe(influx.UsageObserver(opts.Usage, id, logger)))
	}

	d.Register(streaming.TypeReady, s.handleReady, dispatcher.Logged())
	d.Register(streaming.TypeClick, s.handleClick, dispatcher.Logged())
	d.Register(streaming.TypeDblClick, s.handleDoubleClick, dispatcher.Logged())
	d.Register(streaming.TypeControl, s.handleControl, dispatcher.Logged())

	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Store returns the session's store. It is safe to read from any goroutine.
func (s *Session) Store() *store.Store {
	return s.store
}

// Hello greets the browser with its map options.
func (s *Session) Hello() error {
	return s.send(streaming.TypeHello, streaming.HelloPayload{
		SessionID: s.id,
		StyleURL:  s.mapOpts.StyleURL,
		Center:    s.mapOpts.Center,
		Zoom:      s.mapOpts.Zoom,
	})
}

// Handle processes one envelope from the browser. Rejected envelopes are
// reported back to the browser and returned.
func (s *Session) Handle(env streaming.Envelope) error {
	err := s.dispatcher.Dispatch(dispatcher.Event{
		Command:   env.Type,
		Payload:   env.Payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("type", env.Type).Msg("Rejected browser message")
		if sendErr := s.send(streaming.TypeError, streaming.ErrorPayload{For: env.Type, Message: err.Error()}); sendErr != nil {
			s.logger.Debug().Err(sendErr).Msg("Failed to report error to browser")
		}
	}
	return err
}

// Features returns the committed drawings as GeoJSON.
func (s *Session) Features() ([]byte, error) {
	return geo.MarshalFeatureCollection(s.store.Markers(), s.store.Lines())
}

// Close tears the session down. An open line draft is committed first.
func (s *Session) Close() {
	s.markers.Close()
	s.lines.Close()
	for _, unsubscribe := range s.unsubscribe {
		unsubscribe()
	}
	s.unsubscribe = nil
	s.surface.Reset()
	s.logger.Debug().Int("markers", s.store.MarkerCount()).Int("lines", s.store.LineCount()).Msg("Session closed")
}

func (s *Session) handleReady(dispatcher.Event) error {
	if !s.ready {
		s.ready = true
		s.markers.Attach(s.surface)
		s.lines.Attach(s.surface)
	}
	s.renderControls()
	return nil
}

func (s *Session) handleClick(e dispatcher.Event) error {
	p, err := s.pointer(e)
	if err != nil {
		return err
	}
	s.surface.HandleClick(p)
	return nil
}

func (s *Session) handleDoubleClick(e dispatcher.Event) error {
	p, err := s.pointer(e)
	if err != nil {
		return err
	}
	s.surface.HandleDoubleClick(p)
	return nil
}

func (s *Session) pointer(e dispatcher.Event) (streaming.ClickPayload, error) {
	var p streaming.ClickPayload
	if !s.ready {
		return p, ErrNotReady
	}
	if err := (streaming.Envelope{Type: e.Command, Payload: e.Payload}).Decode(&p); err != nil {
		return p, err
	}
	if err := geo.ValidateLngLat(p.LngLat); err != nil {
		return p, fmt.Errorf("%s %v: %w", e.Command, p.LngLat, err)
	}
	return p, nil
}

func (s *Session) handleControl(e dispatcher.Event) error {
	var p streaming.ControlPayload
	if err := (streaming.Envelope{Type: e.Command, Payload: e.Payload}).Decode(&p); err != nil {
		return err
	}

	s.batching = true
	err := s.board.Handle(p.Kind, p.Action)
	s.batching = false

	// Hidden flags live in the tools, so a press always re-renders.
	s.renderControls()
	return err
}

func (s *Session) onChange(c store.Change) {
	switch c.Kind {
	case store.MarkerAdded:
		s.committed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", geo.KindMarker)))
	case store.LineAdded:
		s.committed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", geo.KindLine)))
	}

	if s.batching {
		return
	}
	s.renderControls()
}

func (s *Session) renderControls() {
	if err := s.send(streaming.TypeControls, s.board.View()); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to send controls")
	}
}

func (s *Session) send(typ string, payload any) error {
	env, err := streaming.NewEnvelope(typ, payload)
	if err != nil {
		return err
	}
	return s.sender.Send(env)
}
