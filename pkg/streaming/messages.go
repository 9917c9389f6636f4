// Package streaming defines the JSON envelopes exchanged between the server
// and the browser map client.
package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/OCAP2/mapdraw/pkg/core"
)

// Server -> browser message types.
const (
	TypeHello               = "hello"
	TypeAddLayer            = "add_layer"
	TypeRemoveLayer         = "remove_layer"
	TypeSetPaint            = "set_paint"
	TypeSetVisibility       = "set_visibility"
	TypeAddMarker           = "add_marker"
	TypeRemoveMarker        = "remove_marker"
	TypeSetMarkerVisibility = "set_marker_visibility"
	TypeShowPopup           = "show_popup"
	TypeControls            = "controls"
	TypeError               = "error"
)

// Browser -> server message types.
const (
	TypeReady    = "ready"
	TypeClick    = "click"
	TypeDblClick = "dblclick"
	TypeControl  = "control"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals payload into an envelope of type typ. A nil payload
// yields an envelope without one.
func NewEnvelope(typ string, payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{Type: typ}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return Envelope{Type: typ, Payload: raw}, nil
}

// Decode unmarshals the envelope payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%s: decode payload: %w", e.Type, err)
	}
	return nil
}

// HelloPayload carries the map options the client needs to boot.
type HelloPayload struct {
	SessionID string      `json:"sessionId"`
	StyleURL  string      `json:"styleUrl"`
	Center    core.LngLat `json:"center"`
	Zoom      float64     `json:"zoom"`
}

// PaintPayload is a line paint.
type PaintPayload struct {
	Color string    `json:"color"`
	Width float64   `json:"width"`
	Dash  []float64 `json:"dash,omitempty"`
}

// LayoutPayload is a line layout.
type LayoutPayload struct {
	Join    string `json:"join,omitempty"`
	Cap     string `json:"cap,omitempty"`
	Visible bool   `json:"visible"`
}

// AddLayerPayload adds a GeoJSON-sourced layer.
type AddLayerPayload struct {
	ID         string          `json:"id"`
	Geometry   json.RawMessage `json:"geometry"`
	Paint      PaintPayload    `json:"paint"`
	Layout     LayoutPayload   `json:"layout"`
	Properties map[string]any  `json:"properties,omitempty"`
}

// RemoveLayerPayload removes a layer and its source.
type RemoveLayerPayload struct {
	ID string `json:"id"`
}

// SetPaintPayload restyles a layer.
type SetPaintPayload struct {
	ID    string       `json:"id"`
	Paint PaintPayload `json:"paint"`
}

// SetVisibilityPayload shows or hides a layer or a marker.
type SetVisibilityPayload struct {
	ID      string `json:"id"`
	Visible bool   `json:"visible"`
}

// AddMarkerPayload places a marker element.
type AddMarkerPayload struct {
	ID        string      `json:"id"`
	LngLat    core.LngLat `json:"lngLat"`
	Popup     string      `json:"popup,omitempty"`
	ClassName string      `json:"className,omitempty"`
}

// RemoveMarkerPayload removes a marker element.
type RemoveMarkerPayload struct {
	ID string `json:"id"`
}

// PopupPayload opens a popup.
type PopupPayload struct {
	LngLat core.LngLat `json:"lngLat"`
	HTML   string      `json:"html"`
}

// ClickPayload is a pointer event reported by the browser. Layer and
// Properties are set when the pointer hit a drawing layer.
type ClickPayload struct {
	LngLat     core.LngLat    `json:"lngLat"`
	Layer      string         `json:"layer,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// ControlPayload is a button press on a control panel.
type ControlPayload struct {
	Kind   string `json:"kind"`
	Action string `json:"action"`
}

// ErrorPayload reports a rejected message back to the browser.
type ErrorPayload struct {
	For     string `json:"for"`
	Message string `json:"message"`
}

// ButtonView is one rendered control button.
type ButtonView struct {
	Action string `json:"action"`
	Label  string `json:"label"`
	Active bool   `json:"active,omitempty"`
}

// PanelView is the rendered control panel of one tool.
type PanelView struct {
	Kind    string       `json:"kind"`
	Buttons []ButtonView `json:"buttons"`
}

// ControlsView is every panel, in display order.
type ControlsView struct {
	Panels []PanelView `json:"panels"`
}
