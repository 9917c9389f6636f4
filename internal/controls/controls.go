// Package controls renders the per-tool button panels and routes button
// presses back to the tools.
package controls

import (
	"errors"
	"fmt"

	"github.com/OCAP2/mapdraw/pkg/streaming"
)

// Button actions.
const (
	ActionToggle = "toggle"
	ActionDelete = "delete"
	ActionHide   = "hide"
)

var (
	// ErrUnknownAction is returned for a button action no panel offers.
	ErrUnknownAction = errors.New("unknown control action")
	// ErrUnknownPanel is returned when no panel has the requested kind.
	ErrUnknownPanel = errors.New("unknown control panel")
)

// Tool is what a panel drives. T is the kind of drawing the tool commits.
type Tool[T any] interface {
	Active() bool
	Hidden() bool
	Items() []T
	Start()
	Stop()
	ToggleHidden()
	DeleteAll()
}

// Panel is the button group of one drawing tool.
type Panel[T any] struct {
	kind string
	tool Tool[T]
}

// NewPanel creates a panel labelled kind (e.g. "marker") driving tool.
func NewPanel[T any](kind string, tool Tool[T]) *Panel[T] {
	return &Panel[T]{kind: kind, tool: tool}
}

// Kind returns the panel's drawing kind.
func (p *Panel[T]) Kind() string {
	return p.kind
}

// View renders the panel. Delete and hide only appear once something has
// been drawn.
func (p *Panel[T]) View() streaming.PanelView {
	active := p.tool.Active()
	state := "off"
	if active {
		state = "on"
	}
	view := streaming.PanelView{
		Kind: p.kind,
		Buttons: []streaming.ButtonView{{
			Action: ActionToggle,
			Label:  fmt.Sprintf("Add %s mode: %s", p.kind, state),
			Active: active,
		}},
	}
	if len(p.tool.Items()) == 0 {
		return view
	}

	verb := "Hide"
	if p.tool.Hidden() {
		verb = "Show"
	}
	view.Buttons = append(view.Buttons,
		streaming.ButtonView{Action: ActionDelete, Label: fmt.Sprintf("Delete %ss", p.kind)},
		streaming.ButtonView{Action: ActionHide, Label: fmt.Sprintf("%s %ss", verb, p.kind)},
	)
	return view
}

// Handle performs a button action.
func (p *Panel[T]) Handle(action string) error {
	switch action {
	case ActionToggle:
		if p.tool.Active() {
			p.tool.Stop()
		} else {
			p.tool.Start()
		}
	case ActionDelete:
		if len(p.tool.Items()) > 0 {
			p.tool.DeleteAll()
		}
	case ActionHide:
		if len(p.tool.Items()) > 0 {
			p.tool.ToggleHidden()
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return nil
}

// Renderer is the type-erased side of a panel.
type Renderer interface {
	Kind() string
	View() streaming.PanelView
	Handle(action string) error
}

// Board is an ordered set of panels.
type Board struct {
	panels []Renderer
}

// NewBoard creates a board showing panels in the given order.
func NewBoard(panels ...Renderer) *Board {
	return &Board{panels: panels}
}

// View renders every panel.
func (b *Board) View() streaming.ControlsView {
	view := streaming.ControlsView{Panels: make([]streaming.PanelView, 0, len(b.panels))}
	for _, p := range b.panels {
		view.Panels = append(view.Panels, p.View())
	}
	return view
}

// Handle routes a button press to the panel of the given kind.
func (b *Board) Handle(kind, action string) error {
	for _, p := range b.panels {
		if p.Kind() == kind {
			return p.Handle(action)
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownPanel, kind)
}
