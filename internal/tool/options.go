// Package tool implements the marker and line drawing controllers. Each
// controller follows the shared store's draw mode: entering its mode
// acquires map event subscriptions, leaving it releases them.
package tool

import (
	"time"

	"github.com/OCAP2/mapdraw/internal/surface"
	"github.com/OCAP2/mapdraw/pkg/core"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CSS class of the temporary markers placed on draft vertices.
const VertexMarkerClass = "draft-vertex"

// Default draft and committed line paints.
var (
	DefaultDraftPaint = surface.Paint{Color: "#FFBF00", Width: 6, Dash: []float64{3, 2}}
	DefaultFinalPaint = surface.Paint{Color: "#808080", Width: 6}
)

// Option configures a tool controller.
type Option func(*config)

type config struct {
	now         func() time.Time
	newID       func() string
	labelPrefix string
	labelLayout string
	draftPaint  surface.Paint
	finalPaint  surface.Paint
	logger      zerolog.Logger
}

func newConfig(opts []Option) config {
	cfg := config{
		now:         time.Now,
		newID:       uuid.NewString,
		labelPrefix: core.DefaultLabelPrefix,
		labelLayout: core.DefaultLabelLayout,
		draftPaint:  DefaultDraftPaint,
		finalPaint:  DefaultFinalPaint,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (c config) label(t time.Time) string {
	return core.Label(c.labelPrefix, c.labelLayout, t)
}

// WithClock overrides the time source used for creation labels.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// WithIDs overrides the identifier generator.
func WithIDs(newID func() string) Option {
	return func(c *config) {
		c.newID = newID
	}
}

// WithLabel sets the creation label prefix and time layout.
func WithLabel(prefix, layout string) Option {
	return func(c *config) {
		c.labelPrefix = prefix
		c.labelLayout = layout
	}
}

// WithPaints sets the draft and final line paints.
func WithPaints(draft, final surface.Paint) Option {
	return func(c *config) {
		c.draftPaint = draft
		c.finalPaint = final
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}
