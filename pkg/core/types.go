package core

import (
	"fmt"
	"time"
)

// LngLat is a raw WGS84 longitude/latitude pair.
type LngLat struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// String formats the pair as "lng,lat".
func (p LngLat) String() string {
	return fmt.Sprintf("%g,%g", p.Lng, p.Lat)
}

// DrawMode is the currently active drawing tool. The zero value means no
// tool is active.
type DrawMode string

const (
	ModeNone   DrawMode = ""
	ModeMarker DrawMode = "marker"
	ModeLine   DrawMode = "line"
)

// Valid reports whether m is one of the known modes.
func (m DrawMode) Valid() bool {
	switch m {
	case ModeNone, ModeMarker, ModeLine:
		return true
	}
	return false
}

func (m DrawMode) String() string {
	if m == ModeNone {
		return "none"
	}
	return string(m)
}

// Default label settings: day.month.year.
const (
	DefaultLabelPrefix = "Created: "
	DefaultLabelLayout = "02.01.2006"
)

// Label builds the human readable creation label attached to drawings.
func Label(prefix, layout string, t time.Time) string {
	if layout == "" {
		layout = DefaultLabelLayout
	}
	return prefix + t.Format(layout)
}
