package core

import "time"

// Polyline is an ordered vertex sequence. Insertion order is draw order.
type Polyline []LngLat

// Last returns the final vertex, if any.
func (p Polyline) Last() (LngLat, bool) {
	if len(p) == 0 {
		return LngLat{}, false
	}
	return p[len(p)-1], true
}

// Clone returns a copy that shares no backing array with p.
func (p Polyline) Clone() Polyline {
	if p == nil {
		return nil
	}
	out := make(Polyline, len(p))
	copy(out, p)
	return out
}

// Line is a committed multi-point drawing. ID doubles as the name of the
// visual layer backing it on the map.
type Line struct {
	ID        string    `json:"id"`
	Vertices  Polyline  `json:"vertices"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"createdAt"`
}
