package core

import "time"

// Marker is a committed point drawing.
type Marker struct {
	ID        string    `json:"id"`
	Position  LngLat    `json:"position"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"createdAt"`
}
