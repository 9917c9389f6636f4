package geo

import (
	"errors"
	"math"

	"github.com/OCAP2/mapdraw/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// GEO POINTS
// Drawings are kept as raw EPSG:4326 longitude/latitude. Distances used for
// hit testing are measured in EPSG:3857 meters so that a tolerance means the
// same thing everywhere except close to the poles.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// maxMercatorLat is the latitude beyond which Web Mercator is undefined.
const maxMercatorLat = 85.05112878

// MaxLongitude bounds the longitudes accepted from a browser. Maps render a
// handful of world copies; anything this far out is not a real click.
const MaxLongitude = 1e6

// ValidateLngLat reports ErrInvalidCoordinates unless p is finite, its
// latitude lies in [-90, 90] and its longitude within MaxLongitude.
func ValidateLngLat(p core.LngLat) error {
	if math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) || math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) {
		return ErrInvalidCoordinates
	}
	if p.Lat < -90 || p.Lat > 90 || math.Abs(p.Lng) > MaxLongitude {
		return ErrInvalidCoordinates
	}
	return nil
}

// To3857 projects a longitude/latitude onto Web Mercator meters.
func To3857(p core.LngLat) geom.XY {
	lat := math.Max(-maxMercatorLat, math.Min(maxMercatorLat, p.Lat))
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(p.Lng, lat, 0)
	return geom.XY{X: x, Y: y}
}

// UnwrapLongitude moves ref by the fewest whole turns of 360 degrees that
// bring it within 180 degrees of target, so a popup lands on the world copy
// that was clicked. Non-finite inputs return ref unchanged.
func UnwrapLongitude(ref, target float64) float64 {
	d := target - ref
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return ref
	}
	switch {
	case d > 180:
		ref += 360 * math.Ceil((d-180)/360)
	case d < -180:
		ref -= 360 * math.Ceil((-d-180)/360)
	}
	return ref
}

// ClosestPoint returns the point of line nearest to p, treating
// longitude/latitude as a plane. An empty line yields p unchanged.
func ClosestPoint(line core.Polyline, p core.LngLat) core.LngLat {
	switch len(line) {
	case 0:
		return p
	case 1:
		return line[0]
	}
	best := line[0]
	bestDist := math.Inf(1)
	for i := 0; i+1 < len(line); i++ {
		c := closestOnSegment(line[i], line[i+1], p)
		d := sq(c.Lng-p.Lng) + sq(c.Lat-p.Lat)
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// DistanceMeters returns the Web Mercator distance from p to the nearest
// point of line. An empty line is infinitely far away.
func DistanceMeters(line core.Polyline, p core.LngLat) float64 {
	if len(line) == 0 {
		return math.Inf(1)
	}
	pt := To3857(p)
	if len(line) == 1 {
		return dist(To3857(line[0]), pt)
	}
	best := math.Inf(1)
	prev := To3857(line[0])
	for _, v := range line[1:] {
		next := To3857(v)
		best = math.Min(best, segmentDistance(prev, next, pt))
		prev = next
	}
	return best
}

func closestOnSegment(a, b, p core.LngLat) core.LngLat {
	dx, dy := b.Lng-a.Lng, b.Lat-a.Lat
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return a
	}
	t := ((p.Lng-a.Lng)*dx + (p.Lat-a.Lat)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return core.LngLat{Lng: a.Lng + t*dx, Lat: a.Lat + t*dy}
}

func segmentDistance(a, b, p geom.XY) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return dist(a, p)
	}
	t := math.Max(0, math.Min(1, ((p.X-a.X)*dx+(p.Y-a.Y)*dy)/l2))
	return dist(geom.XY{X: a.X + t*dx, Y: a.Y + t*dy}, p)
}

func dist(a, b geom.XY) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func sq(v float64) float64 { return v * v }
