package influx

import (
	"time"

	"github.com/OCAP2/mapdraw/internal/store"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
)

// Measurement names.
const (
	MeasurementCommitted = "drawing_committed"
	MeasurementDeleted   = "drawings_deleted"
	MeasurementMode      = "draw_mode"
)

// PointWriter accepts points for delivery.
type PointWriter interface {
	WritePoint(point *influxdb2_write.Point) error
}

// UsagePoint converts a store change into a usage point. Changes that carry
// nothing worth recording yield nil.
func UsagePoint(sessionID string, c store.Change, at time.Time) *influxdb2_write.Point {
	tags := map[string]string{"session": sessionID}

	switch c.Kind {
	case store.MarkerAdded:
		tags["kind"] = "marker"
		return influxdb2_write.NewPoint(MeasurementCommitted, tags, map[string]any{
			"vertices": 1,
			"lng":      c.Marker.Position.Lng,
			"lat":      c.Marker.Position.Lat,
		}, at)
	case store.LineAdded:
		tags["kind"] = "line"
		return influxdb2_write.NewPoint(MeasurementCommitted, tags, map[string]any{
			"vertices": len(c.Line.Vertices),
		}, at)
	case store.MarkersCleaned:
		if c.Count == 0 {
			return nil
		}
		tags["kind"] = "marker"
		return influxdb2_write.NewPoint(MeasurementDeleted, tags, map[string]any{"count": c.Count}, at)
	case store.LinesCleaned:
		if c.Count == 0 {
			return nil
		}
		tags["kind"] = "line"
		return influxdb2_write.NewPoint(MeasurementDeleted, tags, map[string]any{"count": c.Count}, at)
	case store.ModeChanged:
		return influxdb2_write.NewPoint(MeasurementMode, tags, map[string]any{
			"mode": c.Mode.String(),
			"prev": c.Prev.String(),
		}, at)
	}
	return nil
}

// UsageObserver returns a store observer that records usage points for one
// session through w.
func UsageObserver(w PointWriter, sessionID string, logger zerolog.Logger) store.Observer {
	return func(c store.Change) {
		point := UsagePoint(sessionID, c, time.Now())
		if point == nil {
			return
		}
		if err := w.WritePoint(point); err != nil {
			logger.Warn().Err(err).Str("change", c.Kind.String()).Msg("Failed to record usage point")
		}
	}
}
