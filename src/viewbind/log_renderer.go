package viewbind

import (
	"traffic-observer/src/logger"
)

// -----------------------------------------------------------------------------
// LogRenderer is the headless renderer: draw calls become debug log lines.
// The browser does the actual drawing from hub broadcasts; this keeps the
// binding exercised (and observable) when running without a display surface.
// -----------------------------------------------------------------------------

type LogRenderer struct {
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewLogRenderer(log *logger.Logger) *LogRenderer {
	return &LogRenderer{Logger: log}
}

// -----------------------------------------------------------------------------

func (r *LogRenderer) DrawSegment(id string, coordinates [][2]float64, color string, width int) {
	r.Logger.Debug("Draw segment %s (%d points, %s)", id, len(coordinates), color)
}

func (r *LogRenderer) PaintSegment(id string, color string, width int) {
	r.Logger.Debug("Paint segment %s -> %s", id, color)
}

func (r *LogRenderer) RemoveSegment(id string) {
	r.Logger.Debug("Remove segment %s", id)
}

func (r *LogRenderer) PlaceMarker(id string, lat, lng float64, color string) {
	r.Logger.Debug("Place marker %s at (%.5f, %.5f) %s", id, lat, lng, color)
}

func (r *LogRenderer) RemoveMarker(id string) {
	r.Logger.Debug("Remove marker %s", id)
}
