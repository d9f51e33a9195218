package interfaces

// -----------------------------------------------------------------------------
// IMapRenderer is the capability the view binding calls into for map drawing.
// Rendering primitives themselves live outside this codebase; the binding only
// guarantees it touches the minimal set of elements per update.
// -----------------------------------------------------------------------------

type IMapRenderer interface {

	// -----------------------------------------------------------------------------

	// DrawSegment creates the overlay for a road segment (first sight).
	DrawSegment(id string, coordinates [][2]float64, color string, width int)

	// -----------------------------------------------------------------------------

	// PaintSegment updates only the paint properties of an existing overlay.
	PaintSegment(id string, color string, width int)

	// -----------------------------------------------------------------------------

	// RemoveSegment deletes the overlay for a segment.
	RemoveSegment(id string)

	// -----------------------------------------------------------------------------

	// PlaceMarker creates or moves the marker for a signal.
	PlaceMarker(id string, lat, lng float64, color string)

	// -----------------------------------------------------------------------------

	// RemoveMarker deletes the marker for a signal.
	RemoveMarker(id string)
}
