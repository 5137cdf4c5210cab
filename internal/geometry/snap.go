package geometry

import "math"

// SnapToGrid rounds value to the nearest multiple of gridSize.
//
// When enabled is false, or gridSize is not positive, value is returned
// unchanged.
func SnapToGrid(value, gridSize float64, enabled bool) float64 {
	if !enabled || gridSize <= 0 {
		return value
	}
	return math.Round(value/gridSize) * gridSize
}

// SnapToSlot rounds (x, y) to the nearest slot origin and clamps the result
// into [0, bounds-slotSize] on each axis, so a snapped slot never extends past
// the planogram edge.
//
// Parameters:
//   - x, y: Free position, usually a drop point or a detection origin.
//   - slotWidth, slotHeight: Slot size. Must be positive.
//   - boundsWidth, boundsHeight: Planogram size. A non-positive bound disables
//     clamping on that axis.
func SnapToSlot(x, y, slotWidth, slotHeight, boundsWidth, boundsHeight float64) Point {
	sx := math.Round(x/slotWidth) * slotWidth
	sy := math.Round(y/slotHeight) * slotHeight

	if boundsWidth > 0 {
		sx = clamp(sx, 0, boundsWidth-slotWidth)
	}
	if boundsHeight > 0 {
		sy = clamp(sy, 0, boundsHeight-slotHeight)
	}

	return Point{X: sx, Y: sy}
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return math.Max(lo, math.Min(v, hi))
}
