// Package geometry provides the axis-aligned box math shared by the detection,
// planogram and compliance packages.
//
// # Coordinate System
//
// All values are float64 in the planogram's pixel space:
//   - Origin (0, 0) at the top-left corner
//   - X increases rightward
//   - Y increases downward
//   - A Box is anchored at its top-left corner (X, Y) and extends Width to the
//     right and Height downward
//
// # Slots
//
// A planogram is a grid of fixed-size slots. SnapToSlot rounds a free position
// to the nearest slot origin and clamps it so that the snapped slot never
// extends outside the planogram bounds. SnapToGrid is the finer, optional
// editor grid and is the identity when snapping is disabled.
//
// # Thread Safety
//
// Every function in this package is pure and safe for concurrent use.
package geometry
