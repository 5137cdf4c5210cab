// Package detection turns shelf photos into deduplicated product observations.
//
// The package has two halves: detectors that propose raw product boxes, and
// the postprocessor that cleans those proposals up for reconciliation against
// a planogram.
//
// # Detectors
//
// Detector is the seam between the compliance core and whatever produces
// detections:
//
//   - SimulatedDetector: fixed, shelf-aware mock products for demos and tests
//   - EdgeDetector: outline proposals from Sobel edges (no model required)
//   - RemoteDetector: an external inference service over HTTP
//
// A Labeler (see the ocr package) can fill in labels for detectors that do
// not name what they find.
//
// # Postprocessing
//
// Process runs the pipeline:
//
//  1. Confidence filtering: drop detections with confidence <= threshold
//     (default 0.6)
//  2. Non-maximum suppression: sort by confidence, keep the best, drop every
//     remaining detection whose IoU with it exceeds the IoU threshold
//     (default 0.4), repeat
//  3. Slot snapping: place each survivor on the planogram's slot grid
//
// Process is pure. Running it again on its own output returns the same set,
// since survivors never overlap beyond the threshold.
//
// # Coordinate System
//
// Boxes use the geometry package convention: origin at the top-left, X to
// the right, Y downward, boxes anchored at their top-left corner.
package detection
