// Package imaging loads shelf photos and draws planogram and observation
// images.
//
// The package covers the pixel side of the compliance workflow:
//
//   - ImageCache: decoded photos keyed by path, with EXIF auto-orientation
//   - CropBox and Scale: cut a detection box out of a photo for OCR
//   - RenderPlanogram: draw the expected layout coloured by compliance status
//   - AnnotateObservations: outline observations on the shelf photo
//   - EncodePNG and Save: hand images back inline or write them to disk
//
// # Coordinate System
//
// Photo coordinates follow the image's own bounds: (0,0) is the top-left of
// an image whose bounds start at the origin, X grows rightward and Y
// downward. Planogram coordinates are the planogram's pixel space, where one
// slot is Metadata.SlotWidth by Metadata.SlotHeight.
//
// # Status Colours
//
// RenderPlanogram fills each product by its reconciliation outcome:
//
//   - matched: green
//   - missing: red
//   - wrong_position: orange
//   - quantity_mismatch: yellow
//   - anything else, or never reconciled: blue
//
// Unmatched observations are drawn as translucent red slots with a dashed
// outline. Colours are blended in RGB space with go-colorful so translucent
// layers read the same regardless of what they cover.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The drawing functions never modify
// their inputs and can run concurrently.
package imaging
