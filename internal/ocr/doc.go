// Package ocr reads shelf-label text out of detection boxes with Tesseract.
//
// Detectors that find product outlines without naming them (the edge
// detector, or a remote model trained on shapes only) leave labels empty.
// Labeler fills them in by running Tesseract, through gosseract/v2, on the
// part of the photo each detection covers.
//
// # Prerequisites
//
// Tesseract and its language data must be installed:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// The language defaults to "eng" and is set with OCR_LANGUAGE.
//
// # Performance Considerations
//
// OCR is the slowest step of an analysis. Only detections without a label
// are read, and each read covers just the detection box. Crops shorter than
// Labeler.MinHeight are upscaled before reading.
package ocr
