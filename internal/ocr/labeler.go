package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/planogram-mcp/internal/geometry"
	"github.com/ironsheep/planogram-mcp/internal/imaging"
)

// Word is one recognized word inside a label crop.
type Word struct {
	Text string `json:"text"`

	// Confidence is Tesseract's score scaled to 0.0-1.0.
	Confidence float64 `json:"confidence"`

	// Box is in the coordinates of the source photo, not the crop.
	Box geometry.Box `json:"box"`
}

// Reading is the text found inside one detection box.
type Reading struct {
	// Text is the accepted words joined by single spaces.
	Text string `json:"text"`

	// Confidence is the mean confidence of the accepted words, or 0 when
	// none were accepted.
	Confidence float64 `json:"confidence"`

	Words []Word `json:"words"`
}

// Labeler reads product labels out of detection boxes.
//
// A fresh Tesseract client is created per call, so one Labeler may be shared
// across goroutines.
type Labeler struct {
	// Language is the Tesseract language code, e.g. "eng".
	Language string

	// MinConfidence drops words scored below it (0.0-1.0).
	MinConfidence float64

	// MinHeight upscales crops shorter than this many pixels before OCR.
	// Zero disables upscaling.
	MinHeight int
}

// NewLabeler returns a Labeler for language with thresholds suited to
// shelf-edge labels.
func NewLabeler(language string) *Labeler {
	if language == "" {
		language = "eng"
	}
	return &Labeler{
		Language:      language,
		MinConfidence: 0.5,
		MinHeight:     48,
	}
}

// ReadLabel returns the text inside box, satisfying detection.Labeler.
func (l *Labeler) ReadLabel(img image.Image, box geometry.Box) (string, error) {
	r, err := l.Read(img, box)
	if err != nil {
		return "", err
	}
	return r.Text, nil
}

// Read runs OCR on the part of img covered by box.
//
// # Algorithm
//
//  1. Crop box out of img (clipped to the image)
//  2. Upscale with Lanczos when the crop is shorter than MinHeight
//  3. Encode as PNG and hand the bytes to Tesseract, treating the crop as a
//     single block of text
//  4. Keep words at or above MinConfidence, mapping their boxes back to the
//     photo's coordinates
//
// When Tesseract reports no word boxes the plain text result is used with a
// confidence of 0.
func (l *Labeler) Read(img image.Image, box geometry.Box) (*Reading, error) {
	crop, err := imaging.CropBox(img, box)
	if err != nil {
		return nil, err
	}

	scale := 1.0
	if h := crop.Bounds().Dy(); l.MinHeight > 0 && h < l.MinHeight {
		scale = float64(l.MinHeight) / float64(h)
		crop = imaging.Scale(crop, scale)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, crop); err != nil {
		return nil, fmt.Errorf("failed to encode crop: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(l.Language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		text, terr := client.Text()
		if terr != nil {
			return nil, fmt.Errorf("OCR failed: %w", terr)
		}
		return &Reading{Text: normalize(text), Words: []Word{}}, nil
	}

	// The crop starts at the whole-pixel, clipped corner of box.
	ib := img.Bounds()
	origin := geometry.Point{
		X: max(math.Floor(box.X), float64(ib.Min.X)),
		Y: max(math.Floor(box.Y), float64(ib.Min.Y)),
	}
	return collect(boxes, l.MinConfidence, scale, origin), nil
}

func collect(boxes []gosseract.BoundingBox, minConfidence, scale float64, origin geometry.Point) *Reading {
	words := make([]Word, 0, len(boxes))
	texts := make([]string, 0, len(boxes))
	total := 0.0

	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		conf := b.Confidence / 100.0
		if text == "" || conf < minConfidence {
			continue
		}
		words = append(words, Word{
			Text:       text,
			Confidence: conf,
			Box: geometry.Box{
				X:      origin.X + float64(b.Box.Min.X)/scale,
				Y:      origin.Y + float64(b.Box.Min.Y)/scale,
				Width:  float64(b.Box.Dx()) / scale,
				Height: float64(b.Box.Dy()) / scale,
			},
		})
		texts = append(texts, text)
		total += conf
	}

	r := &Reading{Text: strings.Join(texts, " "), Words: words}
	if len(words) > 0 {
		r.Confidence = total / float64(len(words))
	}
	return r
}

// normalize collapses runs of whitespace, including newlines, to one space.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
