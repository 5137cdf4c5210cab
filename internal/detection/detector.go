package detection

import (
	"context"
	"fmt"
	"image"
	"math/rand"
	"strings"
	"sync"

	"github.com/ironsheep/planogram-mcp/internal/geometry"
)

// Detector produces raw product detections for a shelf photo.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
}

// Labeler reads the product label printed inside a box of a shelf photo.
type Labeler interface {
	ReadLabel(img image.Image, box geometry.Box) (string, error)
}

// Label fills in the Label of every detection that has none by reading the
// text inside its box. Detections that already carry a label are returned
// unchanged, as are boxes where the labeler finds no text.
func Label(ctx context.Context, img image.Image, dets []Detection, labeler Labeler) ([]Detection, error) {
	out := make([]Detection, len(dets))
	copy(out, dets)

	for i := range out {
		if out[i].Label != "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := labeler.ReadLabel(img, out[i].Box())
		if err != nil {
			return nil, fmt.Errorf("failed to read label for detection %d: %w", i, err)
		}
		out[i].Label = strings.TrimSpace(text)
	}
	return out, nil
}

// mockProduct places a simulated product relative to the image size.
type mockProduct struct {
	name  string
	w, h  float64
	shelf int
	x     float64
}

// Shelf baselines as a fraction of image height, top to bottom.
var mockShelfYs = []float64{0.25, 0.4, 0.55, 0.7, 0.85}

var mockProducts = []mockProduct{
	{name: "Odor-Eaters Insoles", w: 0.06, h: 0.25, shelf: 0, x: 0.45},
	{name: "Blue Box Product", w: 0.08, h: 0.12, shelf: 1, x: 0.2},
	{name: "Small White Bottle", w: 0.03, h: 0.1, shelf: 2, x: 0.3},
	{name: "Small White Bottle", w: 0.03, h: 0.1, shelf: 2, x: 0.35},
	{name: "Small White Bottle", w: 0.03, h: 0.1, shelf: 2, x: 0.4},
	{name: "Red Box Product", w: 0.07, h: 0.08, shelf: 3, x: 0.15},
	{name: "Band-Aid", w: 0.1, h: 0.07, shelf: 4, x: 0.5},
}

// SimulatedDetector returns a fixed set of shelf-aware mock detections scaled
// to the image. It stands in for a real model during development and demos.
//
// Confidences are drawn from [0.95, 1.0) using a seeded source, so two
// detectors with the same seed produce identical runs.
type SimulatedDetector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedDetector creates a simulated detector seeded with seed.
func NewSimulatedDetector(seed int64) *SimulatedDetector {
	return &SimulatedDetector{rng: rand.New(rand.NewSource(seed))}
}

// Detect returns one rectangular mask detection per mock product. Each
// product's bottom edge rests on its shelf baseline.
func (s *SimulatedDetector) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	imgW := float64(bounds.Dx())
	imgH := float64(bounds.Dy())
	if imgW == 0 || imgH == 0 {
		return nil, fmt.Errorf("image has no pixels")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dets := make([]Detection, 0, len(mockProducts))
	for _, mp := range mockProducts {
		w := mp.w * imgW
		h := mp.h * imgH
		box := geometry.Box{
			X:      float64(bounds.Min.X) + mp.x*imgW,
			Y:      float64(bounds.Min.Y) + mockShelfYs[mp.shelf]*imgH - h,
			Width:  w,
			Height: h,
		}
		confidence := 0.95 + s.rng.Float64()*0.05
		dets = append(dets, FromMask(mp.name, "", confidence, geometry.RectPolygon(box)))
	}
	return dets, nil
}
