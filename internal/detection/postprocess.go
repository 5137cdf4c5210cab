package detection

import (
	"sort"

	"github.com/ironsheep/planogram-mcp/internal/geometry"
)

// Default postprocessing thresholds.
const (
	DefaultConfidenceThreshold = 0.6
	DefaultIOUThreshold        = 0.4
)

// Detection is a raw product proposal produced by a Detector.
//
// Several detections may describe the same physical product; Process removes
// the duplicates.
type Detection struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	// Confidence is the detector's score in [0, 1].
	Confidence float64 `json:"confidence"`

	Label string `json:"label"`
	SKU   string `json:"sku,omitempty"`

	// Quantity is the number of facings inside the box. Zero counts as one.
	Quantity int `json:"quantity,omitempty"`

	// Mask is the optional segmentation outline. When the box is empty the
	// mask's bounding box is used instead.
	Mask geometry.Polygon `json:"mask,omitempty"`
}

// Box returns the detection's bounding box, derived from Mask when the
// explicit box is empty.
func (d Detection) Box() geometry.Box {
	if (d.Width <= 0 || d.Height <= 0) && len(d.Mask) > 0 {
		return geometry.BoundingBoxOf(d.Mask)
	}
	return geometry.Box{X: d.X, Y: d.Y, Width: d.Width, Height: d.Height}
}

// FromMask builds a detection whose box is the bounding box of poly.
func FromMask(label, sku string, confidence float64, poly geometry.Polygon) Detection {
	b := geometry.BoundingBoxOf(poly)
	return Detection{
		X:          b.X,
		Y:          b.Y,
		Width:      b.Width,
		Height:     b.Height,
		Confidence: confidence,
		Label:      label,
		SKU:        sku,
		Mask:       poly,
	}
}

// Observation is a detection that survived postprocessing, placed on the
// planogram's slot grid.
type Observation struct {
	Detection

	PlanogramX float64 `json:"planogramX"`
	PlanogramY float64 `json:"planogramY"`

	// Matched is set by reconciliation once the observation is paired with
	// an expected product.
	Matched bool `json:"matched"`
}

// Options controls Process.
type Options struct {
	// ConfidenceThreshold drops detections with confidence <= threshold.
	ConfidenceThreshold float64

	// IOUThreshold suppresses a detection whose IoU with a kept, higher
	// confidence detection exceeds it.
	IOUThreshold float64

	// SlotWidth and SlotHeight define the grid observations snap to. A zero
	// slot size leaves the planogram coordinates at the raw box origin, or
	// rounds them to GridSize when that is positive.
	SlotWidth  float64
	SlotHeight float64
	GridSize   float64

	// BoundsWidth and BoundsHeight clamp snapped coordinates. Zero disables
	// clamping on that axis.
	BoundsWidth  float64
	BoundsHeight float64
}

// DefaultOptions returns the thresholds used by the shelf editor with no slot
// grid attached.
func DefaultOptions() Options {
	return Options{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		IOUThreshold:        DefaultIOUThreshold,
	}
}

// Process filters, deduplicates and grid-snaps raw detections.
//
// # Algorithm
//
//  1. Drop detections with Confidence <= ConfidenceThreshold
//  2. Greedy non-maximum suppression (see Suppress)
//  3. Snap each survivor's origin to the nearest slot
//
// Every observation starts unmatched with a quantity of at least one. The
// input slice is not modified.
func Process(dets []Detection, opts Options) []Observation {
	kept := Suppress(dets, opts.ConfidenceThreshold, opts.IOUThreshold)

	obs := make([]Observation, 0, len(kept))
	for _, d := range kept {
		b := d.Box()
		d.X, d.Y, d.Width, d.Height = b.X, b.Y, b.Width, b.Height
		if d.Quantity <= 0 {
			d.Quantity = 1
		}

		var px, py float64
		if opts.SlotWidth > 0 && opts.SlotHeight > 0 {
			snapped := geometry.SnapToSlot(b.X, b.Y, opts.SlotWidth, opts.SlotHeight, opts.BoundsWidth, opts.BoundsHeight)
			px, py = snapped.X, snapped.Y
		} else {
			px = geometry.SnapToGrid(b.X, opts.GridSize, opts.GridSize > 0)
			py = geometry.SnapToGrid(b.Y, opts.GridSize, opts.GridSize > 0)
		}

		obs = append(obs, Observation{Detection: d, PlanogramX: px, PlanogramY: py})
	}
	return obs
}

// Suppress runs confidence filtering followed by greedy non-maximum
// suppression.
//
// Survivors are returned in descending confidence order. Equal confidences
// keep their input order, so of two overlapping detections with the same
// score the earlier one survives.
func Suppress(dets []Detection, confidenceThreshold, iouThreshold float64) []Detection {
	candidates := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if d.Confidence > confidenceThreshold {
			candidates = append(candidates, d)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	boxes := make([]geometry.Box, len(candidates))
	for i, d := range candidates {
		boxes[i] = d.Box()
	}

	suppressed := make([]bool, len(candidates))
	kept := make([]Detection, 0, len(candidates))
	for i := range candidates {
		if suppressed[i] {
			continue
		}
		kept = append(kept, candidates[i])
		for j := i + 1; j < len(candidates); j++ {
			if !suppressed[j] && geometry.IoU(boxes[i], boxes[j]) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

// Summary is a per-run count of what was observed.
type Summary struct {
	// Total is the number of observations.
	Total int `json:"total"`
	// Facings adds up the observations' quantities.
	Facings    int            `json:"facings"`
	UniqueSKUs int            `json:"unique_skus"`
	ByProduct  map[string]int `json:"by_product"`
}

// Summarize groups observations by SKU, falling back to the label when an
// observation has no SKU. ByProduct counts facings.
func Summarize(obs []Observation) Summary {
	s := Summary{Total: len(obs), ByProduct: make(map[string]int)}
	for _, o := range obs {
		key := o.SKU
		if key == "" {
			key = o.Label
		}
		q := max(o.Quantity, 1)
		s.ByProduct[key] += q
		s.Facings += q
	}
	s.UniqueSKUs = len(s.ByProduct)
	return s
}
