package imaging

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/planogram-mcp/internal/detection"
)

// labelPalette is cycled through by LabelColor.
var labelPalette = []colorful.Color{
	mustHex("#f87171"), mustHex("#fb923c"), mustHex("#fbbf24"), mustHex("#a3e635"),
	mustHex("#4ade80"), mustHex("#34d399"), mustHex("#22d3ee"), mustHex("#60a5fa"),
	mustHex("#818cf8"), mustHex("#c084fc"), mustHex("#f472b6"), mustHex("#e879f9"),
}

var (
	captionBackground = mustHex("#0f172a")
	shelfLineColor    = mustHex("#facc15")
)

// LabelColor picks a palette colour for a product label. The same label
// always gets the same colour.
func LabelColor(label string) colorful.Color {
	sum := 0
	for _, r := range label {
		sum += int(r)
	}
	return labelPalette[sum%len(labelPalette)]
}

// AnnotateObservations draws the observations over a copy of the shelf photo.
//
// Each observation is tinted and outlined in its LabelColor. Observations
// with a mask are outlined along the mask, the rest along their box. The
// label is captioned above the outline, or inside it when there is no room
// above. Shelf lines estimated by detection.EstimateShelves are drawn dashed
// across the photo underneath.
func AnnotateObservations(img image.Image, observations []detection.Observation) *image.NRGBA {
	out := imaging.Clone(img)
	origin := img.Bounds().Min

	for _, shelf := range detection.EstimateShelves(observations) {
		y := int(math.Round(shelf.Baseline)) - origin.Y
		for x := 0; x < out.Bounds().Dx(); x++ {
			if (x/8)%2 == 0 {
				plot(out, x, y, shelfLineColor)
			}
		}
	}

	for _, o := range observations {
		c := LabelColor(o.Label)
		box := o.Box()
		r := image.Rect(
			int(math.Floor(box.X)), int(math.Floor(box.Y)),
			int(math.Ceil(box.Right())), int(math.Ceil(box.Bottom())),
		).Sub(origin)

		blendRect(out, r, c, 0.25)

		if len(o.Mask) > 1 {
			for i := range o.Mask {
				a := o.Mask[i]
				b := o.Mask[(i+1)%len(o.Mask)]
				drawLine(out,
					int(math.Round(a.X))-origin.X, int(math.Round(a.Y))-origin.Y,
					int(math.Round(b.X))-origin.X, int(math.Round(b.Y))-origin.Y, c)
			}
		} else {
			strokeRect(out, r, c, 2, 0)
		}

		if o.Label == "" {
			continue
		}
		y := r.Min.Y - labelFace.Height - 2
		if y < 0 {
			y = r.Min.Y
		}
		drawCaption(out, r.Min.X, y, o.Label, c, captionBackground)
	}
	return out
}
