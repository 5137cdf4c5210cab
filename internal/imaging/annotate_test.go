package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/planogram-mcp/internal/detection"
	"github.com/ironsheep/planogram-mcp/internal/geometry"
)

func TestLabelColor(t *testing.T) {
	if LabelColor("Cola") != LabelColor("Cola") {
		t.Error("LabelColor is not stable")
	}
	// "ab" sums to 195, 195 % 12 = 3.
	if got := LabelColor("ab"); got != labelPalette[3] {
		t.Errorf("LabelColor(ab): got %s, want %s", got.Hex(), labelPalette[3].Hex())
	}
	if got := LabelColor(""); got != labelPalette[0] {
		t.Errorf("LabelColor(empty): got %s, want %s", got.Hex(), labelPalette[0].Hex())
	}
}

func TestAnnotateObservations(t *testing.T) {
	src := createInMemoryImage(200, 150, color.White)
	obs := []detection.Observation{
		{Detection: detection.Detection{X: 40, Y: 50, Width: 60, Height: 80, Label: "Cola"}},
	}

	out := AnnotateObservations(src, obs)

	if out.Bounds() != src.Bounds() {
		t.Fatalf("bounds: got %v, want %v", out.Bounds(), src.Bounds())
	}
	if src.NRGBAAt(40, 50) != (color.NRGBA{255, 255, 255, 255}) {
		t.Error("AnnotateObservations modified the source image")
	}

	want := LabelColor("Cola")
	outline := hueAt(out, 40, 90)
	if outline.DistanceRgb(want) > 0.02 {
		t.Errorf("outline: got %s, want %s", outline.Hex(), want.Hex())
	}

	tint := hueAt(out, 70, 100)
	wantTint := shelfColor.BlendRgb(want, 0.25)
	if tint.DistanceRgb(wantTint) > 0.02 {
		t.Errorf("tint: got %s, want %s", tint.Hex(), wantTint.Hex())
	}

	outside := hueAt(out, 150, 20)
	if outside.DistanceRgb(shelfColor) > 0.001 {
		t.Errorf("pixel outside the box changed: got %s", outside.Hex())
	}
}

func TestAnnotateObservations_Mask(t *testing.T) {
	src := createInMemoryImage(100, 100, color.White)
	poly := geometry.Polygon{{X: 20, Y: 20}, {X: 80, Y: 20}, {X: 80, Y: 80}, {X: 20, Y: 80}}
	obs := []detection.Observation{{Detection: detection.FromMask("Soap", "", 0.9, poly)}}

	out := AnnotateObservations(src, obs)

	c := hueAt(out, 50, 20)
	if c.DistanceRgb(LabelColor("Soap")) > 0.02 {
		t.Errorf("mask edge: got %s, want %s", c.Hex(), LabelColor("Soap").Hex())
	}
}

func TestAnnotateObservations_OffsetOrigin(t *testing.T) {
	base := createInMemoryImage(100, 100, color.White)
	sub := base.SubImage(image.Rect(50, 50, 100, 100))
	obs := []detection.Observation{
		{Detection: detection.Detection{X: 60, Y: 60, Width: 20, Height: 20}},
	}

	out := AnnotateObservations(sub, obs)
	if out.Bounds().Dx() != 50 {
		t.Fatalf("width: got %d, want 50", out.Bounds().Dx())
	}

	c := hueAt(out, 10, 15)
	if c.DistanceRgb(LabelColor("")) > 0.02 {
		t.Errorf("outline not shifted by the image origin: got %s", c.Hex())
	}
}

func TestAnnotateObservations_ShelfLines(t *testing.T) {
	src := createInMemoryImage(200, 200, color.White)
	obs := []detection.Observation{
		{Detection: detection.Detection{X: 20, Y: 40, Width: 30, Height: 60, Label: "Cola"}},
		{Detection: detection.Detection{X: 100, Y: 50, Width: 30, Height: 50, Label: "Chips"}},
		{Detection: detection.Detection{X: 20, Y: 120, Width: 30, Height: 60, Label: "Soap"}},
	}

	out := AnnotateObservations(src, obs)

	tests := []struct {
		name string
		x, y int
		want colorful.Color
	}{
		{"upper shelf dash", 160, 100, shelfLineColor},
		{"upper shelf gap", 168, 100, shelfColor},
		{"lower shelf dash", 176, 180, shelfLineColor},
		{"between shelves", 160, 110, shelfColor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hueAt(out, tt.x, tt.y); got.DistanceRgb(tt.want) > 0.001 {
				t.Errorf("pixel (%d,%d): got %s, want %s", tt.x, tt.y, got.Hex(), tt.want.Hex())
			}
		})
	}
}
