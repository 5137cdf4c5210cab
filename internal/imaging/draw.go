package imaging

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// labelFace is the face used for every caption. 7x13 pixels per glyph.
var labelFace = basicfont.Face7x13

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// blendRect mixes c into every pixel of r at the given opacity.
func blendRect(dst *image.NRGBA, r image.Rectangle, c colorful.Color, alpha float64) {
	r = r.Intersect(dst.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			under, _ := colorful.MakeColor(dst.NRGBAAt(x, y))
			setColor(dst, x, y, under.BlendRgb(c, alpha))
		}
	}
}

func fillRect(dst *image.NRGBA, r image.Rectangle, c colorful.Color) {
	r = r.Intersect(dst.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			setColor(dst, x, y, c)
		}
	}
}

// strokeRect outlines r with lines width pixels thick, drawn inward. A
// non-zero dash alternates dash pixels on and off.
func strokeRect(dst *image.NRGBA, r image.Rectangle, c colorful.Color, width, dash int) {
	on := func(i int) bool { return dash <= 0 || (i/dash)%2 == 0 }
	for w := 0; w < width; w++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if on(x - r.Min.X) {
				plot(dst, x, r.Min.Y+w, c)
				plot(dst, x, r.Max.Y-1-w, c)
			}
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			if on(y - r.Min.Y) {
				plot(dst, r.Min.X+w, y, c)
				plot(dst, r.Max.X-1-w, y, c)
			}
		}
	}
}

// drawLine draws a one pixel line with Bresenham's algorithm.
func drawLine(dst *image.NRGBA, x0, y0, x1, y1 int, c colorful.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		plot(dst, x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// fillMarker draws a downward-pointing triangle whose top edge spans
// [x, x+size) at row y.
func fillMarker(dst *image.NRGBA, x, y, size int, c colorful.Color) {
	for row := 0; row < size; row++ {
		inset := row / 2
		for col := inset; col < size-inset; col++ {
			plot(dst, x+col, y+row, c)
		}
	}
}

// drawText writes s with its baseline at y. Text that would run past
// maxWidth pixels is cut and suffixed with "...". A maxWidth of 0 disables
// truncation.
func drawText(dst *image.NRGBA, x, y int, s string, c colorful.Color, maxWidth int) {
	if maxWidth > 0 {
		s = truncate(s, maxWidth)
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: labelFace,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawCaption writes s on a solid background box whose top-left is (x, y).
func drawCaption(dst *image.NRGBA, x, y int, s string, fg, bg colorful.Color) {
	w := textWidth(s)
	h := labelFace.Height
	fillRect(dst, image.Rect(x, y, x+w+4, y+h+2), bg)
	drawText(dst, x+2, y+labelFace.Ascent+1, s, fg, 0)
}

func textWidth(s string) int {
	return font.MeasureString(labelFace, s).Ceil()
}

func truncate(s string, maxWidth int) string {
	if textWidth(s) <= maxWidth {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && textWidth(string(runes)+"...") > maxWidth {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func plot(dst *image.NRGBA, x, y int, c colorful.Color) {
	if (image.Point{X: x, Y: y}).In(dst.Bounds()) {
		setColor(dst, x, y, c)
	}
}

func setColor(dst *image.NRGBA, x, y int, c colorful.Color) {
	r, g, b := c.Clamped().RGB255()
	dst.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: 255})
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
