package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/planogram-mcp/internal/compliance"
	"github.com/ironsheep/planogram-mcp/internal/detection"
	"github.com/ironsheep/planogram-mcp/internal/planogram"
)

// Zoom limits for RenderPlanogram.
const (
	MinZoom = 0.5
	MaxZoom = 2.0
)

// Render palette.
var (
	backgroundColor = mustHex("#f8f9fa")
	gridColor       = mustHex("#e0e0e0")
	shelfColor      = mustHex("#ffffff")
	shelfBorder     = mustHex("#6b7280")
	slotDivider     = mustHex("#d1d5db")
	levelText       = mustHex("#374151")
	productText     = mustHex("#111827")
	skuText         = mustHex("#6b7280")

	matchedColor  = mustHex("#22c55e")
	missingColor  = mustHex("#ef4444")
	positionColor = mustHex("#f59e0b")
	quantityColor = mustHex("#fbbf24")
	neutralColor  = mustHex("#3b82f6")
)

// RenderOptions controls RenderPlanogram.
type RenderOptions struct {
	// Zoom scales the output. Zero means 1; other values are clamped to
	// [MinZoom, MaxZoom].
	Zoom float64

	ShowGrid          bool
	ShowLabels        bool
	ShowDiscrepancies bool
}

// DefaultRenderOptions matches the editor's initial view.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{Zoom: 1, ShowGrid: true, ShowLabels: true, ShowDiscrepancies: true}
}

// StatusColor returns the fill colour of a product given its discrepancy, if
// any, and its matched flag.
//
//   - missing: red
//   - wrong_position: orange
//   - quantity_mismatch: yellow
//   - any other discrepancy: blue
//   - no discrepancy and matched: green
//   - otherwise: blue
func StatusColor(d *compliance.Discrepancy, matched bool) colorful.Color {
	if d != nil {
		switch d.Type {
		case compliance.Missing:
			return missingColor
		case compliance.WrongPosition:
			return positionColor
		case compliance.QuantityMismatch:
			return quantityColor
		default:
			return neutralColor
		}
	}
	if matched {
		return matchedColor
	}
	return neutralColor
}

func severityColor(s compliance.Severity) colorful.Color {
	switch s {
	case compliance.High:
		return missingColor
	case compliance.Medium:
		return positionColor
	default:
		return quantityColor
	}
}

// RenderPlanogram draws the planogram as an image.
//
// # Layers
//
//  1. Background and, with ShowGrid, the snapping grid
//  2. Shelf levels with slot dividers and, with ShowLabels, "Level N"
//  3. With ShowDiscrepancies, unmatched observations as translucent red
//     slots with a dashed outline
//  4. Products filled by StatusColor, with name, "xN" quantity and SKU
//     captions under ShowLabels, and a severity marker in the top-right
//     corner under ShowDiscrepancies
//
// A product's discrepancy is the first one naming its id, or failing that
// its non-empty SKU.
func RenderPlanogram(p planogram.Planogram, observations []detection.Observation, discrepancies []compliance.Discrepancy, opts RenderOptions) (*image.NRGBA, error) {
	width := int(math.Ceil(p.Width))
	height := int(math.Ceil(p.Height))
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("planogram has no drawable area: %vx%v", p.Width, p.Height)
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, width, height))
	fillRect(canvas, canvas.Bounds(), backgroundColor)

	if opts.ShowGrid && p.Metadata.GridSize > 0 {
		step := p.Metadata.GridSize
		for x := 0.0; x <= p.Width; x += step {
			drawLine(canvas, int(x), 0, int(x), height-1, gridColor)
		}
		for y := 0.0; y <= p.Height; y += step {
			drawLine(canvas, 0, int(y), width-1, int(y), gridColor)
		}
	}

	for _, shelf := range p.Shelves {
		r := image.Rect(0, int(shelf.Y), width, int(shelf.Y+shelf.Height))
		fillRect(canvas, r, shelfColor)
		strokeRect(canvas, r, shelfBorder, 1, 0)

		for i := 1; i < shelf.SlotCount; i++ {
			x := int(float64(i) * p.Metadata.SlotWidth)
			drawLine(canvas, x, r.Min.Y+1, x, r.Max.Y-2, slotDivider)
		}
		if opts.ShowLabels {
			drawText(canvas, 5, r.Min.Y+labelFace.Ascent+2, fmt.Sprintf("Level %d", shelf.Level+1), levelText, 0)
		}
	}

	if opts.ShowDiscrepancies {
		for _, o := range observations {
			if o.Matched {
				continue
			}
			r := slotRect(o.PlanogramX, o.PlanogramY, p.Metadata.SlotWidth, p.Metadata.SlotHeight)
			blendRect(canvas, r, missingColor, 0.3)
			strokeRect(canvas, r, missingColor, 2, 5)
		}
	}

	for _, prod := range p.Products {
		d := discrepancyFor(prod, discrepancies)
		r := slotRect(prod.X, prod.Y, prod.Width, prod.Height)

		blendRect(canvas, r, StatusColor(d, prod.Matched), 0.5)
		strokeRect(canvas, r, shelfBorder, 1, 0)

		if opts.ShowLabels {
			name := prod.Name
			if name == "" {
				name = prod.SKU
			}
			if name == "" {
				name = "Product"
			}
			maxW := r.Dx() - 4
			drawText(canvas, r.Min.X+2, r.Min.Y+12, name, productText, maxW)
			if prod.Quantity > 1 {
				drawText(canvas, r.Min.X+2, r.Min.Y+25, fmt.Sprintf("x%d", prod.Quantity), productText, maxW)
			}
			drawText(canvas, r.Min.X+2, r.Max.Y-4, prod.SKU, skuText, maxW)
		}

		if d != nil && opts.ShowDiscrepancies {
			fillMarker(canvas, r.Max.X-15, r.Min.Y+5, 10, severityColor(d.Severity))
		}
	}

	zoom := opts.Zoom
	if zoom == 0 {
		zoom = 1
	}
	zoom = math.Max(MinZoom, math.Min(MaxZoom, zoom))
	if zoom != 1 {
		w := int(math.Round(float64(width) * zoom))
		h := int(math.Round(float64(height) * zoom))
		return imaging.Resize(canvas, w, h, imaging.Lanczos), nil
	}
	return canvas, nil
}

func slotRect(x, y, w, h float64) image.Rectangle {
	return image.Rect(int(math.Round(x)), int(math.Round(y)), int(math.Round(x+w)), int(math.Round(y+h)))
}

func discrepancyFor(prod planogram.Product, discrepancies []compliance.Discrepancy) *compliance.Discrepancy {
	for i := range discrepancies {
		d := &discrepancies[i]
		if d.Type == compliance.Unexpected {
			continue
		}
		if d.Product.ID != "" && d.Product.ID == prod.ID {
			return d
		}
		if prod.SKU != "" && d.Product.SKU == prod.SKU {
			return d
		}
	}
	return nil
}
