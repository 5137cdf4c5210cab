package detection

import (
	"context"
	"image"
	"math"
	"sort"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
)

// EdgeDetector proposes product boxes from the outlines visible in a shelf
// photo. It needs no model and produces unlabeled detections; pair it with a
// Labeler to name them.
type EdgeDetector struct {
	// MinArea is the smallest box area, in square pixels, that is reported.
	MinArea int

	// BlurRadius is the Gaussian blur applied before edge extraction.
	BlurRadius float64

	// EdgeThreshold is the Sobel magnitude (0-255) at which a pixel counts
	// as an edge.
	EdgeThreshold uint8
}

// NewEdgeDetector returns an EdgeDetector tuned for product-sized outlines.
func NewEdgeDetector() *EdgeDetector {
	return &EdgeDetector{
		MinArea:       400,
		BlurRadius:    1.0,
		EdgeThreshold: 128,
	}
}

type pixel struct{ x, y int }

const borderMargin = 2

// Detect finds closed outlines and returns their bounding boxes.
//
// # Algorithm
//
//  1. Grayscale, Gaussian blur and Sobel gradient via bild
//  2. Threshold the gradient into a binary edge mask
//  3. Group edge pixels into 8-connected components
//  4. Take each component's bounding box; drop boxes below MinArea
//  5. Confidence is the share of the box perimeter covered by edge pixels,
//     capped at 1.0
//
// Results are sorted by area, largest first.
func (e *EdgeDetector) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gray := effect.Grayscale(img)
	blurred := blur.Gaussian(gray, e.BlurRadius)
	gradient := effect.Sobel(blurred)
	mask := segment.Threshold(gradient, e.EdgeThreshold)

	mb := mask.Bounds()
	width, height := mb.Dx(), mb.Dy()
	edges := make([][]bool, height)
	for y := 0; y < height; y++ {
		edges[y] = make([]bool, width)
		for x := 0; x < width; x++ {
			// Kernel responses along the frame are not outlines.
			if x < borderMargin || y < borderMargin || x >= width-borderMargin || y >= height-borderMargin {
				continue
			}
			edges[y][x] = mask.GrayAt(mb.Min.X+x, mb.Min.Y+y).Y > 0
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	origin := img.Bounds().Min
	dets := make([]Detection, 0)
	for _, comp := range connectedComponents(edges, width, height) {
		minX, minY := width, height
		maxX, maxY := 0, 0
		for _, p := range comp {
			minX = min(minX, p.x)
			maxX = max(maxX, p.x)
			minY = min(minY, p.y)
			maxY = max(maxY, p.y)
		}

		boxW := maxX - minX + 1
		boxH := maxY - minY + 1
		if boxW*boxH < e.MinArea {
			continue
		}

		perimeter := 2 * (boxW + boxH)
		confidence := math.Min(1.0, float64(len(comp))/float64(perimeter))

		dets = append(dets, Detection{
			X:          float64(minX + origin.X),
			Y:          float64(minY + origin.Y),
			Width:      float64(boxW),
			Height:     float64(boxH),
			Confidence: math.Round(confidence*1000) / 1000,
		})
	}

	sort.SliceStable(dets, func(i, j int) bool {
		return dets[i].Width*dets[i].Height > dets[j].Width*dets[j].Height
	})
	return dets, nil
}

// connectedComponents groups edge pixels into 8-connected components,
// discarding specks of fewer than 10 pixels.
func connectedComponents(edges [][]bool, width, height int) [][]pixel {
	visited := make([][]bool, height)
	for y := 0; y < height; y++ {
		visited[y] = make([]bool, width)
	}

	comps := make([][]pixel, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !edges[y][x] || visited[y][x] {
				continue
			}
			comp := floodFill(edges, visited, x, y, width, height)
			if len(comp) >= 10 {
				comps = append(comps, comp)
			}
		}
	}
	return comps
}

func floodFill(edges, visited [][]bool, startX, startY, width, height int) []pixel {
	comp := make([]pixel, 0)
	stack := []pixel{{startX, startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.x < 0 || p.x >= width || p.y < 0 || p.y >= height {
			continue
		}
		if visited[p.y][p.x] || !edges[p.y][p.x] {
			continue
		}
		visited[p.y][p.x] = true
		comp = append(comp, p)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx != 0 || dy != 0 {
					stack = append(stack, pixel{p.x + dx, p.y + dy})
				}
			}
		}
	}
	return comp
}
