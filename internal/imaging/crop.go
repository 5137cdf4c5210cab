package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/planogram-mcp/internal/geometry"
)

// EncodedImage is a PNG ready to hand back over the wire.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// CropBox extracts the region of img covered by box.
//
// The box is in the image's own coordinates. Fractional edges are widened to
// whole pixels and the region is clipped to the image. A box that does not
// intersect the image is an error.
func CropBox(img image.Image, box geometry.Box) (*image.NRGBA, error) {
	if box.Width <= 0 || box.Height <= 0 {
		return nil, fmt.Errorf("invalid crop box: width and height must be positive, got %vx%v", box.Width, box.Height)
	}

	r := image.Rect(
		int(math.Floor(box.X)),
		int(math.Floor(box.Y)),
		int(math.Ceil(box.Right())),
		int(math.Ceil(box.Bottom())),
	).Intersect(img.Bounds())

	if r.Empty() {
		b := img.Bounds()
		return nil, fmt.Errorf("crop box (%v,%v %vx%v) outside image bounds (%d,%d)-(%d,%d)",
			box.X, box.Y, box.Width, box.Height, b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)
	}

	return imaging.Crop(img, r), nil
}

// Scale resizes img by factor with Lanczos resampling. A factor of 1 or less
// than or equal to zero returns a copy.
func Scale(img image.Image, factor float64) *image.NRGBA {
	if factor <= 0 || factor == 1 {
		return imaging.Clone(img)
	}
	b := img.Bounds()
	w := max(1, int(math.Round(float64(b.Dx())*factor)))
	h := max(1, int(math.Round(float64(b.Dy())*factor)))
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// EncodePNG encodes img as a base64 PNG.
func EncodePNG(img image.Image) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	b := img.Bounds()
	return &EncodedImage{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// Save writes img to path in the format named by the file extension.
func Save(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}
