package imaging

import (
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
)

// DefaultCacheSize is the number of photos an ImageCache holds when no
// capacity is given.
const DefaultCacheSize = 16

// ImageCache keeps decoded shelf photos in memory, keyed by path.
//
// A photo is typically read several times per analysis: once by the detector,
// again for every OCR crop and once more for the overlay. The cache makes
// those reads free after the first.
//
// ImageCache is safe for concurrent use.
//
// # Memory Management
//
// The cache holds at most its capacity of photos. Loading one more drops the
// photo that was loaded first. Callers can also Evict a photo once its
// analysis is stored.
type ImageCache struct {
	mu       sync.RWMutex
	images   map[string]image.Image
	order    []string
	capacity int
}

// NewImageCache returns an empty cache holding up to capacity photos. A
// capacity below 1 means DefaultCacheSize.
func NewImageCache(capacity int) *ImageCache {
	if capacity < 1 {
		capacity = DefaultCacheSize
	}
	return &ImageCache{
		images:   make(map[string]image.Image),
		capacity: capacity,
	}
}

// Load returns the photo at path, decoding it on the first request.
//
// Photos are decoded with EXIF auto-orientation so that portrait shots from
// phones come out upright, which is the orientation detection boxes are
// reported in. Supported formats are those of disintegration/imaging: JPEG,
// PNG, GIF, TIFF and BMP.
//
// The cache key is the path string as given; two spellings of the same file
// are cached twice.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.images[path]; ok {
		// Another caller decoded it first.
		return cached, nil
	}
	for len(c.order) >= c.capacity {
		delete(c.images, c.order[0])
		c.order = c.order[1:]
	}
	c.images[path] = img
	c.order = append(c.order, path)

	return img, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Evict drops the image cached for path, if any.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.images[path]; !ok {
		return
	}
	delete(c.images, path)
	for i, p := range c.order {
		if p == path {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// DimensionsResult holds the pixel size of a photo.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetDimensions loads the photo at path through the cache and returns its
// size after orientation is applied.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &DimensionsResult{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
