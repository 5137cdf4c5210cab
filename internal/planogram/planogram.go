package planogram

import (
	"fmt"
	"math"
	"time"

	"github.com/ironsheep/planogram-mcp/internal/geometry"
)

// Defaults carried over from the shelf editor.
const (
	DefaultName          = "New Planogram"
	DefaultGridSize      = 20
	DefaultSlotWidth     = 60
	DefaultSlotHeight    = 80
	DefaultLevels        = 5
	DefaultSlotsPerLevel = 12
)

// now is swapped in tests.
var now = func() time.Time { return time.Now().UTC() }

// ShelfLevel is one horizontal tier of the planogram.
type ShelfLevel struct {
	ID        string  `json:"id"`
	Level     int     `json:"level"`
	Y         float64 `json:"y"`
	Height    float64 `json:"height"`
	SlotCount int     `json:"slotCount"`
}

// Product is a placed facing in the expected layout.
type Product struct {
	ID       string  `json:"id"`
	SKU      string  `json:"sku,omitempty"`
	Name     string  `json:"name,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Quantity int     `json:"quantity"`

	// Matched is recomputed by every reconciliation pass.
	Matched bool `json:"matched,omitempty"`
}

// Box returns the product's footprint.
func (p Product) Box() geometry.Box {
	return geometry.Box{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}
}

// Metadata holds the grid configuration and creation time.
type Metadata struct {
	GridSize   float64   `json:"gridSize"`
	SlotWidth  float64   `json:"slotWidth"`
	SlotHeight float64   `json:"slotHeight"`
	Created    time.Time `json:"created"`
}

// Planogram is the aggregate root of the layout model.
type Planogram struct {
	ID       string       `json:"id,omitempty"`
	Name     string       `json:"name"`
	StoreID  string       `json:"storeId,omitempty"`
	ShelfID  string       `json:"shelfId,omitempty"`
	Width    float64      `json:"width"`
	Height   float64      `json:"height"`
	Products []Product    `json:"products"`
	Shelves  []ShelfLevel `json:"shelves"`
	Metadata Metadata     `json:"metadata"`

	ComplianceScore *float64   `json:"complianceScore,omitempty"`
	LastChecked     *time.Time `json:"lastChecked,omitempty"`
	LastModified    time.Time  `json:"lastModified"`
}

// Initialize builds an empty planogram with levels shelf levels of
// slotsPerLevel slots each. Level n sits at y = n * slotHeight.
func Initialize(levels, slotsPerLevel int, slotWidth, slotHeight float64) (Planogram, error) {
	if levels <= 0 {
		return Planogram{}, invalid("levels", "must be positive")
	}
	if slotsPerLevel <= 0 {
		return Planogram{}, invalid("slotsPerLevel", "must be positive")
	}
	if slotWidth <= 0 || slotHeight <= 0 {
		return Planogram{}, invalid("slot size", "width and height must be positive")
	}

	shelves := make([]ShelfLevel, levels)
	for level := 0; level < levels; level++ {
		shelves[level] = ShelfLevel{
			ID:        fmt.Sprintf("shelf-%d", level),
			Level:     level,
			Y:         float64(level) * slotHeight,
			Height:    slotHeight,
			SlotCount: slotsPerLevel,
		}
	}

	ts := now()
	return Planogram{
		Name:     DefaultName,
		Width:    float64(slotsPerLevel) * slotWidth,
		Height:   float64(levels) * slotHeight,
		Products: []Product{},
		Shelves:  shelves,
		Metadata: Metadata{
			GridSize:   DefaultGridSize,
			SlotWidth:  slotWidth,
			SlotHeight: slotHeight,
			Created:    ts,
		},
		LastModified: ts,
	}, nil
}

// Clone returns a deep copy of p.
func (p Planogram) Clone() Planogram {
	c := p
	if p.Products != nil {
		c.Products = make([]Product, len(p.Products))
		copy(c.Products, p.Products)
	}
	if p.Shelves != nil {
		c.Shelves = make([]ShelfLevel, len(p.Shelves))
		copy(c.Shelves, p.Shelves)
	}
	if p.ComplianceScore != nil {
		score := *p.ComplianceScore
		c.ComplianceScore = &score
	}
	if p.LastChecked != nil {
		checked := *p.LastChecked
		c.LastChecked = &checked
	}
	return c
}

// Product returns the product with the given id.
func (p Planogram) Product(id string) (Product, bool) {
	if i := p.indexOf(id); i >= 0 {
		return p.Products[i], true
	}
	return Product{}, false
}

// ProductAt returns the first product whose footprint contains (x, y).
func (p Planogram) ProductAt(x, y float64) (Product, bool) {
	pt := geometry.Point{X: x, Y: y}
	for _, prod := range p.Products {
		if prod.Box().Contains(pt) {
			return prod, true
		}
	}
	return Product{}, false
}

// SlotOf returns the shelf level and column of a product origin.
func (p Planogram) SlotOf(prod Product) (level, column int) {
	if p.Metadata.SlotWidth <= 0 || p.Metadata.SlotHeight <= 0 {
		return 0, 0
	}
	return int(math.Round(prod.Y / p.Metadata.SlotHeight)), int(math.Round(prod.X / p.Metadata.SlotWidth))
}

// Snap returns the slot origin nearest to pos inside the planogram bounds.
func (p Planogram) Snap(pos geometry.Point) geometry.Point {
	return geometry.SnapToSlot(pos.X, pos.Y, p.Metadata.SlotWidth, p.Metadata.SlotHeight, p.Width, p.Height)
}

func (p Planogram) indexOf(id string) int {
	for i, prod := range p.Products {
		if prod.ID == id {
			return i
		}
	}
	return -1
}

// occupant returns the product at slot origin pos, ignoring excludeID.
func (p Planogram) occupant(pos geometry.Point, excludeID string) (Product, bool) {
	for _, prod := range p.Products {
		if prod.ID != excludeID && prod.X == pos.X && prod.Y == pos.Y {
			return prod, true
		}
	}
	return Product{}, false
}

func (p Planogram) hasGrid() bool {
	return p.Metadata.SlotWidth > 0 && p.Metadata.SlotHeight > 0
}
