package planogram

import (
	"encoding/json"
	"fmt"

	"github.com/ironsheep/planogram-mcp/internal/geometry"
)

// Marshal encodes p as indented JSON, the canonical export format.
func Marshal(p Planogram) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode planogram: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a planogram produced by Marshal and validates it.
//
// Unmarshal(Marshal(p)) is deep-equal to p for any valid p.
func Unmarshal(data []byte) (Planogram, error) {
	var p Planogram
	if err := json.Unmarshal(data, &p); err != nil {
		return Planogram{}, fmt.Errorf("failed to decode planogram: %w", err)
	}
	if err := Validate(p); err != nil {
		return Planogram{}, err
	}
	return p, nil
}

// Validate checks the layout invariants of a planogram loaded from outside
// the layout operations.
func Validate(p Planogram) error {
	if !p.hasGrid() {
		return invalid("metadata", "slotWidth and slotHeight must be positive")
	}
	if p.Width <= 0 || p.Height <= 0 {
		return invalid("planogram", "width and height must be positive")
	}

	ids := make(map[string]bool, len(p.Products))
	type slotKey struct{ x, y float64 }
	slots := make(map[slotKey]string, len(p.Products))

	for _, prod := range p.Products {
		if prod.ID == "" {
			return invalid("product.id", "must not be empty")
		}
		if ids[prod.ID] {
			return invalid("product.id", fmt.Sprintf("duplicate id %q", prod.ID))
		}
		ids[prod.ID] = true

		if prod.Quantity < 1 {
			return invalid("quantity", fmt.Sprintf("product %q has quantity %d", prod.ID, prod.Quantity))
		}

		origin := geometry.Point{X: prod.X, Y: prod.Y}
		if p.Snap(origin) != origin {
			return invalid("product.position", fmt.Sprintf("product %q at (%g, %g) is not a slot origin inside the planogram", prod.ID, prod.X, prod.Y))
		}

		key := slotKey{prod.X, prod.Y}
		if other, taken := slots[key]; taken {
			return &SlotOccupiedError{X: prod.X, Y: prod.Y, OccupantID: other}
		}
		slots[key] = prod.ID
	}
	return nil
}
