package planogram

import (
	"strings"

	"github.com/google/uuid"

	"github.com/ironsheep/planogram-mcp/internal/geometry"
)

// ProductDraft holds the caller-supplied fields of a product being added.
type ProductDraft struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// ProductUpdate is a partial product update. Nil fields are left unchanged.
// Position is changed through MoveProduct only.
type ProductUpdate struct {
	SKU      *string `json:"sku,omitempty"`
	Name     *string `json:"name,omitempty"`
	Quantity *int    `json:"quantity,omitempty"`
}

func (d ProductDraft) validate() error {
	if strings.TrimSpace(d.SKU) == "" && strings.TrimSpace(d.Name) == "" {
		return invalid("product", "sku or name is required")
	}
	if d.Quantity < 0 {
		return invalid("quantity", "must not be negative")
	}
	return nil
}

func (u ProductUpdate) validate() error {
	if u.Quantity != nil && *u.Quantity < 1 {
		return invalid("quantity", "must be at least 1")
	}
	return nil
}

// AddProduct snaps pos to the nearest slot and places a new product there.
//
// The product gets a fresh id, the slot's width and height, and a quantity
// of 1 when the draft leaves it at zero.
//
// Returns *ValidationError for a malformed draft and *SlotOccupiedError when
// the snapped slot already holds a product.
func AddProduct(p Planogram, draft ProductDraft, pos geometry.Point) (Planogram, error) {
	if err := draft.validate(); err != nil {
		return p, err
	}
	if !p.hasGrid() {
		return p, invalid("planogram", "slot grid is not initialized")
	}

	slot := p.Snap(pos)
	if occ, ok := p.occupant(slot, ""); ok {
		return p, &SlotOccupiedError{X: slot.X, Y: slot.Y, OccupantID: occ.ID}
	}

	quantity := draft.Quantity
	if quantity == 0 {
		quantity = 1
	}

	next := p.Clone()
	next.Products = append(next.Products, Product{
		ID:       uuid.NewString(),
		SKU:      strings.TrimSpace(draft.SKU),
		Name:     strings.TrimSpace(draft.Name),
		X:        slot.X,
		Y:        slot.Y,
		Width:    p.Metadata.SlotWidth,
		Height:   p.Metadata.SlotHeight,
		Quantity: quantity,
	})
	next.LastModified = now()
	return next, nil
}

// RemoveProduct removes the product with the given id. An unknown id returns
// p unchanged.
func RemoveProduct(p Planogram, productID string) (Planogram, error) {
	i := p.indexOf(productID)
	if i < 0 {
		return p, nil
	}

	next := p.Clone()
	next.Products = append(next.Products[:i], next.Products[i+1:]...)
	next.LastModified = now()
	return next, nil
}

// MoveProduct snaps pos to the nearest slot and moves the product there.
//
// Moving a product onto its own slot succeeds. An unknown id returns p
// unchanged. Returns *SlotOccupiedError when the destination holds a
// different product.
func MoveProduct(p Planogram, productID string, pos geometry.Point) (Planogram, error) {
	i := p.indexOf(productID)
	if i < 0 {
		return p, nil
	}
	if !p.hasGrid() {
		return p, invalid("planogram", "slot grid is not initialized")
	}

	slot := p.Snap(pos)
	if occ, ok := p.occupant(slot, productID); ok {
		return p, &SlotOccupiedError{X: slot.X, Y: slot.Y, OccupantID: occ.ID}
	}

	next := p.Clone()
	next.Products[i].X = slot.X
	next.Products[i].Y = slot.Y
	next.LastModified = now()
	return next, nil
}

// UpdateProduct merges the non-nil fields of upd into the product. An unknown
// id returns p unchanged.
func UpdateProduct(p Planogram, productID string, upd ProductUpdate) (Planogram, error) {
	if err := upd.validate(); err != nil {
		return p, err
	}
	i := p.indexOf(productID)
	if i < 0 {
		return p, nil
	}

	next := p.Clone()
	prod := &next.Products[i]
	if upd.SKU != nil {
		prod.SKU = strings.TrimSpace(*upd.SKU)
	}
	if upd.Name != nil {
		prod.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Quantity != nil {
		prod.Quantity = *upd.Quantity
	}
	if prod.SKU == "" && prod.Name == "" {
		return p, invalid("product", "sku or name is required")
	}

	next.LastModified = now()
	return next, nil
}
