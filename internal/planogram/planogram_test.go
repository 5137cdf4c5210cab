package planogram

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ironsheep/planogram-mcp/internal/geometry"
)

// fixedClock pins now() for the duration of a test.
func fixedClock(t *testing.T, ts time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return ts }
	t.Cleanup(func() { now = prev })
}

func newTestPlanogram(t *testing.T) Planogram {
	t.Helper()
	p, err := Initialize(DefaultLevels, DefaultSlotsPerLevel, DefaultSlotWidth, DefaultSlotHeight)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return p
}

func mustAdd(t *testing.T, p Planogram, sku string, x, y float64) Planogram {
	t.Helper()
	next, err := AddProduct(p, ProductDraft{SKU: sku, Name: sku}, geometry.Point{X: x, Y: y})
	if err != nil {
		t.Fatalf("AddProduct(%s) failed: %v", sku, err)
	}
	return next
}

func TestInitialize(t *testing.T) {
	p := newTestPlanogram(t)

	if p.Width != 720 || p.Height != 400 {
		t.Errorf("size: got %vx%v, want 720x400", p.Width, p.Height)
	}
	if len(p.Shelves) != 5 {
		t.Fatalf("shelves: got %d, want 5", len(p.Shelves))
	}
	for i, s := range p.Shelves {
		if s.Level != i {
			t.Errorf("shelf %d level: got %d", i, s.Level)
		}
		if s.Y != float64(i)*80 {
			t.Errorf("shelf %d y: got %v, want %v", i, s.Y, float64(i)*80)
		}
		if s.SlotCount != 12 {
			t.Errorf("shelf %d slots: got %d, want 12", i, s.SlotCount)
		}
	}
	if len(p.Products) != 0 {
		t.Errorf("products: got %d, want 0", len(p.Products))
	}
	if p.Name != DefaultName {
		t.Errorf("name: got %q, want %q", p.Name, DefaultName)
	}
}

func TestInitialize_Invalid(t *testing.T) {
	tests := []struct {
		name          string
		levels, slots int
		w, h          float64
	}{
		{"zero levels", 0, 12, 60, 80},
		{"zero slots", 5, 0, 60, 80},
		{"zero width", 5, 12, 0, 80},
		{"negative height", 5, 12, 60, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Initialize(tt.levels, tt.slots, tt.w, tt.h)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error: got %v, want *ValidationError", err)
			}
		})
	}
}

func TestAddProduct(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fixedClock(t, ts)

	p := newTestPlanogram(t)
	next, err := AddProduct(p, ProductDraft{SKU: "A1", Name: "Cola"}, geometry.Point{X: 65, Y: 90})
	if err != nil {
		t.Fatalf("AddProduct failed: %v", err)
	}

	if len(p.Products) != 0 {
		t.Error("AddProduct modified its input")
	}
	if len(next.Products) != 1 {
		t.Fatalf("products: got %d, want 1", len(next.Products))
	}

	prod := next.Products[0]
	if prod.X != 60 || prod.Y != 80 {
		t.Errorf("position: got (%v,%v), want (60,80)", prod.X, prod.Y)
	}
	if prod.Width != 60 || prod.Height != 80 {
		t.Errorf("size: got %vx%v, want 60x80", prod.Width, prod.Height)
	}
	if prod.Quantity != 1 {
		t.Errorf("quantity: got %d, want 1", prod.Quantity)
	}
	if prod.ID == "" {
		t.Error("id should be assigned")
	}
	if !next.LastModified.Equal(ts) {
		t.Errorf("lastModified: got %v, want %v", next.LastModified, ts)
	}
}

func TestAddProduct_UniqueIDs(t *testing.T) {
	p := newTestPlanogram(t)
	p = mustAdd(t, p, "A", 0, 0)
	p = mustAdd(t, p, "B", 60, 0)

	if p.Products[0].ID == p.Products[1].ID {
		t.Errorf("ids should differ, both %q", p.Products[0].ID)
	}
}

func TestAddProduct_SlotOccupied(t *testing.T) {
	p := mustAdd(t, newTestPlanogram(t), "A", 0, 0)

	next, err := AddProduct(p, ProductDraft{SKU: "B"}, geometry.Point{X: 20, Y: 10})
	var occ *SlotOccupiedError
	if !errors.As(err, &occ) {
		t.Fatalf("error: got %v, want *SlotOccupiedError", err)
	}
	if occ.OccupantID != p.Products[0].ID {
		t.Errorf("occupant: got %q, want %q", occ.OccupantID, p.Products[0].ID)
	}
	if !reflect.DeepEqual(next, p) {
		t.Error("failed add should return the planogram unchanged")
	}
}

func TestAddProduct_Validation(t *testing.T) {
	p := newTestPlanogram(t)

	tests := []struct {
		name  string
		draft ProductDraft
	}{
		{"no sku or name", ProductDraft{Quantity: 1}},
		{"blank sku", ProductDraft{SKU: "  "}},
		{"negative quantity", ProductDraft{SKU: "A", Quantity: -2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AddProduct(p, tt.draft, geometry.Point{})
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("error: got %v, want *ValidationError", err)
			}
		})
	}
}

func TestRemoveProduct(t *testing.T) {
	p := mustAdd(t, newTestPlanogram(t), "A", 0, 0)
	p = mustAdd(t, p, "B", 60, 0)

	next, err := RemoveProduct(p, p.Products[0].ID)
	if err != nil {
		t.Fatalf("RemoveProduct failed: %v", err)
	}
	if len(next.Products) != 1 || next.Products[0].SKU != "B" {
		t.Errorf("products after remove: got %+v", next.Products)
	}
	if len(p.Products) != 2 {
		t.Error("RemoveProduct modified its input")
	}
}

func TestRemoveProduct_UnknownIDIsNoop(t *testing.T) {
	p := mustAdd(t, newTestPlanogram(t), "A", 0, 0)

	next, err := RemoveProduct(p, "nope")
	if err != nil {
		t.Fatalf("RemoveProduct failed: %v", err)
	}
	if !reflect.DeepEqual(next, p) {
		t.Error("unknown id should leave planogram unchanged")
	}
}

func TestMoveProduct(t *testing.T) {
	p := mustAdd(t, newTestPlanogram(t), "A", 0, 0)
	id := p.Products[0].ID

	next, err := MoveProduct(p, id, geometry.Point{X: 170, Y: 150})
	if err != nil {
		t.Fatalf("MoveProduct failed: %v", err)
	}
	got, _ := next.Product(id)
	if got.X != 180 || got.Y != 160 {
		t.Errorf("position: got (%v,%v), want (180,160)", got.X, got.Y)
	}
}

func TestMoveProduct_OwnSlot(t *testing.T) {
	p := mustAdd(t, newTestPlanogram(t), "A", 60, 80)
	id := p.Products[0].ID

	if _, err := MoveProduct(p, id, geometry.Point{X: 61, Y: 79}); err != nil {
		t.Errorf("moving onto own slot: got %v, want nil", err)
	}
}

func TestMoveProduct_Occupied(t *testing.T) {
	p := mustAdd(t, newTestPlanogram(t), "A", 0, 0)
	p = mustAdd(t, p, "B", 60, 0)

	_, err := MoveProduct(p, p.Products[0].ID, geometry.Point{X: 60, Y: 0})
	var occ *SlotOccupiedError
	if !errors.As(err, &occ) {
		t.Fatalf("error: got %v, want *SlotOccupiedError", err)
	}
}

func TestUpdateProduct(t *testing.T) {
	p := mustAdd(t, newTestPlanogram(t), "A", 0, 0)
	id := p.Products[0].ID
	qty := 4
	name := "Diet Cola"

	next, err := UpdateProduct(p, id, ProductUpdate{Quantity: &qty, Name: &name})
	if err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}
	got, _ := next.Product(id)
	if got.Quantity != 4 || got.Name != "Diet Cola" || got.SKU != "A" {
		t.Errorf("product: got %+v", got)
	}
}

func TestUpdateProduct_InvalidQuantity(t *testing.T) {
	p := mustAdd(t, newTestPlanogram(t), "A", 0, 0)
	zero := 0

	_, err := UpdateProduct(p, p.Products[0].ID, ProductUpdate{Quantity: &zero})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("error: got %v, want *ValidationError", err)
	}
}

func TestUpdateProduct_UnknownIDIsNoop(t *testing.T) {
	p := mustAdd(t, newTestPlanogram(t), "A", 0, 0)
	qty := 3

	next, err := UpdateProduct(p, "missing", ProductUpdate{Quantity: &qty})
	if err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}
	if !reflect.DeepEqual(next, p) {
		t.Error("unknown id should leave planogram unchanged")
	}
}

func TestSlotExclusivity(t *testing.T) {
	p := newTestPlanogram(t)

	// Drop points that collide after snapping.
	drops := []geometry.Point{
		{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 59, Y: 0}, {X: 60, Y: 0},
		{X: 700, Y: 390}, {X: 1000, Y: 1000}, {X: -5, Y: -5}, {X: 120, Y: 80},
	}
	for i, d := range drops {
		if next, err := AddProduct(p, ProductDraft{SKU: "S"}, d); err == nil {
			p = next
		} else if i == 0 {
			t.Fatalf("first add failed: %v", err)
		}
	}
	for _, prod := range p.Products {
		if next, err := MoveProduct(p, prod.ID, geometry.Point{X: 0, Y: 0}); err == nil {
			p = next
		}
	}

	seen := make(map[geometry.Point]bool)
	for _, prod := range p.Products {
		key := geometry.Point{X: prod.X, Y: prod.Y}
		if seen[key] {
			t.Fatalf("two products share slot %+v", key)
		}
		seen[key] = true
	}
}

func TestProductAt(t *testing.T) {
	p := mustAdd(t, newTestPlanogram(t), "A", 60, 80)

	got, ok := p.ProductAt(90, 100)
	if !ok || got.SKU != "A" {
		t.Errorf("ProductAt(90,100): got %+v, %v", got, ok)
	}
	if _, ok := p.ProductAt(10, 10); ok {
		t.Error("ProductAt(10,10) should find nothing")
	}
}

func TestSlotOf(t *testing.T) {
	p := mustAdd(t, newTestPlanogram(t), "A", 180, 160)

	level, column := p.SlotOf(p.Products[0])
	if level != 2 || column != 3 {
		t.Errorf("SlotOf: got (%d,%d), want (2,3)", level, column)
	}
}

func TestClone_IsDeep(t *testing.T) {
	p := mustAdd(t, newTestPlanogram(t), "A", 0, 0)
	score := 50.0
	p.ComplianceScore = &score

	c := p.Clone()
	c.Products[0].Quantity = 9
	c.Shelves[0].Height = 1
	*c.ComplianceScore = 99

	if p.Products[0].Quantity != 1 || p.Shelves[0].Height != 80 || *p.ComplianceScore != 50 {
		t.Error("Clone shares state with the original")
	}
}
