package editor

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ironsheep/planogram-mcp/internal/compliance"
	"github.com/ironsheep/planogram-mcp/internal/detection"
	"github.com/ironsheep/planogram-mcp/internal/geometry"
	"github.com/ironsheep/planogram-mcp/internal/planogram"
)

func newTestEditor(t *testing.T) *Editor {
	t.Helper()
	p, err := planogram.Initialize(planogram.DefaultLevels, planogram.DefaultSlotsPerLevel,
		planogram.DefaultSlotWidth, planogram.DefaultSlotHeight)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	e := New(p)
	e.now = func() time.Time { return time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC) }
	return e
}

func mustAdd(t *testing.T, e *Editor, sku string, x, y float64) planogram.Product {
	t.Helper()
	prod, err := e.AddProduct(planogram.ProductDraft{SKU: sku, Name: sku}, geometry.Point{X: x, Y: y})
	if err != nil {
		t.Fatalf("AddProduct(%s) failed: %v", sku, err)
	}
	return prod
}

func TestNew(t *testing.T) {
	e := newTestEditor(t)

	s := e.State()
	if s.HistoryIndex != -1 || s.HistoryLength != 0 {
		t.Errorf("history: got %d/%d, want -1/0", s.HistoryIndex, s.HistoryLength)
	}
	if s.CanUndo || s.CanRedo {
		t.Error("fresh editor should not undo or redo")
	}
	if e.Undo() || e.Redo() {
		t.Error("Undo/Redo on a fresh editor should be no-ops")
	}
}

func TestEditor_FirstMutationRecordsBaseline(t *testing.T) {
	e := newTestEditor(t)
	before := e.Planogram()

	mustAdd(t, e, "A1", 0, 0)

	if e.cursor != 1 || len(e.history) != 2 {
		t.Fatalf("history: got cursor %d len %d, want 1 and 2", e.cursor, len(e.history))
	}
	if !e.Undo() {
		t.Fatal("Undo after first mutation should succeed")
	}
	if !reflect.DeepEqual(e.Planogram(), before) {
		t.Error("Undo did not restore the fresh planogram")
	}
}

func TestEditor_UndoRedoRoundTrip(t *testing.T) {
	e := newTestEditor(t)
	a := mustAdd(t, e, "A1", 0, 0)
	mustAdd(t, e, "B2", 60, 0)

	steps := []struct {
		name string
		do   func() error
	}{
		{"move", func() error { return e.MoveProduct(a.ID, geometry.Point{X: 130, Y: 170}) }},
		{"update", func() error {
			qty := 4
			return e.UpdateProduct(a.ID, planogram.ProductUpdate{Quantity: &qty})
		}},
		{"add", func() error {
			_, err := e.AddProduct(planogram.ProductDraft{Name: "Chips"}, geometry.Point{X: 300, Y: 240})
			return err
		}},
		{"remove", func() error { return e.RemoveProduct(a.ID) }},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			before := e.Planogram()
			if err := step.do(); err != nil {
				t.Fatalf("%s failed: %v", step.name, err)
			}
			after := e.Planogram()

			if !e.Undo() {
				t.Fatal("Undo returned false")
			}
			if !reflect.DeepEqual(e.Planogram(), before) {
				t.Errorf("Undo did not restore the pre-%s state", step.name)
			}

			if !e.Redo() {
				t.Fatal("Redo returned false")
			}
			if !reflect.DeepEqual(e.Planogram(), after) {
				t.Errorf("Redo did not restore the post-%s state", step.name)
			}
		})
	}
}

func TestEditor_FailedMutationRecordsNothing(t *testing.T) {
	e := newTestEditor(t)
	mustAdd(t, e, "A1", 0, 0)
	cursor, length := e.cursor, len(e.history)
	before := e.Planogram()

	_, err := e.AddProduct(planogram.ProductDraft{SKU: "B2"}, geometry.Point{X: 10, Y: 10})
	var occupied *planogram.SlotOccupiedError
	if !errors.As(err, &occupied) {
		t.Fatalf("error: got %v, want *SlotOccupiedError", err)
	}

	_, err = e.AddProduct(planogram.ProductDraft{}, geometry.Point{X: 120, Y: 0})
	var invalid *planogram.ValidationError
	if !errors.As(err, &invalid) {
		t.Fatalf("error: got %v, want *ValidationError", err)
	}

	if e.cursor != cursor || len(e.history) != length {
		t.Errorf("history moved: got %d/%d, want %d/%d", e.cursor, len(e.history), cursor, length)
	}
	if !reflect.DeepEqual(e.Planogram(), before) {
		t.Error("failed mutation changed the planogram")
	}
}

func TestEditor_UnknownIDIsNoOp(t *testing.T) {
	e := newTestEditor(t)
	mustAdd(t, e, "A1", 0, 0)
	length := len(e.history)

	qty := 3
	if err := e.RemoveProduct("nope"); err != nil {
		t.Errorf("RemoveProduct: got %v, want nil", err)
	}
	if err := e.MoveProduct("nope", geometry.Point{X: 60, Y: 0}); err != nil {
		t.Errorf("MoveProduct: got %v, want nil", err)
	}
	if err := e.UpdateProduct("nope", planogram.ProductUpdate{Quantity: &qty}); err != nil {
		t.Errorf("UpdateProduct: got %v, want nil", err)
	}

	if len(e.history) != length {
		t.Errorf("history length: got %d, want %d", len(e.history), length)
	}
}

func TestEditor_PushTruncatesRedoTail(t *testing.T) {
	e := newTestEditor(t)
	mustAdd(t, e, "A1", 0, 0)
	mustAdd(t, e, "B2", 60, 0)
	mustAdd(t, e, "C3", 120, 0)

	e.Undo()
	e.Undo()
	if !e.CanRedo() {
		t.Fatal("expected redo to be available")
	}

	mustAdd(t, e, "D4", 180, 0)
	if e.CanRedo() {
		t.Error("push after undo should discard the redo tail")
	}
	if got := len(e.Planogram().Products); got != 2 {
		t.Errorf("products: got %d, want 2", got)
	}
}

func TestEditor_HistoryBound(t *testing.T) {
	e := newTestEditor(t)

	const adds = 55
	for i := 0; i < adds; i++ {
		x := float64(i%planogram.DefaultSlotsPerLevel) * planogram.DefaultSlotWidth
		y := float64(i/planogram.DefaultSlotsPerLevel) * planogram.DefaultSlotHeight
		mustAdd(t, e, "SKU", x, y)

		if len(e.history) > MaxHistory {
			t.Fatalf("after %d adds history has %d entries", i+1, len(e.history))
		}
		if e.cursor > MaxHistory-1 {
			t.Fatalf("after %d adds cursor is %d", i+1, e.cursor)
		}
	}

	undos := 0
	for e.Undo() {
		undos++
	}
	if undos != MaxHistory-1 {
		t.Errorf("undos: got %d, want %d", undos, MaxHistory-1)
	}
	// The baseline and the first five adds fell off the front.
	if got := len(e.Planogram().Products); got != adds-(MaxHistory-1) {
		t.Errorf("oldest snapshot products: got %d, want %d", got, adds-(MaxHistory-1))
	}
}

func TestEditor_SlotExclusivity(t *testing.T) {
	e := newTestEditor(t)
	a := mustAdd(t, e, "A1", 0, 0)
	b := mustAdd(t, e, "B2", 60, 0)

	moves := []geometry.Point{{X: 55, Y: 5}, {X: 0, Y: 0}, {X: 240, Y: 80}, {X: 29, Y: 39}}
	for _, pos := range moves {
		_ = e.MoveProduct(a.ID, pos)
		_ = e.MoveProduct(b.ID, pos)

		seen := make(map[geometry.Point]string)
		for _, prod := range e.Planogram().Products {
			key := geometry.Point{X: prod.X, Y: prod.Y}
			if other, ok := seen[key]; ok {
				t.Fatalf("products %s and %s share slot %+v", other, prod.ID, key)
			}
			seen[key] = prod.ID
		}
	}
}

func TestEditor_ReanalyzeReconciles(t *testing.T) {
	e := newTestEditor(t)
	a := mustAdd(t, e, "A1", 0, 0)
	length := len(e.history)

	obs := []detection.Observation{{
		Detection:  detection.Detection{SKU: "A1", Quantity: 1, Confidence: 0.9},
		PlanogramX: 0,
		PlanogramY: 0,
	}}
	r := e.Reanalyze(obs)

	if r.Score != 100 {
		t.Errorf("Score: got %v, want 100", r.Score)
	}
	if len(e.history) != length {
		t.Error("Reanalyze should not record history")
	}

	s := e.State()
	if s.ComplianceScore == nil || *s.ComplianceScore != 100 {
		t.Errorf("state score: got %v, want 100", s.ComplianceScore)
	}
	if s.Planogram.LastChecked == nil {
		t.Error("LastChecked not set")
	}

	// Moving the product away turns the match into a wrong_position.
	if err := e.MoveProduct(a.ID, geometry.Point{X: 240, Y: 160}); err != nil {
		t.Fatalf("MoveProduct failed: %v", err)
	}
	s = e.State()
	if len(s.Discrepancies) != 1 || s.Discrepancies[0].Type != compliance.WrongPosition {
		t.Errorf("discrepancies after move: got %+v", s.Discrepancies)
	}
	if *s.ComplianceScore != 0 {
		t.Errorf("score after move: got %v, want 0", *s.ComplianceScore)
	}

	e.Undo()
	s = e.State()
	if len(s.Discrepancies) != 0 || *s.ComplianceScore != 100 {
		t.Errorf("after undo: got %+v score %v", s.Discrepancies, *s.ComplianceScore)
	}
}

func TestEditor_Subscribe(t *testing.T) {
	e := newTestEditor(t)

	var states []State
	unsubscribe := e.Subscribe(func(s State) { states = append(states, s) })

	mustAdd(t, e, "A1", 0, 0)
	e.Undo()
	e.Redo()
	e.Reanalyze(nil)

	if len(states) != 4 {
		t.Fatalf("notifications: got %d, want 4", len(states))
	}
	if states[1].HistoryIndex != 0 || !states[1].CanRedo {
		t.Errorf("state after undo: got index %d canRedo %v", states[1].HistoryIndex, states[1].CanRedo)
	}

	unsubscribe()
	mustAdd(t, e, "B2", 60, 0)
	if len(states) != 4 {
		t.Errorf("notified after unsubscribe: got %d states", len(states))
	}
}

func TestEditor_NoOpUndoDoesNotNotify(t *testing.T) {
	e := newTestEditor(t)
	calls := 0
	e.Subscribe(func(State) { calls++ })

	e.Undo()
	e.Redo()
	if calls != 0 {
		t.Errorf("calls: got %d, want 0", calls)
	}
}
