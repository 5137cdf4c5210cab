// Package editor wraps layout mutations with a bounded undo/redo history and
// keeps the compliance view in step with the current layout.
//
// An Editor owns one planogram. Every successful add, move, remove or update
// pushes a snapshot onto the history; Undo and Redo walk the cursor across
// those snapshots. When an observation set has been supplied through
// Reanalyze, every state change is followed by a reconciliation pass so the
// discrepancy list never describes a stale layout.
//
// # History
//
// The cursor ranges over [-1, len(history)-1]; -1 means nothing has been
// recorded yet. The first mutation on a fresh editor records the layout it
// started from and then the result, so that mutation can be undone. A push
// after an undo discards the redo tail. At most MaxHistory snapshots are
// kept; older ones fall off the front.
//
// An Editor is not safe for concurrent use. Callers serialize edits per
// planogram.
package editor

import (
	"time"

	"github.com/ironsheep/planogram-mcp/internal/compliance"
	"github.com/ironsheep/planogram-mcp/internal/detection"
	"github.com/ironsheep/planogram-mcp/internal/geometry"
	"github.com/ironsheep/planogram-mcp/internal/planogram"
)

// MaxHistory is the number of snapshots retained.
const MaxHistory = 50

// State is the presentation view of an editor.
type State struct {
	Planogram       planogram.Planogram      `json:"planogram"`
	Discrepancies   []compliance.Discrepancy `json:"discrepancies"`
	ComplianceScore *float64                 `json:"complianceScore,omitempty"`
	Observations    []detection.Observation  `json:"observations"`
	HistoryIndex    int                      `json:"historyIndex"`
	HistoryLength   int                      `json:"historyLength"`
	CanUndo         bool                     `json:"canUndo"`
	CanRedo         bool                     `json:"canRedo"`
}

// Editor is the edit/history controller for one planogram.
type Editor struct {
	current planogram.Planogram
	history []planogram.Planogram
	cursor  int

	// observations is nil until the first Reanalyze.
	observations []detection.Observation
	checkedAt    time.Time
	result       *compliance.Result

	subscribers map[int]func(State)
	nextSub     int

	now func() time.Time
}

// New returns an editor positioned on p with an empty history.
func New(p planogram.Planogram) *Editor {
	return &Editor{
		current:     p.Clone(),
		cursor:      -1,
		subscribers: make(map[int]func(State)),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Planogram returns a copy of the current layout.
func (e *Editor) Planogram() planogram.Planogram {
	return e.current.Clone()
}

// Result returns the last reconciliation result, if any.
func (e *Editor) Result() (compliance.Result, bool) {
	if e.result == nil {
		return compliance.Result{}, false
	}
	return *e.result, true
}

// State returns the presentation view.
func (e *Editor) State() State {
	s := State{
		Planogram:     e.current.Clone(),
		Discrepancies: []compliance.Discrepancy{},
		Observations:  []detection.Observation{},
		HistoryIndex:  e.cursor,
		HistoryLength: len(e.history),
		CanUndo:       e.CanUndo(),
		CanRedo:       e.CanRedo(),
	}
	if e.current.ComplianceScore != nil {
		score := *e.current.ComplianceScore
		s.ComplianceScore = &score
	}
	if e.result != nil {
		s.Discrepancies = append(s.Discrepancies, e.result.Discrepancies...)
		s.Observations = append(s.Observations, e.result.Observations...)
	}
	return s
}

// CanUndo reports whether Undo would move the cursor.
func (e *Editor) CanUndo() bool { return e.cursor > 0 }

// CanRedo reports whether Redo would move the cursor.
func (e *Editor) CanRedo() bool { return e.cursor < len(e.history)-1 }

// Subscribe registers fn to be called with the new state after every change.
// The returned function removes the subscription.
func (e *Editor) Subscribe(fn func(State)) func() {
	id := e.nextSub
	e.nextSub++
	e.subscribers[id] = fn
	return func() { delete(e.subscribers, id) }
}

// AddProduct places a new product at the slot nearest pos and returns it.
func (e *Editor) AddProduct(draft planogram.ProductDraft, pos geometry.Point) (planogram.Product, error) {
	next, err := planogram.AddProduct(e.current, draft, pos)
	if err != nil {
		return planogram.Product{}, err
	}
	added := next.Products[len(next.Products)-1]
	e.commit(next)
	return added, nil
}

// MoveProduct moves a product to the slot nearest pos. Unknown ids are a
// no-op and record nothing.
func (e *Editor) MoveProduct(productID string, pos geometry.Point) error {
	if _, ok := e.current.Product(productID); !ok {
		return nil
	}
	next, err := planogram.MoveProduct(e.current, productID, pos)
	if err != nil {
		return err
	}
	e.commit(next)
	return nil
}

// RemoveProduct removes a product. Unknown ids are a no-op and record nothing.
func (e *Editor) RemoveProduct(productID string) error {
	if _, ok := e.current.Product(productID); !ok {
		return nil
	}
	next, err := planogram.RemoveProduct(e.current, productID)
	if err != nil {
		return err
	}
	e.commit(next)
	return nil
}

// UpdateProduct merges upd into a product. Unknown ids are a no-op and record
// nothing.
func (e *Editor) UpdateProduct(productID string, upd planogram.ProductUpdate) error {
	if _, ok := e.current.Product(productID); !ok {
		return nil
	}
	next, err := planogram.UpdateProduct(e.current, productID, upd)
	if err != nil {
		return err
	}
	e.commit(next)
	return nil
}

// Undo steps back one snapshot. It reports whether the cursor moved.
func (e *Editor) Undo() bool {
	if !e.CanUndo() {
		return false
	}
	e.cursor--
	e.restore()
	return true
}

// Redo steps forward one snapshot. It reports whether the cursor moved.
func (e *Editor) Redo() bool {
	if !e.CanRedo() {
		return false
	}
	e.cursor++
	e.restore()
	return true
}

// Reanalyze swaps in a new observation set and reconciles against it. The
// layout itself is unchanged, so no history entry is recorded.
func (e *Editor) Reanalyze(observations []detection.Observation) compliance.Result {
	e.observations = make([]detection.Observation, len(observations))
	copy(e.observations, observations)
	e.checkedAt = e.now()
	e.reconcile()
	e.notify()
	return *e.result
}

func (e *Editor) commit(next planogram.Planogram) {
	if e.cursor < 0 {
		e.history = append(e.history[:0], e.current.Clone())
		e.cursor = 0
	}

	e.current = next
	e.reconcile()

	e.history = append(e.history[:e.cursor+1], e.current.Clone())
	if len(e.history) > MaxHistory {
		e.history = append([]planogram.Planogram(nil), e.history[len(e.history)-MaxHistory:]...)
	}
	e.cursor = len(e.history) - 1
	e.notify()
}

func (e *Editor) restore() {
	e.current = e.history[e.cursor].Clone()
	e.reconcile()
	e.notify()
}

// reconcile refreshes the compliance view when observations are present.
// The check time is that of the observation set, so restoring a snapshot
// taken under the same set reproduces it exactly.
func (e *Editor) reconcile() {
	if e.observations == nil {
		return
	}
	r := compliance.Reconcile(e.current.Products, e.observations, e.current.Metadata.SlotWidth, e.current.Metadata.SlotHeight)
	e.current = compliance.Apply(e.current, r, e.checkedAt)
	e.result = &r
}

func (e *Editor) notify() {
	if len(e.subscribers) == 0 {
		return
	}
	s := e.State()
	for _, fn := range e.subscribers {
		fn(s)
	}
}
