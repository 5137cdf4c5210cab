package compliance

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ironsheep/planogram-mcp/internal/detection"
	"github.com/ironsheep/planogram-mcp/internal/geometry"
	"github.com/ironsheep/planogram-mcp/internal/planogram"
)

// Type classifies a discrepancy.
type Type string

const (
	Missing          Type = "missing"
	WrongPosition    Type = "wrong_position"
	QuantityMismatch Type = "quantity_mismatch"
	Unexpected       Type = "unexpected"
)

// Severity ranks how urgently a discrepancy needs attention.
type Severity string

const (
	Low    Severity = "low"
	Medium Severity = "medium"
	High   Severity = "high"
)

// Discrepancy is one deviation between the expected and observed shelf.
//
// Quantity fields are set for quantity_mismatch, position fields for
// wrong_position. For unexpected, Product describes the observation.
type Discrepancy struct {
	Type     Type              `json:"type"`
	Product  planogram.Product `json:"product"`
	Severity Severity          `json:"severity"`

	Detected *int `json:"detected,omitempty"`
	Expected *int `json:"expected,omitempty"`

	DetectedPosition *geometry.Point `json:"detectedPosition,omitempty"`
	ExpectedPosition *geometry.Point `json:"expectedPosition,omitempty"`
}

// Result is the outcome of one reconciliation pass.
type Result struct {
	Discrepancies []Discrepancy `json:"discrepancies"`

	// Score is the percentage of expected products found at their slot,
	// rounded to one decimal. 100 when nothing is expected.
	Score float64 `json:"complianceScore"`

	ExpectedCount int `json:"expectedCount"`
	MatchedCount  int `json:"matchedCount"`

	// Products and Observations are copies of the inputs with their
	// Matched flags set by this pass.
	Products     []planogram.Product     `json:"products"`
	Observations []detection.Observation `json:"observations"`
}

// Reconcile matches expected products against observations.
//
// # Algorithm
//
// For each expected product, in order:
//
//  1. Find the first observation whose identity matches (same non-empty SKU,
//     or label equal to the product name) and whose planogram position is
//     within one slot on both axes (|dx| < slotWidth and |dy| < slotHeight).
//     On a hit both sides are matched; a different quantity adds a
//     quantity_mismatch (medium).
//  2. Otherwise, if any observation matches by identity, add wrong_position
//     (medium) with both positions and mark that observation matched.
//  3. Otherwise add missing (high).
//
// Finally every unmatched observation adds unexpected (low).
//
// Candidates are taken in observation order, not by confidence or distance,
// and an observation already matched by an earlier product stays eligible.
func Reconcile(products []planogram.Product, observations []detection.Observation, slotWidth, slotHeight float64) Result {
	prods := make([]planogram.Product, len(products))
	copy(prods, products)
	obs := make([]detection.Observation, len(observations))
	copy(obs, observations)

	for i := range prods {
		prods[i].Matched = false
	}
	for i := range obs {
		obs[i].Matched = false
	}

	discrepancies := make([]Discrepancy, 0)
	matched := 0

	for i := range prods {
		prod := &prods[i]

		if j := findAtSlot(prod, obs, slotWidth, slotHeight); j >= 0 {
			obs[j].Matched = true
			prod.Matched = true
			matched++

			if obs[j].Quantity != prod.Quantity {
				detected, expected := obs[j].Quantity, prod.Quantity
				discrepancies = append(discrepancies, Discrepancy{
					Type:     QuantityMismatch,
					Product:  *prod,
					Severity: Medium,
					Detected: &detected,
					Expected: &expected,
				})
			}
			continue
		}

		if j := findAnywhere(prod, obs); j >= 0 {
			obs[j].Matched = true
			discrepancies = append(discrepancies, Discrepancy{
				Type:             WrongPosition,
				Product:          *prod,
				Severity:         Medium,
				DetectedPosition: &geometry.Point{X: obs[j].PlanogramX, Y: obs[j].PlanogramY},
				ExpectedPosition: &geometry.Point{X: prod.X, Y: prod.Y},
			})
			continue
		}

		discrepancies = append(discrepancies, Discrepancy{
			Type:     Missing,
			Product:  *prod,
			Severity: High,
		})
	}

	for _, o := range obs {
		if o.Matched {
			continue
		}
		discrepancies = append(discrepancies, Discrepancy{
			Type: Unexpected,
			Product: planogram.Product{
				SKU:      o.SKU,
				Name:     o.Label,
				X:        o.PlanogramX,
				Y:        o.PlanogramY,
				Width:    o.Width,
				Height:   o.Height,
				Quantity: o.Quantity,
			},
			Severity: Low,
		})
	}

	return Result{
		Discrepancies: discrepancies,
		Score:         Score(matched, len(prods)),
		ExpectedCount: len(prods),
		MatchedCount:  matched,
		Products:      prods,
		Observations:  obs,
	}
}

// Score returns matched/expected as a percentage rounded to one decimal.
func Score(matched, expected int) float64 {
	if expected <= 0 {
		return 100
	}
	pct := decimal.NewFromInt(int64(matched)).
		Div(decimal.NewFromInt(int64(expected))).
		Mul(decimal.NewFromInt(100)).
		Round(1)
	f, _ := pct.Float64()
	return f
}

// Apply records a reconciliation result on the planogram: product matched
// flags, compliance score and check time. Products are paired with the
// result by id.
func Apply(p planogram.Planogram, r Result, checkedAt time.Time) planogram.Planogram {
	next := p.Clone()

	matched := make(map[string]bool, len(r.Products))
	for _, prod := range r.Products {
		matched[prod.ID] = prod.Matched
	}
	for i := range next.Products {
		next.Products[i].Matched = matched[next.Products[i].ID]
	}

	score := r.Score
	next.ComplianceScore = &score
	next.LastChecked = &checkedAt
	return next
}

func sameProduct(prod *planogram.Product, o detection.Observation) bool {
	if prod.SKU != "" && o.SKU == prod.SKU {
		return true
	}
	return prod.Name != "" && o.Label == prod.Name
}

func findAtSlot(prod *planogram.Product, obs []detection.Observation, slotWidth, slotHeight float64) int {
	for j, o := range obs {
		if !sameProduct(prod, o) {
			continue
		}
		if math.Abs(o.PlanogramX-prod.X) < slotWidth && math.Abs(o.PlanogramY-prod.Y) < slotHeight {
			return j
		}
	}
	return -1
}

func findAnywhere(prod *planogram.Product, obs []detection.Observation) int {
	for j, o := range obs {
		if sameProduct(prod, o) {
			return j
		}
	}
	return -1
}
