// Package compliance reconciles an expected planogram against the products
// observed on a shelf photo.
//
// # Reconciliation
//
// Reconcile pairs every expected product with at most one observation and
// classifies what does not line up:
//
//   - missing: no observation of the product anywhere (high)
//   - wrong_position: observed, but not within one slot of where it belongs
//     (medium)
//   - quantity_mismatch: observed at its slot with a different facing count
//     (medium)
//   - unexpected: an observation no expected product claimed (low)
//
// An observation is the same product when its SKU equals the product's
// non-empty SKU, or its label equals the product's non-empty name. Blank
// identities never match.
//
// # Scoring
//
// The compliance score is the share of expected products found at their
// slot, as a percentage rounded to one decimal. Quantity mismatches still
// count as found. An empty planogram scores 100.
//
// Reconcile is pure. Apply copies a result onto a planogram.
package compliance
