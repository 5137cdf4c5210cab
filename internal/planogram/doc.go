// Package planogram implements the layout model: the expected shelf layout a
// store is checked against.
//
// A Planogram is a grid of shelf levels, each divided into fixed-size slots.
// Products occupy slots; the slot grid is fixed when the planogram is
// initialized and the products are edited through AddProduct, MoveProduct,
// RemoveProduct and UpdateProduct.
//
// # Invariants
//
// Every operation preserves:
//   - No two products share a slot origin (X, Y)
//   - Every product origin is a slot origin inside the planogram bounds
//   - Every product has quantity >= 1 and a unique, never reused id
//
// # Value Semantics
//
// Operations take a Planogram by value and return a new Planogram. The input
// is never modified; slices are copied before they are changed. Callers that
// need a snapshot of a planogram they intend to keep mutating should use Clone.
//
// # Errors
//
// Failures are reported with typed errors that callers match with errors.As:
//   - *ValidationError: malformed input, nothing changed
//   - *SlotOccupiedError: the target slot holds a different product
//   - *NotFoundError: an unknown id where the caller needs a hard failure
//
// Remove, move and update on an unknown product id are deliberately lenient
// and return the planogram unchanged.
package planogram
