// Package store persists planograms.
//
// Two Repository implementations share one contract: FileRepository keeps
// one JSON document per planogram in a directory, PostgresRepository keeps
// them in a planograms table. Both validate a planogram before writing it and
// both report unknown ids with *planogram.NotFoundError.
//
// Failures of the underlying storage are wrapped and returned once. Nothing
// here retries.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/planogram-mcp/internal/planogram"
)

// ErrExists is returned by Create when the id is already stored.
var ErrExists = errors.New("planogram already exists")

// Summary is the listing view of a stored planogram.
type Summary struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	StoreID         string    `json:"storeId,omitempty"`
	ShelfID         string    `json:"shelfId,omitempty"`
	ProductCount    int       `json:"productCount"`
	ComplianceScore *float64  `json:"complianceScore,omitempty"`
	LastModified    time.Time `json:"lastModified"`
}

// Repository stores planograms by id.
type Repository interface {
	// Create stores a new planogram, assigning an id when p.ID is empty.
	Create(ctx context.Context, p *planogram.Planogram) error

	// Get returns the planogram with the given id.
	Get(ctx context.Context, id string) (*planogram.Planogram, error)

	// Update replaces a stored planogram.
	Update(ctx context.Context, p *planogram.Planogram) error

	// List returns summaries, most recently modified first. A non-empty
	// storeID restricts the listing to that store.
	List(ctx context.Context, storeID string) ([]*Summary, error)

	// Delete removes a planogram.
	Delete(ctx context.Context, id string) error
}

// IsNotFound reports whether err is a *planogram.NotFoundError.
func IsNotFound(err error) bool {
	var nf *planogram.NotFoundError
	return errors.As(err, &nf)
}

func notFound(id string) error {
	return &planogram.NotFoundError{Kind: "planogram", ID: id}
}

func summarize(p *planogram.Planogram) *Summary {
	s := &Summary{
		ID:           p.ID,
		Name:         p.Name,
		StoreID:      p.StoreID,
		ShelfID:      p.ShelfID,
		ProductCount: len(p.Products),
		LastModified: p.LastModified,
	}
	if p.ComplianceScore != nil {
		score := *p.ComplianceScore
		s.ComplianceScore = &score
	}
	return s
}

// prepareCreate assigns an id if needed and validates p.
func prepareCreate(p *planogram.Planogram) error {
	if strings.TrimSpace(p.ID) == "" {
		p.ID = uuid.NewString()
	}
	return planogram.Validate(*p)
}
