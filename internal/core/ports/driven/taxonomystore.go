package driven

import (
	"context"

	"github.com/taxatag/taxatag-cli/internal/core/domain"
)

// TaxonomyStore provides read access to an externally supplied taxonomy
// table with columns tax_id (unique), parent_tax_id (nullable), name and
// rank. The engine never writes through this port; loading the table is
// an external concern.
//
// No ordering guarantee is assumed beyond "stable for the duration of
// one query".
type TaxonomyStore interface {
	// GetByID retrieves the taxon with the given ID.
	// Returns domain.ErrNotFound if no row matches.
	GetByID(ctx context.Context, id int64) (*domain.TaxonRow, error)

	// GetByName retrieves every taxon with the given name, in store
	// order. An empty slice means no match; disambiguation of multiple
	// matches is the caller's concern.
	GetByName(ctx context.Context, name string) ([]domain.TaxonRow, error)

	// Children retrieves every taxon whose parent_tax_id equals id.
	// An empty slice is valid (leaf taxon).
	Children(ctx context.Context, id int64) ([]domain.TaxonRow, error)

	// Close releases the underlying store.
	Close() error
}
