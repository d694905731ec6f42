package driving

import (
	"context"

	"github.com/taxatag/taxatag-cli/internal/core/domain"
)

// Navigator answers pure read-only queries over the taxonomy store.
type Navigator interface {
	// GetTaxon resolves a taxon by numeric ID or by exact name.
	// Fails with domain.ErrNotFound if nothing matches and with
	// domain.ErrAmbiguousMatch if a name matches more than one taxon.
	GetTaxon(ctx context.Context, query string) (*domain.TaxonRow, error)

	// Parent returns the parent taxon. Fails with domain.ErrNotFound
	// for a root taxon.
	Parent(ctx context.Context, taxon *domain.TaxonRow) (*domain.TaxonRow, error)

	// Children returns the immediate children. Empty for a leaf.
	Children(ctx context.Context, taxon *domain.TaxonRow) ([]domain.TaxonRow, error)

	// Siblings returns all taxa sharing the taxon's parent, including
	// the taxon itself.
	Siblings(ctx context.Context, taxon *domain.TaxonRow) ([]domain.TaxonRow, error)

	// CountDescendants counts the full descendant subtree including the
	// taxon itself (minimum 1). Fails with domain.ErrCycleDetected on
	// malformed ancestry instead of recursing unboundedly.
	CountDescendants(ctx context.Context, taxon *domain.TaxonRow) (int, error)

	// Ancestry builds the taxon's rank chain from kingdom down to the
	// taxon, cycle-guarded.
	Ancestry(ctx context.Context, taxon *domain.TaxonRow) (domain.RankChain, error)
}
