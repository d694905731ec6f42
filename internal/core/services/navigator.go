package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/taxatag/taxatag-cli/internal/core/domain"
	"github.com/taxatag/taxatag-cli/internal/core/ports/driven"
	"github.com/taxatag/taxatag-cli/internal/core/ports/driving"
	"github.com/taxatag/taxatag-cli/internal/logger"
)

// Ensure NavigatorService implements the interface.
var _ driving.Navigator = (*NavigatorService)(nil)

// NavigatorService answers taxonomy tree queries over a TaxonomyStore.
// All operations are pure lookups; nothing is cached between calls.
type NavigatorService struct {
	store driven.TaxonomyStore
}

// NewNavigatorService creates a new navigator over the given store.
func NewNavigatorService(store driven.TaxonomyStore) *NavigatorService {
	return &NavigatorService{store: store}
}

// GetTaxon resolves a taxon by numeric ID or exact name.
func (s *NavigatorService) GetTaxon(ctx context.Context, query string) (*domain.TaxonRow, error) {
	if id, err := strconv.ParseInt(query, 10, 64); err == nil {
		taxon, err := s.store.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("taxon %d: %w", id, err)
		}
		return taxon, nil
	}

	rows, err := s.store.GetByName(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("taxon %q: %w", query, err)
	}
	switch len(rows) {
	case 0:
		return nil, fmt.Errorf("taxon %q: %w", query, domain.ErrNotFound)
	case 1:
		return &rows[0], nil
	default:
		// A name shared by several taxa cannot be resolved silently;
		// the caller must retry with a numeric ID.
		return nil, fmt.Errorf("taxon %q matches %d taxa: %w", query, len(rows), domain.ErrAmbiguousMatch)
	}
}

// Parent returns the parent taxon.
func (s *NavigatorService) Parent(ctx context.Context, taxon *domain.TaxonRow) (*domain.TaxonRow, error) {
	if taxon.Root() {
		return nil, fmt.Errorf("taxon %d has no parent: %w", taxon.ID, domain.ErrNotFound)
	}
	parent, err := s.store.GetByID(ctx, *taxon.ParentID)
	if err != nil {
		return nil, fmt.Errorf("parent of taxon %d: %w", taxon.ID, err)
	}
	return parent, nil
}

// Children returns the immediate children of the taxon.
func (s *NavigatorService) Children(ctx context.Context, taxon *domain.TaxonRow) ([]domain.TaxonRow, error) {
	return s.store.Children(ctx, taxon.ID)
}

// Siblings returns all taxa with the same parent, including the taxon
// itself. Siblings are not necessarily at the same rank.
func (s *NavigatorService) Siblings(ctx context.Context, taxon *domain.TaxonRow) ([]domain.TaxonRow, error) {
	parent, err := s.Parent(ctx, taxon)
	if err != nil {
		return nil, err
	}
	return s.store.Children(ctx, parent.ID)
}

// CountDescendants counts the taxon's full subtree including itself.
// A visited set guards against malformed ancestry containing cycles.
func (s *NavigatorService) CountDescendants(ctx context.Context, taxon *domain.TaxonRow) (int, error) {
	visited := make(map[int64]bool)
	stack := []int64{taxon.ID}
	count := 0

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[id] {
			return 0, fmt.Errorf("taxon %d revisited while counting descendants of %d: %w",
				id, taxon.ID, domain.ErrCycleDetected)
		}
		visited[id] = true
		count++

		children, err := s.store.Children(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("children of taxon %d: %w", id, err)
		}
		for _, c := range children {
			stack = append(stack, c.ID)
		}
	}
	logger.Debug("Taxon %d: %d descendants (including self)", taxon.ID, count)
	return count, nil
}

// Ancestry walks parent links up to the root and returns the taxon's
// rank chain from broadest to narrowest. Only canonical ranks populate
// the chain; intermediate ranks are skipped but still traversed.
func (s *NavigatorService) Ancestry(ctx context.Context, taxon *domain.TaxonRow) (domain.RankChain, error) {
	lineage := []domain.TaxonRow{*taxon}
	visited := map[int64]bool{taxon.ID: true}

	current := taxon
	for !current.Root() {
		parent, err := s.store.GetByID(ctx, *current.ParentID)
		if err != nil {
			return domain.RankChain{}, fmt.Errorf("ancestry of taxon %d: %w", taxon.ID, err)
		}
		if visited[parent.ID] {
			return domain.RankChain{}, fmt.Errorf("taxon %d revisited in ancestry of %d: %w",
				parent.ID, taxon.ID, domain.ErrCycleDetected)
		}
		visited[parent.ID] = true
		lineage = append(lineage, *parent)
		current = parent
	}

	chain := domain.RankChain{
		ScientificName: taxon.Name,
		CommonName:     taxon.CommonName,
		TaxonID:        taxon.ID,
	}
	// lineage is narrowest-first; the chain wants broadest-first.
	for i := len(lineage) - 1; i >= 0; i-- {
		row := lineage[i]
		if row.Rank.Canonical() {
			chain.Ranks = append(chain.Ranks, domain.TaxonRank{Level: row.Rank, Name: row.Name})
		}
	}
	logger.Debug("Taxon %d: %d ancestors, %d canonical ranks", taxon.ID, len(lineage)-1, len(chain.Ranks))
	return chain, nil
}
