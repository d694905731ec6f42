// Package memory provides an in-memory taxonomy store for tests and
// ad-hoc use.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/taxatag/taxatag-cli/internal/core/domain"
	"github.com/taxatag/taxatag-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.TaxonomyStore = (*Store)(nil)

// Store is an in-memory implementation of driven.TaxonomyStore.
type Store struct {
	mu   sync.RWMutex
	taxa map[int64]domain.TaxonRow
}

// NewStore creates a new in-memory taxonomy store.
func NewStore() *Store {
	return &Store{
		taxa: make(map[int64]domain.TaxonRow),
	}
}

// Save stores or updates a taxon row.
func (s *Store) Save(_ context.Context, taxon domain.TaxonRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taxa[taxon.ID] = taxon
	return nil
}

// GetByID retrieves the taxon with the given ID.
func (s *Store) GetByID(_ context.Context, id int64) (*domain.TaxonRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	taxon, ok := s.taxa[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &taxon, nil
}

// GetByName retrieves every taxon with the given name, ordered by ID.
func (s *Store) GetByName(_ context.Context, name string) ([]domain.TaxonRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := []domain.TaxonRow{}
	for _, taxon := range s.taxa {
		if taxon.Name == name {
			result = append(result, taxon)
		}
	}
	sortByID(result)
	return result, nil
}

// Children retrieves every taxon whose parent is id, ordered by ID.
func (s *Store) Children(_ context.Context, id int64) ([]domain.TaxonRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := []domain.TaxonRow{}
	for _, taxon := range s.taxa {
		if taxon.ParentID != nil && *taxon.ParentID == id {
			result = append(result, taxon)
		}
	}
	sortByID(result)
	return result, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

func sortByID(taxa []domain.TaxonRow) {
	sort.Slice(taxa, func(i, j int) bool { return taxa[i].ID < taxa[j].ID })
}
