package domain

// Rank identifies one level of a taxonomic classification.
type Rank string

// The canonical ranks used for keyword generation.
const (
	RankKingdom Rank = "kingdom"
	RankPhylum  Rank = "phylum"
	RankClass   Rank = "class"
	RankOrder   Rank = "order"
	RankFamily  Rank = "family"
	RankGenus   Rank = "genus"
	RankSpecies Rank = "species"
)

// CanonicalRanks is the fixed rank order used for keywords, broadest first.
// Intermediate ranks (subfamily, tribe, superclass, ...) are intentionally
// omitted; taxa at those ranks contribute nothing to the keyword hierarchy.
var CanonicalRanks = []Rank{
	RankKingdom,
	RankPhylum,
	RankClass,
	RankOrder,
	RankFamily,
	RankGenus,
	RankSpecies,
}

// Index returns the position of r in the canonical rank order,
// or -1 for a non-canonical rank.
func (r Rank) Index() int {
	for i, cr := range CanonicalRanks {
		if r == cr {
			return i
		}
	}
	return -1
}

// Canonical reports whether r is one of the canonical keyword ranks.
func (r Rank) Canonical() bool {
	return r.Index() >= 0
}

// TaxonRow is one row of the taxonomy store.
type TaxonRow struct {
	// ID is the unique taxon identifier.
	ID int64

	// ParentID references the parent taxon's ID. Nil for a root taxon.
	ParentID *int64

	// Name is the scientific name.
	Name string

	// Rank is the taxonomic rank, e.g. "genus". Not restricted to the
	// canonical set; the store may carry intermediate ranks.
	Rank Rank

	// CommonName is the preferred vernacular name, if the store has one.
	CommonName string
}

// Root reports whether the taxon has no parent.
func (t TaxonRow) Root() bool {
	return t.ParentID == nil
}

// TaxonRank is one populated level of a rank chain.
// Immutable once produced by the navigator.
type TaxonRank struct {
	Level Rank
	Name  string
}

// RankChain is an ordered taxonomic classification from broadest to
// narrowest for one identification. Ranks appear in canonical order,
// no rank repeats, and the chain may be partial (missing intermediate
// ranks) while preserving order.
type RankChain struct {
	// Ranks holds the populated canonical ranks, broadest first.
	Ranks []TaxonRank

	// ScientificName is the full scientific name of the identified taxon.
	ScientificName string

	// CommonName is the preferred vernacular name, if known.
	CommonName string

	// TaxonID is the numeric taxon identifier, 0 if unknown.
	TaxonID int64
}

// Empty reports whether no taxonomy was resolved for this chain.
// Callers must treat an empty chain as "no taxonomy available",
// not as an error.
func (c RankChain) Empty() bool {
	return len(c.Ranks) == 0 && c.ScientificName == "" && c.TaxonID == 0
}

// RankValue returns the name recorded for the given rank, or "".
func (c RankChain) RankValue(r Rank) string {
	for _, tr := range c.Ranks {
		if tr.Level == r {
			return tr.Name
		}
	}
	return ""
}
