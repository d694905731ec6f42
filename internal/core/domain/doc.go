// Package domain defines the core business entities for Taxatag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - TaxonRow: One row of the taxonomy store
//   - RankChain: An ordered taxonomic classification for one identification
//   - KeywordSet / KeywordNode: Flat and hierarchical keyword representations
//   - Namespace / TagTable / MetadataDocument: Image metadata tag structures
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
