package driving

import (
	"context"

	"github.com/taxatag/taxatag-cli/internal/core/domain"
)

// Tagger generates taxonomy keywords and merges them, along with
// arbitrary other tag values, into image metadata.
type Tagger interface {
	// KeywordsForTaxon resolves a taxon and builds its keyword set
	// without touching any file.
	KeywordsForTaxon(ctx context.Context, query string, opts domain.TagOptions) (domain.KeywordSet, error)

	// WriteKeywords writes the flat and hierarchical keyword lists into
	// every namespace's keyword tags of the target file.
	WriteKeywords(path string, flat, hier []string) error

	// WriteTags merges arbitrary namespace-qualified tag values into the
	// target file and, when present, its sidecar (XMP subset only).
	// A partial failure is reported as *domain.NamespaceWriteError.
	WriteTags(path string, tags domain.TagTable) error

	// ReadCombined reads back the unified metadata snapshot.
	ReadCombined(path string) (*domain.MetadataDocument, error)

	// TagImages resolves a taxon and tags every image reachable from
	// paths. Individual file failures are recorded per result; the
	// batch continues.
	TagImages(ctx context.Context, paths []string, query string, opts domain.TagOptions) ([]domain.TagResult, error)
}
