package services

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/taxatag/taxatag-cli/internal/core/domain"
	"github.com/taxatag/taxatag-cli/internal/core/ports/driven"
	"github.com/taxatag/taxatag-cli/internal/core/ports/driving"
	"github.com/taxatag/taxatag-cli/internal/logger"
)

// Ensure TaggerService implements the interface.
var _ driving.Tagger = (*TaggerService)(nil)

// TaggerService turns taxonomy data into metadata tags and merges them
// into image files. All operations are synchronous; each call fully owns
// its target file via a scoped open/close. The service holds no state
// across calls and gives no guarantee for concurrent writers against the
// same path.
type TaggerService struct {
	codec driven.MetadataCodec
	nav   driving.Navigator
}

// NewTaggerService creates a new tagger using the given file codec and
// taxonomy navigator.
func NewTaggerService(codec driven.MetadataCodec, nav driving.Navigator) *TaggerService {
	return &TaggerService{codec: codec, nav: nav}
}

// KeywordsForTaxon resolves a taxon and builds its keyword set without
// touching any file.
func (s *TaggerService) KeywordsForTaxon(
	ctx context.Context, query string, opts domain.TagOptions,
) (domain.KeywordSet, error) {
	taxon, err := s.nav.GetTaxon(ctx, query)
	if err != nil {
		return domain.KeywordSet{}, err
	}

	chain, err := s.nav.Ancestry(ctx, taxon)
	if err != nil {
		return domain.KeywordSet{}, err
	}
	if !opts.CommonNames {
		chain.CommonName = ""
	}

	ks := domain.BuildKeywords([]domain.RankChain{chain})
	logger.Debug("Taxon %d: %d flat keywords, %d hierarchy paths",
		taxon.ID, len(ks.Flat), len(ks.Tree.LeafPaths()))
	return ks, nil
}

// WriteKeywords builds the keyword tag pairs for every namespace and
// delegates to WriteTags.
func (s *TaggerService) WriteKeywords(path string, flat, hier []string) error {
	return s.WriteTags(path, domain.KeywordTags(flat, hier))
}

// WriteTags merges the supplied tag values into the target file.
//
// Namespaces are written in the fixed order XMP, EXIF, IPTC. When the
// target itself is a sidecar, only XMP applies. After the file commits,
// an adjacent sidecar (if one exists) receives the XMP subset through a
// recursive call. There is no rollback: a failure partway leaves the
// already-written namespaces committed, and the returned
// *domain.NamespaceWriteError names them.
func (s *TaggerService) WriteTags(path string, tags domain.TagTable) error {
	split, err := domain.SplitByNamespace(tags)
	if err != nil {
		return err
	}

	file, err := s.codec.Open(path)
	if err != nil {
		return err
	}

	order := domain.WriteOrder
	if isSidecarPath(path) {
		// EXIF and IPTC do not apply to a sidecar.
		order = []domain.Namespace{domain.NamespaceXmp}
	}

	var committed []domain.Namespace
	for _, ns := range order {
		subset := split[ns]
		if len(subset) == 0 {
			continue
		}
		if err := file.Write(ns, subset); err != nil {
			// Close commits whatever already merged; earlier
			// namespaces stay durable, per contract.
			_ = file.Close()
			return &domain.NamespaceWriteError{
				Path:      path,
				Failed:    ns,
				Committed: committed,
				Err:       err,
			}
		}
		logger.Debug("Merged %d %s tags into %s", len(subset), ns, path)
		committed = append(committed, ns)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("committing %s: %w", path, err)
	}

	// Sidecar propagation: recheck existence on every write, and pass
	// only the XMP subset down.
	if !isSidecarPath(path) {
		if sidecar, ok := s.codec.SidecarPath(path); ok && len(split[domain.NamespaceXmp]) > 0 {
			logger.Debug("Propagating XMP tags to sidecar %s", sidecar)
			return s.WriteTags(sidecar, split[domain.NamespaceXmp])
		}
	}
	return nil
}

// ReadCombined reads all three namespace tables and synthesizes the
// combined view, plus keyword extraction, for presentation.
func (s *TaggerService) ReadCombined(path string) (*domain.MetadataDocument, error) {
	file, err := s.codec.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	tables := make(map[domain.Namespace]domain.TagTable, 3)
	for _, ns := range domain.ReadOrder {
		table, err := file.Read(ns)
		if err != nil {
			return nil, fmt.Errorf("reading %s metadata from %s: %w", ns, path, err)
		}
		tables[ns] = table
	}

	return domain.NewMetadataDocument(
		path,
		tables[domain.NamespaceExif],
		tables[domain.NamespaceIptc],
		tables[domain.NamespaceXmp],
	), nil
}

// TagImages resolves a taxon and writes its keywords into every image
// reachable from paths. Individual file failures are recorded in the
// results; the batch continues.
func (s *TaggerService) TagImages(
	ctx context.Context, paths []string, query string, opts domain.TagOptions,
) ([]domain.TagResult, error) {
	logger.Section("Image Tagging")

	ks, err := s.KeywordsForTaxon(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	var hier []string
	if opts.Hierarchical {
		hier = ks.Tree.LeafPaths()
	}
	tags := filterNamespaces(domain.KeywordTags(ks.Flat, hier), opts)

	images, err := collectImages(paths, opts.Recursive)
	if err != nil {
		return nil, err
	}

	results := make([]domain.TagResult, 0, len(images))
	failed := 0
	for _, img := range images {
		res := domain.TagResult{Path: img}
		if opts.CreateSidecars {
			res.Err = s.codec.CreateSidecar(img)
		}
		if res.Err == nil {
			res.Err = s.WriteTags(img, tags)
		}
		if res.Err != nil {
			failed++
		}
		results = append(results, res)
	}
	logger.Info("Batch complete: %d images, %d errors", len(images), failed)
	return results, nil
}

// filterNamespaces drops tags of namespaces disabled in the options.
func filterNamespaces(tags domain.TagTable, opts domain.TagOptions) domain.TagTable {
	enabled := map[domain.Namespace]bool{
		domain.NamespaceExif: opts.Exif,
		domain.NamespaceIptc: opts.Iptc,
		domain.NamespaceXmp:  opts.Xmp,
	}
	out := make(domain.TagTable, len(tags))
	for name, values := range tags {
		ns, err := domain.ClassifyTag(name)
		if err != nil {
			continue
		}
		if enabled[ns] {
			out[name] = values
		}
	}
	return out
}

// taggableExtensions are the file types the batch walker picks up.
// Explicit file arguments bypass this filter and are validated by the
// codec instead.
var taggableExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
}

// collectImages expands the given paths into taggable image files.
// Directories are scanned one level deep, or fully when recursive.
func collectImages(paths []string, recursive bool) ([]string, error) {
	var images []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrFileAccess)
		}
		if !info.IsDir() {
			images = append(images, path)
			continue
		}

		if recursive {
			err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && taggableExtensions[strings.ToLower(filepath.Ext(p))] {
					images = append(images, p)
				}
				return nil
			})
		} else {
			var entries []fs.DirEntry
			entries, err = os.ReadDir(path)
			for _, e := range entries {
				if !e.IsDir() && taggableExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
					images = append(images, filepath.Join(path, e.Name()))
				}
			}
		}
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", path, err)
		}
	}
	return images, nil
}

// isSidecarPath reports whether path names an XMP sidecar rather than an
// embedding-capable image.
func isSidecarPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xmp")
}
