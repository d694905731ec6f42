package domain

import (
	"fmt"
	"strings"
)

// Namespace identifies one of the three embedded metadata tag systems.
type Namespace string

const (
	NamespaceExif Namespace = "Exif"
	NamespaceIptc Namespace = "Iptc"
	NamespaceXmp  Namespace = "Xmp"
)

// WriteOrder is the fixed order of namespace writes within one write
// operation: XMP first, then EXIF, then IPTC.
var WriteOrder = []Namespace{NamespaceXmp, NamespaceExif, NamespaceIptc}

// ReadOrder is the fixed read order used to build the combined view.
// On a tag-name collision the later namespace wins.
var ReadOrder = []Namespace{NamespaceExif, NamespaceIptc, NamespaceXmp}

// ClassifyTag determines the namespace of a qualified tag name by its
// fixed prefix ("Exif.", "Iptc.", "Xmp."). Returns ErrUnknownNamespace
// for anything else.
func ClassifyTag(name string) (Namespace, error) {
	for _, ns := range []Namespace{NamespaceExif, NamespaceIptc, NamespaceXmp} {
		if strings.HasPrefix(name, string(ns)+".") {
			return ns, nil
		}
	}
	return "", fmt.Errorf("tag %q: %w", name, ErrUnknownNamespace)
}

// TagTable maps qualified tag names to their ordered values.
// Multi-valued tags preserve insertion order.
type TagTable map[string][]string

// Clone returns a deep copy of the table.
func (t TagTable) Clone() TagTable {
	out := make(TagTable, len(t))
	for k, v := range t {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Merge applies updates onto t: a new value replaces the old value for
// the same key, all other keys are untouched. Never a full replace.
func (t TagTable) Merge(updates TagTable) {
	for k, v := range updates {
		t[k] = append([]string(nil), v...)
	}
}

// SplitByNamespace partitions a tag table by namespace prefix.
// Fails with ErrUnknownNamespace on the first unclassifiable tag name.
func SplitByNamespace(tags TagTable) (map[Namespace]TagTable, error) {
	out := map[Namespace]TagTable{
		NamespaceExif: {},
		NamespaceIptc: {},
		NamespaceXmp:  {},
	}
	for name, values := range tags {
		ns, err := ClassifyTag(name)
		if err != nil {
			return nil, err
		}
		out[ns][name] = append([]string(nil), values...)
	}
	return out, nil
}

// Fixed mapping from keyword concepts to the physical tag names of each
// namespace. All three tags of a concept always carry the same values.
var (
	// FlatKeywordTags carry the flat keyword list.
	FlatKeywordTags = []string{
		"Exif.Image.XPSubject",
		"Iptc.Application2.Subject",
		"Xmp.dc.subject",
	}

	// HierKeywordTags carry the hierarchical keyword paths.
	HierKeywordTags = []string{
		"Exif.Image.XPKeywords",
		"Iptc.Application2.Keywords",
		"Xmp.lr.hierarchicalSubject",
	}
)

// KeywordTags builds the tag table that writes the given keyword lists
// redundantly into every namespace. Empty lists contribute no tags.
func KeywordTags(flat, hier []string) TagTable {
	tags := make(TagTable)
	if len(flat) > 0 {
		for _, tag := range FlatKeywordTags {
			tags[tag] = append([]string(nil), flat...)
		}
	}
	if len(hier) > 0 {
		for _, tag := range HierKeywordTags {
			tags[tag] = append([]string(nil), hier...)
		}
	}
	return tags
}

// MetadataDocument is a unified snapshot of one file's metadata: each
// namespace's own table plus the combined union. No document instance
// persists beyond one read; every read goes back to disk.
type MetadataDocument struct {
	// Path is the file the snapshot was read from.
	Path string

	Exif TagTable
	Iptc TagTable
	Xmp  TagTable

	// Combined is the union of all three tables keyed by tag name.
	// Namespaces are merged in ReadOrder, so for a tag name present in
	// more than one namespace the later namespace wins here while each
	// per-namespace table remains intact.
	Combined TagTable
}

// NewMetadataDocument assembles a snapshot from per-namespace tables.
func NewMetadataDocument(path string, exif, iptc, xmp TagTable) *MetadataDocument {
	d := &MetadataDocument{
		Path:     path,
		Exif:     exif,
		Iptc:     iptc,
		Xmp:      xmp,
		Combined: make(TagTable),
	}
	for _, ns := range ReadOrder {
		d.Combined.Merge(d.Table(ns))
	}
	return d
}

// Table returns the tag table for one namespace.
func (d *MetadataDocument) Table(ns Namespace) TagTable {
	switch ns {
	case NamespaceExif:
		return d.Exif
	case NamespaceIptc:
		return d.Iptc
	case NamespaceXmp:
		return d.Xmp
	}
	return nil
}

// FlatKeywords returns the union of the flat-keyword tag values across
// all namespaces, first-seen order, deduplicated.
func (d *MetadataDocument) FlatKeywords() []string {
	return d.collect(FlatKeywordTags)
}

// HierKeywords returns the union of the hierarchical-keyword tag values
// across all namespaces, first-seen order, deduplicated.
func (d *MetadataDocument) HierKeywords() []string {
	return d.collect(HierKeywordTags)
}

// Keywords categorizes every keyword found in the snapshot.
func (d *MetadataDocument) Keywords() KeywordView {
	return ParseKeywords(append(d.FlatKeywords(), d.HierKeywords()...))
}

// KeywordTreeText renders the hierarchical keywords as indented text.
func (d *MetadataDocument) KeywordTreeText() string {
	return d.Keywords().Tree().RenderIndented()
}

func (d *MetadataDocument) collect(tagNames []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, ns := range ReadOrder {
		table := d.Table(ns)
		for _, name := range tagNames {
			for _, v := range table[name] {
				if v == "" || seen[v] {
					continue
				}
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}
