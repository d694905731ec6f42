package domain

import (
	"fmt"
	"sort"
	"strings"
)

// PathSeparator joins hierarchical keyword segments into one path string,
// the form expected by photo-management nested-keyword browsers.
const PathSeparator = "|"

// keywordPrefix namespaces rank keywords, e.g. "taxonomy:genus=Corvus".
const keywordPrefix = "taxonomy"

// binomialLabel is the label used for the scientific-name level of the
// keyword hierarchy, in place of the species rank.
const binomialLabel = "binomial"

// TaxonIDKeyword renders a numeric taxon ID as a flat keyword tag.
func TaxonIDKeyword(id int64) string {
	return fmt.Sprintf("taxonid:%d", id)
}

// KeywordSet holds both keyword representations derived from one or more
// rank chains. Derived and immutable; rebuilding from the same chains is
// deterministic.
type KeywordSet struct {
	// Flat holds one independently searchable keyword per populated rank
	// value, plus common name, scientific name, and taxon ID.
	Flat []string

	// Tree is the hierarchical keyword tree. Its leaf paths are the
	// values written into hierarchical-keyword tags.
	Tree *KeywordNode
}

// BuildKeywords derives both keyword representations from the given chains.
func BuildKeywords(chains []RankChain) KeywordSet {
	return KeywordSet{
		Flat: BuildFlatKeywords(chains),
		Tree: BuildKeywordTree(chains),
	}
}

// BuildFlatKeywords returns the union, across all chains, of every
// populated rank value, the scientific name, the common name (if present),
// and the taxon ID tag. Exact duplicates are removed; first-seen order
// is preserved.
func BuildFlatKeywords(chains []RankChain) []string {
	var keywords []string
	seen := make(map[string]bool)
	add := func(kw string) {
		if kw == "" || seen[kw] {
			return
		}
		seen[kw] = true
		keywords = append(keywords, kw)
	}

	for _, c := range chains {
		for _, tr := range c.Ranks {
			add(tr.Name)
		}
		add(c.ScientificName)
		add(c.CommonName)
		if c.TaxonID != 0 {
			add(TaxonIDKeyword(c.TaxonID))
		}
	}
	return keywords
}

// BuildKeywordTree builds a single-root hierarchical keyword tree from the
// given chains. Each chain contributes one root-to-leaf branch; chains
// sharing a prefix merge into the same branch. The species level is folded
// into the scientific-name level, rendered as "taxonomy:binomial=<name>".
func BuildKeywordTree(chains []RankChain) *KeywordNode {
	root := NewKeywordTree()
	for _, c := range chains {
		root.AddPath(chainLabels(c))
	}
	return root
}

// chainLabels renders one chain as its ordered hierarchy labels.
func chainLabels(c RankChain) []string {
	ranks := make([]TaxonRank, 0, len(c.Ranks))
	for _, tr := range c.Ranks {
		if tr.Level.Canonical() && tr.Level != RankSpecies {
			ranks = append(ranks, tr)
		}
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].Level.Index() < ranks[j].Level.Index()
	})

	labels := make([]string, 0, len(ranks)+1)
	for _, tr := range ranks {
		labels = append(labels, rankLabel(string(tr.Level), tr.Name))
	}

	binomial := c.ScientificName
	if binomial == "" {
		binomial = c.RankValue(RankSpecies)
	}
	// Skip the binomial level when it repeats the narrowest rank value,
	// e.g. a genus-level identification.
	if binomial != "" && (len(ranks) == 0 || ranks[len(ranks)-1].Name != binomial) {
		labels = append(labels, rankLabel(binomialLabel, binomial))
	}
	return labels
}

func rankLabel(rank, value string) string {
	return fmt.Sprintf("%s:%s=%s", keywordPrefix, rank, value)
}

// KeywordNode is one node of a hierarchical keyword tree. The root is a
// sentinel with an empty label; the path from root to a leaf is one full
// rank chain. Children keep insertion order, which is already canonical
// rank order, so no sorting is applied.
type KeywordNode struct {
	Label    string
	Children []*KeywordNode
}

// NewKeywordTree returns an empty tree: the root sentinel only.
func NewKeywordTree() *KeywordNode {
	return &KeywordNode{}
}

// Empty reports whether the tree holds no keywords.
func (n *KeywordNode) Empty() bool {
	return len(n.Children) == 0
}

// child returns the child with the given label, creating it if absent.
func (n *KeywordNode) child(label string) *KeywordNode {
	for _, c := range n.Children {
		if c.Label == label {
			return c
		}
	}
	c := &KeywordNode{Label: label}
	n.Children = append(n.Children, c)
	return c
}

// AddPath inserts one root-to-leaf branch, merging shared prefixes.
func (n *KeywordNode) AddPath(labels []string) {
	node := n
	for _, label := range labels {
		node = node.child(label)
	}
}

// LeafPaths renders every leaf as a single pipe-joined path string.
// These are the actual values written into hierarchical-keyword tags:
// most photo-management software expects one flattened path string per
// leaf rather than a nested structure.
func (n *KeywordNode) LeafPaths() []string {
	var paths []string
	var walk func(node *KeywordNode, prefix string)
	walk = func(node *KeywordNode, prefix string) {
		path := node.Label
		if prefix != "" {
			path = prefix + PathSeparator + node.Label
		}
		if len(node.Children) == 0 {
			paths = append(paths, path)
			return
		}
		for _, c := range node.Children {
			walk(c, path)
		}
	}
	for _, c := range n.Children {
		walk(c, "")
	}
	return paths
}

// RenderIndented renders the full tree as depth-first indented text for
// human-readable display, one node per line.
func (n *KeywordNode) RenderIndented() string {
	var b strings.Builder
	var walk func(node *KeywordNode, depth int)
	walk = func(node *KeywordNode, depth int) {
		b.WriteString(strings.Repeat(" ", depth))
		b.WriteString(node.Label)
		b.WriteString("\n")
		for _, c := range node.Children {
			walk(c, depth+1)
		}
	}
	for _, c := range n.Children {
		walk(c, 0)
	}
	return b.String()
}

// KeywordView organizes keywords found in existing metadata into
// categories relevant for display: key-value pairs, hierarchical paths,
// and plain keywords.
type KeywordView struct {
	// All holds every distinct keyword, first-seen order.
	All []string

	// Pairs holds keywords of the form "key=value".
	Pairs map[string]string

	// HierPaths holds pipe-delimited hierarchical keywords.
	HierPaths []string

	// Plain holds keywords that are neither pairs nor hierarchical, sorted.
	Plain []string
}

// ParseKeywords categorizes a combined keyword list read back from file
// metadata. Quotes added by other applications are stripped.
func ParseKeywords(keywords []string) KeywordView {
	v := KeywordView{Pairs: make(map[string]string)}
	seen := make(map[string]bool)

	for _, kw := range keywords {
		kw = strings.TrimSpace(strings.ReplaceAll(kw, `"`, ""))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		v.All = append(v.All, kw)

		switch {
		case strings.Contains(kw, PathSeparator):
			v.HierPaths = append(v.HierPaths, kw)
		case strings.Count(kw, "=") == 1 && !strings.HasSuffix(kw, "="):
			k, val, _ := strings.Cut(kw, "=")
			v.Pairs[k] = val
		default:
			v.Plain = append(v.Plain, kw)
		}
	}
	sort.Strings(v.Plain)
	return v
}

// Tree rebuilds a keyword tree from the hierarchical path strings.
func (v KeywordView) Tree() *KeywordNode {
	root := NewKeywordTree()
	for _, p := range v.HierPaths {
		root.AddPath(strings.Split(p, PathSeparator))
	}
	return root
}
