package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/taxatag/taxatag-cli/internal/core/domain"
	"github.com/taxatag/taxatag-cli/internal/core/ports/driven"
	"github.com/taxatag/taxatag-cli/internal/core/ports/driving"
)

// mockNavigator serves a single canned taxon.
type mockNavigator struct {
	taxon *domain.TaxonRow
	chain domain.RankChain
	err   error
}

var _ driving.Navigator = (*mockNavigator)(nil)

func (m *mockNavigator) GetTaxon(_ context.Context, _ string) (*domain.TaxonRow, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.taxon, nil
}

func (m *mockNavigator) Parent(_ context.Context, _ *domain.TaxonRow) (*domain.TaxonRow, error) {
	return nil, domain.ErrNotFound
}

func (m *mockNavigator) Children(_ context.Context, _ *domain.TaxonRow) ([]domain.TaxonRow, error) {
	return nil, nil
}

func (m *mockNavigator) Siblings(_ context.Context, _ *domain.TaxonRow) ([]domain.TaxonRow, error) {
	return []domain.TaxonRow{*m.taxon}, nil
}

func (m *mockNavigator) CountDescendants(_ context.Context, _ *domain.TaxonRow) (int, error) {
	return 1, nil
}

func (m *mockNavigator) Ancestry(_ context.Context, _ *domain.TaxonRow) (domain.RankChain, error) {
	return m.chain, nil
}

// mockTagger records calls and returns canned results.
type mockTagger struct {
	keywords   domain.KeywordSet
	doc        *domain.MetadataDocument
	tagged     []string
	lastQuery  string
	lastOpts   domain.TagOptions
	writeCalls int
	err        error
}

var _ driving.Tagger = (*mockTagger)(nil)

func (m *mockTagger) KeywordsForTaxon(_ context.Context, query string, opts domain.TagOptions) (domain.KeywordSet, error) {
	m.lastQuery, m.lastOpts = query, opts
	return m.keywords, m.err
}

func (m *mockTagger) WriteKeywords(path string, _, _ []string) error {
	m.writeCalls++
	return m.err
}

func (m *mockTagger) WriteTags(path string, _ domain.TagTable) error {
	m.writeCalls++
	return m.err
}

func (m *mockTagger) ReadCombined(path string) (*domain.MetadataDocument, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.doc, nil
}

func (m *mockTagger) TagImages(_ context.Context, paths []string, query string, opts domain.TagOptions) ([]domain.TagResult, error) {
	m.lastQuery, m.lastOpts = query, opts
	if m.err != nil {
		return nil, m.err
	}
	var results []domain.TagResult
	for _, p := range paths {
		m.tagged = append(m.tagged, p)
		results = append(results, domain.TagResult{Path: p})
	}
	return results, nil
}

// memSettingsStore keeps settings in memory.
type memSettingsStore struct {
	settings domain.Settings
}

var _ driven.SettingsStore = (*memSettingsStore)(nil)

func (s *memSettingsStore) Load() (domain.Settings, error) { return s.settings, nil }
func (s *memSettingsStore) Save(settings domain.Settings) error {
	s.settings = settings
	return nil
}

func ravenTaxon() *domain.TaxonRow {
	parent := int64(7)
	return &domain.TaxonRow{
		ID: 12727, ParentID: &parent, Name: "Corvus corax",
		Rank: domain.RankSpecies, CommonName: "Common Raven",
	}
}

func ravenKeywords() domain.KeywordSet {
	tree := domain.NewKeywordTree()
	tree.AddPath([]string{"taxonomy:genus=Corvus", "taxonomy:binomial=Corvus corax"})
	return domain.KeywordSet{
		Flat: []string{"Corvus", "Corvus corax", "Common Raven", "taxonid:12727"},
		Tree: tree,
	}
}

// setupTestServices installs mock services and returns a cleanup that
// restores the previous wiring.
func setupTestServices() func() {
	oldNav, oldTagger, oldSettings := navigatorService, taggerService, settingsStore

	nav := &mockNavigator{
		taxon: ravenTaxon(),
		chain: domain.RankChain{
			Ranks: []domain.TaxonRank{
				{Level: domain.RankGenus, Name: "Corvus"},
				{Level: domain.RankSpecies, Name: "Corvus corax"},
			},
			ScientificName: "Corvus corax",
			CommonName:     "Common Raven",
			TaxonID:        12727,
		},
	}
	navigatorService = nav
	taggerService = &mockTagger{
		keywords: ravenKeywords(),
		doc: domain.NewMetadataDocument("photo.jpg",
			domain.TagTable{},
			domain.TagTable{},
			domain.TagTable{"Xmp.dc.subject": {"Corvus"}},
		),
	}
	settingsStore = &memSettingsStore{settings: domain.DefaultSettings()}

	return func() {
		navigatorService, taggerService, settingsStore = oldNav, oldTagger, oldSettings
	}
}

// resetFlags restores every flag in the command tree to its default so
// one Execute cannot leak flag state (values or the Changed bit) into
// the next.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
