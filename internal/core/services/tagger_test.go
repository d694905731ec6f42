package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxatag/taxatag-cli/internal/core/domain"
	"github.com/taxatag/taxatag-cli/internal/core/ports/driven"
)

// fakeCodec records opens, writes and sidecar creations against
// in-memory tag tables keyed by path.
type fakeCodec struct {
	files        map[string]*fakeFile
	sidecars     map[string]bool
	created      []string
	failWriteNS  domain.Namespace
	failWriteErr error
}

func newFakeCodec() *fakeCodec {
	return &fakeCodec{
		files:    make(map[string]*fakeFile),
		sidecars: make(map[string]bool),
	}
}

func (c *fakeCodec) Open(path string) (driven.MetadataFile, error) {
	f, ok := c.files[path]
	if !ok {
		f = &fakeFile{
			codec: c,
			path:  path,
			tables: map[domain.Namespace]domain.TagTable{
				domain.NamespaceExif: {},
				domain.NamespaceIptc: {},
				domain.NamespaceXmp:  {},
			},
		}
		c.files[path] = f
	}
	f.opens++
	return f, nil
}

func (c *fakeCodec) SidecarPath(path string) (string, bool) {
	sidecar := strings.TrimSuffix(path, filepath.Ext(path)) + ".xmp"
	return sidecar, c.sidecars[sidecar]
}

func (c *fakeCodec) CreateSidecar(path string) error {
	sidecar, _ := c.SidecarPath(path)
	c.sidecars[sidecar] = true
	c.created = append(c.created, sidecar)
	return nil
}

type fakeFile struct {
	codec      *fakeCodec
	path       string
	tables     map[domain.Namespace]domain.TagTable
	writeOrder []domain.Namespace
	opens      int
	closes     int
}

func (f *fakeFile) Read(ns domain.Namespace) (domain.TagTable, error) {
	return f.tables[ns].Clone(), nil
}

func (f *fakeFile) Write(ns domain.Namespace, tags domain.TagTable) error {
	if f.codec.failWriteNS == ns && f.codec.failWriteErr != nil {
		return f.codec.failWriteErr
	}
	f.tables[ns].Merge(tags)
	f.writeOrder = append(f.writeOrder, ns)
	return nil
}

func (f *fakeFile) Close() error {
	f.closes++
	return nil
}

// fakeNavigator returns a canned chain for any query.
type fakeNavigator struct {
	NavigatorService // panic on anything not overridden
	chain            domain.RankChain
	err              error
}

func (n *fakeNavigator) GetTaxon(_ context.Context, query string) (*domain.TaxonRow, error) {
	if n.err != nil {
		return nil, n.err
	}
	return &domain.TaxonRow{ID: n.chain.TaxonID, Name: n.chain.ScientificName}, nil
}

func (n *fakeNavigator) Ancestry(_ context.Context, _ *domain.TaxonRow) (domain.RankChain, error) {
	return n.chain, nil
}

func ravenNavigator() *fakeNavigator {
	return &fakeNavigator{chain: domain.RankChain{
		Ranks: []domain.TaxonRank{
			{Level: domain.RankKingdom, Name: "Animalia"},
			{Level: domain.RankGenus, Name: "Corvus"},
			{Level: domain.RankSpecies, Name: "Corvus corax"},
		},
		ScientificName: "Corvus corax",
		CommonName:     "Common Raven",
		TaxonID:        12727,
	}}
}

func allNamespaces() domain.TagOptions {
	return domain.TagOptions{
		Exif: true, Iptc: true, Xmp: true,
		CommonNames: true, Hierarchical: true,
	}
}

// TestTaggerService_KeywordsForTaxon tests keyword generation without
// file access
func TestTaggerService_KeywordsForTaxon(t *testing.T) {
	svc := NewTaggerService(newFakeCodec(), ravenNavigator())

	ks, err := svc.KeywordsForTaxon(context.Background(), "12727", allNamespaces())

	require.NoError(t, err)
	assert.Contains(t, ks.Flat, "Common Raven")
	assert.Contains(t, ks.Flat, "taxonid:12727")
	assert.False(t, ks.Tree.Empty())
}

// TestTaggerService_KeywordsForTaxon_NoCommonNames tests the common-name
// toggle
func TestTaggerService_KeywordsForTaxon_NoCommonNames(t *testing.T) {
	svc := NewTaggerService(newFakeCodec(), ravenNavigator())
	opts := allNamespaces()
	opts.CommonNames = false

	ks, err := svc.KeywordsForTaxon(context.Background(), "12727", opts)

	require.NoError(t, err)
	assert.NotContains(t, ks.Flat, "Common Raven")
}

// TestTaggerService_WriteTags_NamespaceOrder tests the fixed XMP, EXIF,
// IPTC write sequence
func TestTaggerService_WriteTags_NamespaceOrder(t *testing.T) {
	codec := newFakeCodec()
	svc := NewTaggerService(codec, ravenNavigator())

	err := svc.WriteTags("photo.jpg", domain.TagTable{
		"Exif.Image.XPSubject":      {"Corvus"},
		"Iptc.Application2.Subject": {"Corvus"},
		"Xmp.dc.subject":            {"Corvus"},
	})

	require.NoError(t, err)
	file := codec.files["photo.jpg"]
	assert.Equal(t, []domain.Namespace{
		domain.NamespaceXmp, domain.NamespaceExif, domain.NamespaceIptc,
	}, file.writeOrder)
	assert.Equal(t, 1, file.closes)
}

// TestTaggerService_WriteTags_NonDestructive tests that unrelated tags
// survive a keyword write
func TestTaggerService_WriteTags_NonDestructive(t *testing.T) {
	codec := newFakeCodec()
	svc := NewTaggerService(codec, ravenNavigator())
	file, err := codec.Open("photo.jpg")
	require.NoError(t, err)
	require.NoError(t, file.Write(domain.NamespaceXmp, domain.TagTable{
		"Xmp.dc.title":   {"My Photo"},
		"Xmp.dc.subject": {"old keyword"},
	}))

	err = svc.WriteTags("photo.jpg", domain.TagTable{"Xmp.dc.subject": {"Corvus"}})

	require.NoError(t, err)
	xmp := codec.files["photo.jpg"].tables[domain.NamespaceXmp]
	assert.Equal(t, []string{"My Photo"}, xmp["Xmp.dc.title"])
	assert.Equal(t, []string{"Corvus"}, xmp["Xmp.dc.subject"])
}

// TestTaggerService_WriteTags_Idempotent tests that tagging twice equals
// tagging once
func TestTaggerService_WriteTags_Idempotent(t *testing.T) {
	codec := newFakeCodec()
	svc := NewTaggerService(codec, ravenNavigator())
	tags := domain.KeywordTags([]string{"Corvus", "Corvus corax"}, []string{"a|b"})

	require.NoError(t, svc.WriteTags("photo.jpg", tags))
	once := codec.files["photo.jpg"].tables[domain.NamespaceXmp].Clone()

	require.NoError(t, svc.WriteTags("photo.jpg", tags))
	twice := codec.files["photo.jpg"].tables[domain.NamespaceXmp]

	assert.Equal(t, once, twice)
}

// TestTaggerService_WriteTags_PartialFailure tests the error report when
// one namespace write fails mid-sequence
func TestTaggerService_WriteTags_PartialFailure(t *testing.T) {
	codec := newFakeCodec()
	codec.failWriteNS = domain.NamespaceExif
	codec.failWriteErr = errors.New("corrupt IFD")
	svc := NewTaggerService(codec, ravenNavigator())

	err := svc.WriteTags("photo.jpg", domain.TagTable{
		"Exif.Image.XPSubject":      {"Corvus"},
		"Iptc.Application2.Subject": {"Corvus"},
		"Xmp.dc.subject":            {"Corvus"},
	})

	var nsErr *domain.NamespaceWriteError
	require.ErrorAs(t, err, &nsErr)
	assert.Equal(t, "photo.jpg", nsErr.Path)
	assert.Equal(t, domain.NamespaceExif, nsErr.Failed)
	assert.Equal(t, []domain.Namespace{domain.NamespaceXmp}, nsErr.Committed)
	assert.Equal(t, 1, codec.files["photo.jpg"].closes, "handle released on failure")
}

// TestTaggerService_WriteTags_SidecarPropagation tests that an existing
// sidecar receives the XMP subset only
func TestTaggerService_WriteTags_SidecarPropagation(t *testing.T) {
	codec := newFakeCodec()
	codec.sidecars["photo.xmp"] = true
	svc := NewTaggerService(codec, ravenNavigator())

	err := svc.WriteTags("photo.jpg", domain.TagTable{
		"Exif.Image.XPSubject": {"Corvus"},
		"Xmp.dc.subject":       {"Corvus"},
	})

	require.NoError(t, err)
	sidecar := codec.files["photo.xmp"]
	require.NotNil(t, sidecar, "sidecar must be written")
	assert.Equal(t, []domain.Namespace{domain.NamespaceXmp}, sidecar.writeOrder)
	assert.Empty(t, sidecar.tables[domain.NamespaceExif])
}

// TestTaggerService_WriteTags_NoSidecar tests that a missing sidecar is
// not created by a plain write
func TestTaggerService_WriteTags_NoSidecar(t *testing.T) {
	codec := newFakeCodec()
	svc := NewTaggerService(codec, ravenNavigator())

	err := svc.WriteTags("photo.jpg", domain.TagTable{"Xmp.dc.subject": {"Corvus"}})

	require.NoError(t, err)
	assert.Nil(t, codec.files["photo.xmp"])
}

// TestTaggerService_WriteTags_UnknownTag tests whole-operation rejection
func TestTaggerService_WriteTags_UnknownTag(t *testing.T) {
	codec := newFakeCodec()
	svc := NewTaggerService(codec, ravenNavigator())

	err := svc.WriteTags("photo.jpg", domain.TagTable{"bogus": {"x"}})

	assert.ErrorIs(t, err, domain.ErrUnknownNamespace)
	assert.Nil(t, codec.files["photo.jpg"], "nothing opened")
}

// TestTaggerService_WriteKeywords tests the keyword fan-out across all
// namespace tag names
func TestTaggerService_WriteKeywords(t *testing.T) {
	codec := newFakeCodec()
	svc := NewTaggerService(codec, ravenNavigator())

	err := svc.WriteKeywords("photo.jpg", []string{"Corvus"}, []string{"a|b"})

	require.NoError(t, err)
	file := codec.files["photo.jpg"]
	assert.Equal(t, []string{"Corvus"}, file.tables[domain.NamespaceExif]["Exif.Image.XPSubject"])
	assert.Equal(t, []string{"a|b"}, file.tables[domain.NamespaceIptc]["Iptc.Application2.Keywords"])
	assert.Equal(t, []string{"Corvus"}, file.tables[domain.NamespaceXmp]["Xmp.dc.subject"])
}

// TestTaggerService_ReadCombined tests the snapshot assembly
func TestTaggerService_ReadCombined(t *testing.T) {
	codec := newFakeCodec()
	svc := NewTaggerService(codec, ravenNavigator())
	require.NoError(t, svc.WriteKeywords("photo.jpg", []string{"Corvus"}, nil))

	doc, err := svc.ReadCombined("photo.jpg")

	require.NoError(t, err)
	assert.Equal(t, "photo.jpg", doc.Path)
	assert.Equal(t, []string{"Corvus"}, doc.FlatKeywords())
}

// TestTaggerService_TagImages tests the batch flow over a directory
func TestTaggerService_TagImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.jpg", "b.JPEG", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}
	codec := newFakeCodec()
	svc := NewTaggerService(codec, ravenNavigator())

	results, err := svc.TagImages(context.Background(), []string{dir}, "12727", allNamespaces())

	require.NoError(t, err)
	require.Len(t, results, 2, "only images are picked up")
	for _, res := range results {
		assert.NoError(t, res.Err)
	}
	assert.NotNil(t, codec.files[filepath.Join(dir, "a.jpg")])
}

// TestTaggerService_TagImages_Recursive tests subdirectory scanning
func TestTaggerService_TagImages_Recursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "deep.jpg"), []byte("x"), 0o600))
	codec := newFakeCodec()
	svc := NewTaggerService(codec, ravenNavigator())

	opts := allNamespaces()
	results, err := svc.TagImages(context.Background(), []string{dir}, "12727", opts)
	require.NoError(t, err)
	assert.Empty(t, results, "non-recursive scan stays at the top level")

	opts.Recursive = true
	results, err = svc.TagImages(context.Background(), []string{dir}, "12727", opts)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, filepath.Join(sub, "deep.jpg"), results[0].Path)
}

// TestTaggerService_TagImages_NamespaceFilter tests that disabled
// namespaces receive no tags
func TestTaggerService_TagImages_NamespaceFilter(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "a.jpg")
	require.NoError(t, os.WriteFile(img, []byte("x"), 0o600))
	codec := newFakeCodec()
	svc := NewTaggerService(codec, ravenNavigator())

	opts := allNamespaces()
	opts.Exif = false
	opts.Iptc = false
	results, err := svc.TagImages(context.Background(), []string{img}, "12727", opts)

	require.NoError(t, err)
	require.Len(t, results, 1)
	file := codec.files[img]
	assert.Equal(t, []domain.Namespace{domain.NamespaceXmp}, file.writeOrder)
}

// TestTaggerService_TagImages_CreateSidecars tests sidecar stub creation
// ahead of the write
func TestTaggerService_TagImages_CreateSidecars(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "a.jpg")
	require.NoError(t, os.WriteFile(img, []byte("x"), 0o600))
	codec := newFakeCodec()
	svc := NewTaggerService(codec, ravenNavigator())

	opts := allNamespaces()
	opts.CreateSidecars = true
	results, err := svc.TagImages(context.Background(), []string{img}, "12727", opts)

	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	sidecarPath := strings.TrimSuffix(img, ".jpg") + ".xmp"
	assert.Equal(t, []string{sidecarPath}, codec.created)
	assert.NotNil(t, codec.files[sidecarPath], "created sidecar kept in sync")
}

// TestTaggerService_TagImages_MissingPath tests stat failure before any
// write happens
func TestTaggerService_TagImages_MissingPath(t *testing.T) {
	svc := NewTaggerService(newFakeCodec(), ravenNavigator())

	_, err := svc.TagImages(context.Background(), []string{"/no/such/dir"}, "12727", allNamespaces())

	assert.ErrorIs(t, err, domain.ErrFileAccess)
}

// TestTaggerService_TagImages_UnknownTaxon tests that resolution failure
// aborts the batch
func TestTaggerService_TagImages_UnknownTaxon(t *testing.T) {
	nav := ravenNavigator()
	nav.err = domain.ErrNotFound
	svc := NewTaggerService(newFakeCodec(), nav)

	_, err := svc.TagImages(context.Background(), []string{"x.jpg"}, "nope", allNamespaces())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
