package metadata

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxatag/taxatag-cli/internal/core/domain"
)

func newSidecar(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "photo.xmp")
	require.NoError(t, os.WriteFile(path, []byte(newSidecarContents), 0o600))
	return path
}

// TestSidecar_FreshKeywordWrite tests that writing keyword tags into a
// fresh sidecar yields exactly those XMP properties and nothing else
func TestSidecar_FreshKeywordWrite(t *testing.T) {
	path := newSidecar(t)
	codec := NewCodec()

	file, err := codec.Open(path)
	require.NoError(t, err)
	require.NoError(t, file.Write(domain.NamespaceXmp, domain.TagTable{
		"Xmp.dc.subject":             {"Corvus", "Corvus corax"},
		"Xmp.lr.hierarchicalSubject": {"taxonomy:genus=Corvus|taxonomy:binomial=Corvus corax"},
	}))
	require.NoError(t, file.Close())

	file, err = codec.Open(path)
	require.NoError(t, err)
	defer file.Close()
	table, err := file.Read(domain.NamespaceXmp)
	require.NoError(t, err)

	assert.Len(t, table, 2, "no other properties may appear")
	assert.Equal(t, []string{"Corvus", "Corvus corax"}, table["Xmp.dc.subject"])
	assert.Equal(t,
		[]string{"taxonomy:genus=Corvus|taxonomy:binomial=Corvus corax"},
		table["Xmp.lr.hierarchicalSubject"])
}

// TestSidecar_NonXMPRead tests that EXIF and IPTC read as empty
func TestSidecar_NonXMPRead(t *testing.T) {
	file, err := openSidecar(newSidecar(t))
	require.NoError(t, err)
	defer file.Close()

	for _, ns := range []domain.Namespace{domain.NamespaceExif, domain.NamespaceIptc} {
		table, err := file.Read(ns)
		require.NoError(t, err)
		assert.Empty(t, table)
	}
}

// TestSidecar_NonXMPWriteRejected tests that a sidecar refuses embedded
// namespaces
func TestSidecar_NonXMPWriteRejected(t *testing.T) {
	file, err := openSidecar(newSidecar(t))
	require.NoError(t, err)
	defer file.Close()

	err = file.Write(domain.NamespaceExif, domain.TagTable{"Exif.Image.Artist": {"x"}})

	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

// TestSidecar_MergePreservesProperties tests two write sessions merging
func TestSidecar_MergePreservesProperties(t *testing.T) {
	path := newSidecar(t)

	file, err := openSidecar(path)
	require.NoError(t, err)
	require.NoError(t, file.Write(domain.NamespaceXmp, domain.TagTable{"Xmp.dc.title": {"Raven"}}))
	require.NoError(t, file.Close())

	file, err = openSidecar(path)
	require.NoError(t, err)
	require.NoError(t, file.Write(domain.NamespaceXmp, domain.TagTable{"Xmp.dc.subject": {"Corvus"}}))
	require.NoError(t, file.Close())

	file, err = openSidecar(path)
	require.NoError(t, err)
	defer file.Close()
	table, err := file.Read(domain.NamespaceXmp)
	require.NoError(t, err)
	assert.Equal(t, []string{"Raven"}, table["Xmp.dc.title"])
	assert.Equal(t, []string{"Corvus"}, table["Xmp.dc.subject"])
}

// TestSidecar_UnknownSchemaRejected tests the schema allow-list
func TestSidecar_UnknownSchemaRejected(t *testing.T) {
	file, err := openSidecar(newSidecar(t))
	require.NoError(t, err)
	defer file.Close()

	err = file.Write(domain.NamespaceXmp, domain.TagTable{"Xmp.custom.field": {"x"}})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown XMP schema")
}

// TestSidecar_CloseWithoutWrites tests that reading leaves the file
// untouched
func TestSidecar_CloseWithoutWrites(t *testing.T) {
	path := newSidecar(t)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	file, err := openSidecar(path)
	require.NoError(t, err)
	_, err = file.Read(domain.NamespaceXmp)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

// TestSidecar_StructuredHistorySurvives tests that a structured
// property (an xmpMM:History event log) passes through a keyword write
// byte-for-byte instead of being flattened
func TestSidecar_StructuredHistorySurvives(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.xmp")
	foreign := `<?xpacket begin="" id="W5M0MpCehiHzreSzNTczkc9d"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/" x:xmptk="Other Tool 1.0">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description rdf:about=""
    xmlns:xmpMM="http://ns.adobe.com/xap/1.0/mm/"
    xmlns:stEvt="http://ns.adobe.com/xap/1.0/sType/ResourceEvent#">
   <xmpMM:History>
    <rdf:Seq>
     <rdf:li rdf:parseType="Resource">
      <stEvt:action>saved</stEvt:action>
      <stEvt:instanceID>xmp.iid:7c6ab2b4</stEvt:instanceID>
     </rdf:li>
    </rdf:Seq>
   </xmpMM:History>
  </rdf:Description>
 </rdf:RDF>
</x:xmpmeta>
<?xpacket end="w"?>`
	require.NoError(t, os.WriteFile(path, []byte(foreign), 0o600))

	file, err := openSidecar(path)
	require.NoError(t, err)
	require.NoError(t, file.Write(domain.NamespaceXmp, domain.TagTable{"Xmp.dc.subject": {"Corvus"}}))
	require.NoError(t, file.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "<stEvt:action>saved</stEvt:action>")
	assert.Contains(t, out, "xmp.iid:7c6ab2b4")
	assert.Contains(t, out, `xmlns:stEvt="http://ns.adobe.com/xap/1.0/sType/ResourceEvent#"`)
	assert.NotContains(t, out, "<rdf:li></rdf:li>")

	file, err = openSidecar(path)
	require.NoError(t, err)
	defer file.Close()
	table, err := file.Read(domain.NamespaceXmp)
	require.NoError(t, err)
	assert.Equal(t, []string{"Corvus"}, table["Xmp.dc.subject"])
}

// TestSidecar_QualifiedAltSurvives tests that a language-qualified Alt
// entry keeps its xml:lang qualifier across an unrelated write
func TestSidecar_QualifiedAltSurvives(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.xmp")
	foreign := `<?xpacket begin="" id="W5M0MpCehiHzreSzNTczkc9d"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/" x:xmptk="Other Tool 1.0">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description rdf:about=""
    xmlns:dc="http://purl.org/dc/elements/1.1/">
   <dc:title>
    <rdf:Alt>
     <rdf:li xml:lang="x-default">Raven at dusk</rdf:li>
    </rdf:Alt>
   </dc:title>
  </rdf:Description>
 </rdf:RDF>
</x:xmpmeta>
<?xpacket end="w"?>`
	require.NoError(t, os.WriteFile(path, []byte(foreign), 0o600))

	file, err := openSidecar(path)
	require.NoError(t, err)
	require.NoError(t, file.Write(domain.NamespaceXmp, domain.TagTable{"Xmp.dc.subject": {"Corvus"}}))
	require.NoError(t, file.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<rdf:li xml:lang="x-default">Raven at dusk</rdf:li>`)
}

// TestSidecar_PacketHeader tests the xpacket wrapper of a rewritten file
func TestSidecar_PacketHeader(t *testing.T) {
	path := newSidecar(t)

	file, err := openSidecar(path)
	require.NoError(t, err)
	require.NoError(t, file.Write(domain.NamespaceXmp, domain.TagTable{"Xmp.dc.subject": {"Corvus"}}))
	require.NoError(t, file.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	bom := string(rune(0xFEFF))
	assert.True(t, strings.HasPrefix(string(data), `<?xpacket begin="`+bom+`"`))
	assert.True(t, strings.HasSuffix(string(data), `<?xpacket end="w"?>`))
}

// TestSidecar_ForeignPacketSurvives tests that properties written by
// other tools survive a keyword write
func TestSidecar_ForeignPacketSurvives(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.xmp")
	foreign := `<?xpacket begin="" id="W5M0MpCehiHzreSzNTczkc9d"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/" x:xmptk="Other Tool 1.0">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description rdf:about=""
    xmlns:photoshop="http://ns.adobe.com/photoshop/1.0/"
    photoshop:Credit="Jane Birder">
  </rdf:Description>
 </rdf:RDF>
</x:xmpmeta>
<?xpacket end="w"?>`
	require.NoError(t, os.WriteFile(path, []byte(foreign), 0o600))

	file, err := openSidecar(path)
	require.NoError(t, err)
	require.NoError(t, file.Write(domain.NamespaceXmp, domain.TagTable{"Xmp.dc.subject": {"Corvus"}}))
	require.NoError(t, file.Close())

	file, err = openSidecar(path)
	require.NoError(t, err)
	defer file.Close()
	table, err := file.Read(domain.NamespaceXmp)
	require.NoError(t, err)
	assert.Equal(t, []string{"Jane Birder"}, table["Xmp.photoshop.Credit"])
	assert.Equal(t, []string{"Corvus"}, table["Xmp.dc.subject"])
}
