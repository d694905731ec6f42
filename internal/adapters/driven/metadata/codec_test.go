package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxatag/taxatag-cli/internal/core/domain"
)

// minimalJPEG builds the smallest JPEG the parser accepts: SOI, one
// JFIF APP0 segment, scan data, EOI.
func minimalJPEG() []byte {
	jfif := []byte("JFIF\x00\x01\x02\x00\x00\x01\x00\x01\x00\x00")
	out := []byte{0xFF, 0xD8}
	out = append(out, 0xFF, 0xE0, byte((len(jfif)+2)>>8), byte(len(jfif)+2))
	out = append(out, jfif...)
	out = append(out, 0xFF, 0xDA, 0x00, 0x04, 0x01, 0x02) // SOS
	out = append(out, 0xAA, 0xBB, 0xCC)                   // entropy-coded data
	out = append(out, 0xFF, 0xD9)                         // EOI
	return out
}

func writeTestJPEG(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, minimalJPEG(), 0o600))
	return path
}

// TestCodec_Open_UnsupportedExtension tests extension-based rejection
func TestCodec_Open_UnsupportedExtension(t *testing.T) {
	codec := NewCodec()

	_, err := codec.Open("photo.png")

	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

// TestCodec_Open_MissingFile tests the file-access failure mode
func TestCodec_Open_MissingFile(t *testing.T) {
	codec := NewCodec()

	_, err := codec.Open(filepath.Join(t.TempDir(), "missing.jpg"))

	assert.ErrorIs(t, err, domain.ErrFileAccess)
}

// TestCodec_Open_NotAJPEG tests magic-number validation
func TestCodec_Open_NotAJPEG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fake.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not a jpeg at all"), 0o600))

	_, err := NewCodec().Open(path)

	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

// TestCodec_SidecarPath_Standard tests the default "{base}.xmp" form
func TestCodec_SidecarPath_Standard(t *testing.T) {
	dir := t.TempDir()
	img := writeTestJPEG(t, dir, "photo.jpg")
	codec := NewCodec()

	sidecar, exists := codec.SidecarPath(img)
	assert.Equal(t, filepath.Join(dir, "photo.xmp"), sidecar)
	assert.False(t, exists)

	require.NoError(t, os.WriteFile(sidecar, []byte(newSidecarContents), 0o600))
	_, exists = codec.SidecarPath(img)
	assert.True(t, exists)
}

// TestCodec_SidecarPath_Alternate tests that an existing
// "{base}.{ext}.xmp" takes precedence
func TestCodec_SidecarPath_Alternate(t *testing.T) {
	dir := t.TempDir()
	img := writeTestJPEG(t, dir, "photo.jpg")
	alt := img + ".xmp"
	require.NoError(t, os.WriteFile(alt, []byte(newSidecarContents), 0o600))

	sidecar, exists := NewCodec().SidecarPath(img)

	assert.Equal(t, alt, sidecar)
	assert.True(t, exists)
}

// TestCodec_CreateSidecar tests stub creation and idempotence
func TestCodec_CreateSidecar(t *testing.T) {
	dir := t.TempDir()
	img := writeTestJPEG(t, dir, "photo.jpg")
	codec := NewCodec()

	require.NoError(t, codec.CreateSidecar(img))
	sidecar, exists := codec.SidecarPath(img)
	require.True(t, exists)

	// The stub must parse as an empty packet.
	file, err := codec.Open(sidecar)
	require.NoError(t, err)
	table, err := file.Read(domain.NamespaceXmp)
	require.NoError(t, err)
	assert.Empty(t, table)
	require.NoError(t, file.Close())

	// Creating again must not clobber.
	require.NoError(t, os.WriteFile(sidecar, []byte(newSidecarContents+"<!-- marker -->"), 0o600))
	require.NoError(t, codec.CreateSidecar(img))
	data, err := os.ReadFile(sidecar)
	require.NoError(t, err)
	assert.Contains(t, string(data), "marker")
}

// TestCommit_PreservesFileMode tests that the atomic replace keeps the
// original permissions
func TestCommit_PreservesFileMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.bin")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o640))

	require.NoError(t, commit(path, []byte("new")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

// TestCommit_LeavesNoTempFiles tests temp file cleanup on success
func TestCommit_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.bin")

	require.NoError(t, commit(path, []byte("data")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
