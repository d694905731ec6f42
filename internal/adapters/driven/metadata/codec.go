package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/taxatag/taxatag-cli/internal/core/domain"
	"github.com/taxatag/taxatag-cli/internal/core/ports/driven"
)

// Ensure Codec implements the interface.
var _ driven.MetadataCodec = (*Codec)(nil)

// newSidecarContents is the minimal packet written when creating a
// sidecar stub.
const newSidecarContents = `<?xpacket begin="" id="W5M0MpCehiHzreSzNTczkc9d"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/" x:xmptk="">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
 </rdf:RDF>
</x:xmpmeta>
<?xpacket end="w"?>
`

// Codec opens image and sidecar files for tag-table access.
// The zero value is ready to use.
type Codec struct{}

// NewCodec creates a new file metadata codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Open opens the file for metadata reading and writing. The format is
// chosen by extension; anything without embedded-metadata capability
// fails with domain.ErrUnsupportedFormat.
func (c *Codec) Open(path string) (driven.MetadataFile, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return openJPEG(path)
	case ".xmp":
		return openSidecar(path)
	default:
		return nil, fmt.Errorf("%s: %w", path, domain.ErrUnsupportedFormat)
	}
}

// SidecarPath resolves the sidecar path for an image. The default form
// is "{base}.xmp"; the alternate "{base}.{ext}.xmp" is used only when
// such a file already exists. Existence is rechecked on every call.
func (c *Codec) SidecarPath(path string) (string, bool) {
	ext := filepath.Ext(path)
	alt := path + ".xmp"
	if fileExists(alt) {
		return alt, true
	}
	standard := strings.TrimSuffix(path, ext) + ".xmp"
	return standard, fileExists(standard)
}

// CreateSidecar writes an empty sidecar packet for the image if none
// exists yet.
func (c *Codec) CreateSidecar(path string) error {
	sidecar, exists := c.SidecarPath(path)
	if exists {
		return nil
	}
	if err := os.WriteFile(sidecar, []byte(newSidecarContents), 0644); err != nil {
		return fmt.Errorf("creating sidecar %s: %w", sidecar, domain.ErrFileAccess)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// commit atomically replaces path with data via a temp file in the same
// directory.
func commit(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".taxatag-*")
	if err != nil {
		return fmt.Errorf("%s: %w", path, domain.ErrFileAccess)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%s: %w", path, domain.ErrFileAccess)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%s: %w", path, domain.ErrFileAccess)
	}

	// Carry over the original file mode when the target exists.
	if info, err := os.Stat(path); err == nil {
		_ = os.Chmod(tmpName, info.Mode())
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%s: %w", path, domain.ErrFileAccess)
	}
	return nil
}
