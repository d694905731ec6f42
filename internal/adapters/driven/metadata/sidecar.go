package metadata

import (
	"fmt"
	"os"

	"github.com/taxatag/taxatag-cli/internal/core/domain"
	"github.com/taxatag/taxatag-cli/internal/core/ports/driven"
)

// Ensure sidecarFile implements the interface.
var _ driven.MetadataFile = (*sidecarFile)(nil)

// sidecarFile is an open handle on a plain XMP packet file.
type sidecarFile struct {
	path   string
	packet *xmpPacket
	dirty  bool
}

func openSidecar(path string) (*sidecarFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrFileAccess)
	}
	packet, err := parseXMPPacket(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, domain.ErrUnsupportedFormat)
	}
	return &sidecarFile{path: path, packet: packet}, nil
}

// Read returns the XMP table. EXIF and IPTC do not exist in a sidecar
// and read as empty.
func (f *sidecarFile) Read(ns domain.Namespace) (domain.TagTable, error) {
	if ns == domain.NamespaceXmp {
		return f.packet.table(), nil
	}
	return domain.TagTable{}, nil
}

// Write merges XMP tags. Any other namespace is rejected: a sidecar
// carries XMP only.
func (f *sidecarFile) Write(ns domain.Namespace, tags domain.TagTable) error {
	if ns != domain.NamespaceXmp {
		return fmt.Errorf("sidecar %s carries XMP only, not %s: %w",
			f.path, ns, domain.ErrUnsupportedFormat)
	}
	if len(tags) == 0 {
		return nil
	}
	if err := f.packet.apply(tags); err != nil {
		return err
	}
	f.dirty = true
	return nil
}

// Close commits buffered writes, if any, atomically.
func (f *sidecarFile) Close() error {
	if !f.dirty {
		return nil
	}
	if err := commit(f.path, f.packet.encode()); err != nil {
		return err
	}
	f.dirty = false
	return nil
}
