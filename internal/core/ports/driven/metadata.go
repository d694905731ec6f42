package driven

import (
	"github.com/taxatag/taxatag-cli/internal/core/domain"
)

// MetadataFile is an open handle on one image or sidecar file's tag
// tables. A handle fully owns the target file for its lifetime; callers
// must Close on every path, including errors. Concurrent writers against
// the same path are not safe; callers serialize per-path access.
type MetadataFile interface {
	// Read returns the current table of one namespace. Namespaces the
	// file cannot carry (EXIF/IPTC on a sidecar) read as empty tables.
	Read(ns domain.Namespace) (domain.TagTable, error)

	// Write merges tags into one namespace's table: a supplied value
	// replaces the existing value for the same key, every other key is
	// preserved. Never a full-namespace replace.
	Write(ns domain.Namespace, tags domain.TagTable) error

	// Close commits any writes and releases the handle. All namespace
	// writes become durable as one logical operation from the caller's
	// perspective.
	Close() error
}

// MetadataCodec opens files for metadata access and resolves sidecar
// relationships. The sidecar association is weak and path-derived
// (same directory, same base name, ".xmp" extension), so existence is
// rechecked on every call.
type MetadataCodec interface {
	// Open opens the file for metadata reading and writing.
	// Fails with domain.ErrFileAccess if the file is unreadable and
	// domain.ErrUnsupportedFormat if it has no embedded-metadata
	// capability.
	Open(path string) (MetadataFile, error)

	// SidecarPath returns the sidecar path for an image and whether a
	// sidecar currently exists there.
	SidecarPath(path string) (string, bool)

	// CreateSidecar creates an empty sidecar packet for the image if
	// one does not exist yet.
	CreateSidecar(path string) error
}
