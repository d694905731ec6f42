package domain

// TagOptions configures one batch tagging operation.
type TagOptions struct {
	// Exif, Iptc and Xmp select the namespaces to write.
	Exif bool
	Iptc bool
	Xmp  bool

	// CommonNames includes preferred common names in the keywords.
	CommonNames bool

	// Hierarchical writes hierarchical keyword paths in addition to
	// the flat keyword list.
	Hierarchical bool

	// Recursive searches directories among the target paths for
	// taggable images.
	Recursive bool

	// CreateSidecars creates an XMP sidecar stub for images that do
	// not have one before writing.
	CreateSidecars bool
}

// TagOptions derives batch tagging options from persisted settings.
func (s Settings) TagOptions() TagOptions {
	return TagOptions{
		Exif:           s.Exif,
		Iptc:           s.Iptc,
		Xmp:            s.Xmp,
		CommonNames:    s.CommonNames,
		Hierarchical:   s.Hierarchical,
		CreateSidecars: s.Sidecar,
	}
}

// TagResult is the outcome of tagging a single file. Err is nil on
// success; a batch continues past individual failures.
type TagResult struct {
	Path string
	Err  error
}
