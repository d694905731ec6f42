package domain

// Settings controls which metadata formats are generated and written.
// Persisted by the settings store adapter.
type Settings struct {
	// DBPath is the taxonomy database location.
	// Empty means the adapter's default.
	DBPath string `toml:"db_path"`

	// Exif enables writing EXIF tags.
	Exif bool `toml:"exif"`

	// Iptc enables writing IPTC tags.
	Iptc bool `toml:"iptc"`

	// Xmp enables writing XMP tags.
	Xmp bool `toml:"xmp"`

	// Sidecar enables creating sidecar files for images that do not
	// have one yet. Existing sidecars are always kept in sync.
	Sidecar bool `toml:"sidecar"`

	// Hierarchical enables hierarchical keyword generation.
	Hierarchical bool `toml:"hierarchical"`

	// CommonNames includes preferred common names in keywords.
	CommonNames bool `toml:"common_names"`
}

// DefaultSettings returns the out-of-the-box configuration:
// all namespaces on, hierarchical keywords and common names enabled,
// no sidecar creation.
func DefaultSettings() Settings {
	return Settings{
		Exif:         true,
		Iptc:         true,
		Xmp:          true,
		Sidecar:      false,
		Hierarchical: true,
		CommonNames:  true,
	}
}
