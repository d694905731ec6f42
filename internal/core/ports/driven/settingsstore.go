package driven

import (
	"github.com/taxatag/taxatag-cli/internal/core/domain"
)

// SettingsStore persists application settings.
// Implementations handle file format and location (e.g. TOML files).
type SettingsStore interface {
	// Load returns the persisted settings, falling back to defaults
	// for anything unset.
	Load() (domain.Settings, error)

	// Save persists the settings.
	Save(settings domain.Settings) error
}
