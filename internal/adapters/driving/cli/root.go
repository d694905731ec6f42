// Package cli provides the cobra command tree for taxatag.
//
// Commands depend on package-level service variables. The root command
// wires the real adapters on first use; tests install fakes directly,
// which suppresses the wiring.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	configfile "github.com/taxatag/taxatag-cli/internal/adapters/driven/config/file"
	"github.com/taxatag/taxatag-cli/internal/adapters/driven/metadata"
	"github.com/taxatag/taxatag-cli/internal/adapters/driven/taxonomy/sqlite"
	"github.com/taxatag/taxatag-cli/internal/core/domain"
	"github.com/taxatag/taxatag-cli/internal/core/ports/driven"
	"github.com/taxatag/taxatag-cli/internal/core/ports/driving"
	"github.com/taxatag/taxatag-cli/internal/core/services"
	"github.com/taxatag/taxatag-cli/internal/logger"
)

const version = "0.1.0"

// Services the commands depend on. wireServices installs the real
// adapters; tests assign fakes before Execute.
var (
	navigatorService driving.Navigator
	taggerService    driving.Tagger
	settingsStore    driven.SettingsStore
	taxonomyStore    driven.TaxonomyStore
)

var (
	verboseFlag   bool
	configDirFlag string
	dbPathFlag    string
)

var rootCmd = &cobra.Command{
	Use:   "taxatag",
	Short: "Tag photos with biological taxonomy metadata",
	Long: `Taxatag generates taxonomy keywords from a local taxonomy database
and merges them into image metadata (EXIF, IPTC, XMP and XMP sidecars).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verboseFlag)
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		return wireServices()
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return closeServices()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config", "", "config directory (default ~/.taxatag)")
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "taxonomy database path (default from config)")
}

// RootCmd returns the root command for execution by main.
func RootCmd() *cobra.Command {
	return rootCmd
}

// wireServices opens the real adapters. A service that is already set
// (or explicitly nilled by a test) is left alone: wiring only happens
// from a completely unwired state.
func wireServices() error {
	if navigatorService != nil || taggerService != nil || settingsStore != nil {
		return nil
	}

	store, err := configfile.NewSettingsStore(configDirFlag)
	if err != nil {
		return fmt.Errorf("opening settings store: %w", err)
	}
	settingsStore = store

	settings, err := store.Load()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	dbPath := settings.DBPath
	if dbPathFlag != "" {
		dbPath = dbPathFlag
	}
	taxStore, err := sqlite.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening taxonomy database: %w", err)
	}
	taxonomyStore = taxStore

	navigatorService = services.NewNavigatorService(taxStore)
	taggerService = services.NewTaggerService(metadata.NewCodec(), navigatorService)
	return nil
}

// closeServices releases what wireServices opened.
func closeServices() error {
	if taxonomyStore == nil {
		return nil
	}
	err := taxonomyStore.Close()
	taxonomyStore = nil
	navigatorService = nil
	taggerService = nil
	settingsStore = nil
	return err
}

// loadSettings returns persisted settings, or the defaults when no
// settings store is wired (tests).
func loadSettings() domain.Settings {
	if settingsStore == nil {
		return domain.DefaultSettings()
	}
	settings, err := settingsStore.Load()
	if err != nil {
		logger.Warn("Falling back to default settings: %v", err)
		return domain.DefaultSettings()
	}
	return settings
}
