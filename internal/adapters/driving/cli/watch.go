package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/taxatag/taxatag-cli/internal/core/domain"
	"github.com/taxatag/taxatag-cli/internal/logger"
)

var watchTaxon string

// settleDelay is how long a file must stay quiet before it is tagged.
// Cameras and download managers write images in several bursts.
const settleDelay = 2 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Auto-tag images appearing in a directory",
	Long: `Watches a directory and tags every JPEG image that is created or
modified in it. Writes are debounced so half-written files are not
touched. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchTaxon, "taxon", "t", "", "taxon ID or scientific name (required)")
	_ = watchCmd.MarkFlagRequired("taxon")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if taggerService == nil {
		return errors.New("tagger service not configured")
	}

	opts := loadSettings().TagOptions()
	dir := args[0]

	// Resolve the taxon up front so a typo fails before the loop.
	ks, err := taggerService.KeywordsForTaxon(cmd.Context(), watchTaxon, opts)
	if err != nil {
		return fmt.Errorf("resolving taxon: %w", err)
	}
	logger.Debug("Watching with %d keywords prepared", len(ks.Flat))

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	cmd.Printf("Watching %s (taxon %s)...\n", dir, watchTaxon)

	return watchLoop(cmd.Context(), cmd, watcher, watchTaxon, opts)
}

// watchLoop tags files after their events settle. One timer per path
// collapses write bursts into a single tagging pass.
func watchLoop(
	ctx context.Context,
	cmd *cobra.Command,
	watcher *fsnotify.Watcher,
	query string,
	opts domain.TagOptions,
) error {
	var mu sync.Mutex
	pending := make(map[string]*time.Timer)

	tagOne := func(path string) {
		mu.Lock()
		delete(pending, path)
		mu.Unlock()

		results, err := taggerService.TagImages(ctx, []string{path}, query, opts)
		if err != nil {
			cmd.Printf("FAILED  %s: %v\n", path, err)
			return
		}
		for _, res := range results {
			if res.Err != nil {
				cmd.Printf("FAILED  %s: %v\n", res.Path, res.Err)
			} else {
				cmd.Printf("tagged  %s\n", res.Path)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !watchableImage(event.Name) {
				continue
			}

			path := event.Name
			mu.Lock()
			if timer, exists := pending[path]; exists {
				timer.Reset(settleDelay)
			} else {
				pending[path] = time.AfterFunc(settleDelay, func() { tagOne(path) })
			}
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

func watchableImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return true
	}
	return false
}
