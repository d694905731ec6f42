package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	tagTaxon        string
	tagExif         bool
	tagIptc         bool
	tagXmp          bool
	tagCommon       bool
	tagHierarchical bool
	tagRecursive    bool
	tagSidecar      bool
)

var tagCmd = &cobra.Command{
	Use:   "tag [paths...]",
	Short: "Tag images with taxonomy keywords",
	Long: `Generates taxonomy keywords for the given taxon and merges them into
the metadata of every target image. Directory arguments are scanned for
JPEG images; existing XMP sidecars are kept in sync.

Tags already present in a file are preserved; only the keyword tags are
replaced.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTag,
}

func init() {
	tagCmd.Flags().StringVarP(&tagTaxon, "taxon", "t", "", "taxon ID or scientific name (required)")
	tagCmd.Flags().BoolVar(&tagExif, "exif", true, "write EXIF tags")
	tagCmd.Flags().BoolVar(&tagIptc, "iptc", true, "write IPTC tags")
	tagCmd.Flags().BoolVar(&tagXmp, "xmp", true, "write XMP tags")
	tagCmd.Flags().BoolVar(&tagCommon, "common", true, "include common names in keywords")
	tagCmd.Flags().BoolVar(&tagHierarchical, "hierarchical", true, "write hierarchical keyword paths")
	tagCmd.Flags().BoolVarP(&tagRecursive, "recursive", "r", false, "recurse into directories")
	tagCmd.Flags().BoolVar(&tagSidecar, "sidecar", false, "create XMP sidecars for images without one")
	_ = tagCmd.MarkFlagRequired("taxon")
	rootCmd.AddCommand(tagCmd)
}

func runTag(cmd *cobra.Command, args []string) error {
	if taggerService == nil {
		return errors.New("tagger service not configured")
	}

	opts := loadSettings().TagOptions()
	flags := cmd.Flags()
	if flags.Changed("exif") {
		opts.Exif = tagExif
	}
	if flags.Changed("iptc") {
		opts.Iptc = tagIptc
	}
	if flags.Changed("xmp") {
		opts.Xmp = tagXmp
	}
	if flags.Changed("common") {
		opts.CommonNames = tagCommon
	}
	if flags.Changed("hierarchical") {
		opts.Hierarchical = tagHierarchical
	}
	if flags.Changed("sidecar") {
		opts.CreateSidecars = tagSidecar
	}
	opts.Recursive = tagRecursive

	results, err := taggerService.TagImages(context.Background(), args, tagTaxon, opts)
	if err != nil {
		return fmt.Errorf("tagging failed: %w", err)
	}

	failures := 0
	for _, res := range results {
		if res.Err != nil {
			failures++
			cmd.Printf("FAILED  %s: %v\n", res.Path, res.Err)
		} else {
			cmd.Printf("tagged  %s\n", res.Path)
		}
	}
	cmd.Printf("%d images tagged, %d failed\n", len(results)-failures, failures)

	if failures > 0 {
		return fmt.Errorf("%d of %d images failed", failures, len(results))
	}
	return nil
}
