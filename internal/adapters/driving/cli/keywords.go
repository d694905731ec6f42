package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	keywordsTaxon        string
	keywordsCommon       bool
	keywordsHierarchical bool
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Print the keywords for a taxon",
	Long: `Generates and prints the flat keyword list and hierarchical keyword
tree for a taxon without writing to any file.`,
	RunE: runKeywords,
}

func init() {
	keywordsCmd.Flags().StringVarP(&keywordsTaxon, "taxon", "t", "", "taxon ID or scientific name (required)")
	keywordsCmd.Flags().BoolVar(&keywordsCommon, "common", true, "include common names in keywords")
	keywordsCmd.Flags().BoolVar(&keywordsHierarchical, "hierarchical", true, "print the hierarchical keyword tree")
	_ = keywordsCmd.MarkFlagRequired("taxon")
	rootCmd.AddCommand(keywordsCmd)
}

func runKeywords(cmd *cobra.Command, _ []string) error {
	if taggerService == nil {
		return errors.New("tagger service not configured")
	}

	opts := loadSettings().TagOptions()
	if cmd.Flags().Changed("common") {
		opts.CommonNames = keywordsCommon
	}

	ks, err := taggerService.KeywordsForTaxon(context.Background(), keywordsTaxon, opts)
	if err != nil {
		return fmt.Errorf("generating keywords: %w", err)
	}

	cmd.Println("Keywords:")
	for _, kw := range ks.Flat {
		cmd.Printf("  %s\n", kw)
	}

	if keywordsHierarchical && !ks.Tree.Empty() {
		cmd.Println("Hierarchy:")
		cmd.Print(ks.Tree.RenderIndented())
	}
	return nil
}
