package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/taxatag/taxatag-cli/internal/core/domain"
)

var readJSON bool

var readCmd = &cobra.Command{
	Use:   "read <path>",
	Short: "Show the metadata of an image",
	Long: `Reads EXIF, IPTC and XMP metadata from an image (or XMP sidecar) and
prints the combined view. Keywords are categorised into key-value pairs,
hierarchy paths and plain keywords.`,
	Args: cobra.ExactArgs(1),
	RunE: runRead,
}

func init() {
	readCmd.Flags().BoolVar(&readJSON, "json", false, "output raw namespace tables as JSON")
	rootCmd.AddCommand(readCmd)
}

func runRead(cmd *cobra.Command, args []string) error {
	if taggerService == nil {
		return errors.New("tagger service not configured")
	}

	doc, err := taggerService.ReadCombined(args[0])
	if err != nil {
		return fmt.Errorf("reading metadata: %w", err)
	}

	if readJSON {
		return outputReadJSON(cmd, doc)
	}
	return outputReadText(cmd, doc)
}

func outputReadJSON(cmd *cobra.Command, doc *domain.MetadataDocument) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func outputReadText(cmd *cobra.Command, doc *domain.MetadataDocument) error {
	cmd.Printf("%s\n\n", doc.Path)

	names := make([]string, 0, len(doc.Combined))
	for name := range doc.Combined {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, value := range doc.Combined[name] {
			cmd.Printf("  %-40s %s\n", name, value)
		}
	}

	view := doc.Keywords()
	if len(view.All) == 0 {
		return nil
	}

	cmd.Println()
	if len(view.Pairs) > 0 {
		cmd.Println("Keyword pairs:")
		pairKeys := make([]string, 0, len(view.Pairs))
		for k := range view.Pairs {
			pairKeys = append(pairKeys, k)
		}
		sort.Strings(pairKeys)
		for _, k := range pairKeys {
			cmd.Printf("  %s = %s\n", k, view.Pairs[k])
		}
	}
	if tree := view.Tree(); !tree.Empty() {
		cmd.Println("Keyword hierarchy:")
		cmd.Print(tree.RenderIndented())
	}
	if len(view.Plain) > 0 {
		cmd.Printf("Keywords: %v\n", view.Plain)
	}
	return nil
}
