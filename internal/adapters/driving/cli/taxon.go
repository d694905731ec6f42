package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taxatag/taxatag-cli/internal/core/domain"
)

var taxonCmd = &cobra.Command{
	Use:   "taxon",
	Short: "Query the taxonomy tree",
	Long: `Navigator queries against the local taxonomy database. Taxa are
addressed by numeric ID or by exact scientific name; an ambiguous name
must be retried with the ID.`,
}

var taxonShowCmd = &cobra.Command{
	Use:   "show <id|name>",
	Short: "Show a taxon and its ancestry",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaxonShow,
}

var taxonParentCmd = &cobra.Command{
	Use:   "parent <id|name>",
	Short: "Show the parent taxon",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaxonParent,
}

var taxonChildrenCmd = &cobra.Command{
	Use:   "children <id|name>",
	Short: "List the immediate children",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaxonChildren,
}

var taxonSiblingsCmd = &cobra.Command{
	Use:   "siblings <id|name>",
	Short: "List the taxa sharing the parent",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaxonSiblings,
}

var taxonCountCmd = &cobra.Command{
	Use:   "count <id|name>",
	Short: "Count the taxon's subtree",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaxonCount,
}

func init() {
	taxonCmd.AddCommand(taxonShowCmd)
	taxonCmd.AddCommand(taxonParentCmd)
	taxonCmd.AddCommand(taxonChildrenCmd)
	taxonCmd.AddCommand(taxonSiblingsCmd)
	taxonCmd.AddCommand(taxonCountCmd)
	rootCmd.AddCommand(taxonCmd)
}

func resolveTaxon(ctx context.Context, query string) (*domain.TaxonRow, error) {
	if navigatorService == nil {
		return nil, errors.New("navigator service not configured")
	}
	taxon, err := navigatorService.GetTaxon(ctx, query)
	if err != nil {
		if errors.Is(err, domain.ErrAmbiguousMatch) {
			return nil, fmt.Errorf("%w (retry with a numeric taxon ID)", err)
		}
		return nil, err
	}
	return taxon, nil
}

func printTaxon(cmd *cobra.Command, taxon *domain.TaxonRow) {
	line := fmt.Sprintf("%d  %s  %s", taxon.ID, taxon.Rank, taxon.Name)
	if taxon.CommonName != "" {
		line += fmt.Sprintf("  (%s)", taxon.CommonName)
	}
	cmd.Println(line)
}

func runTaxonShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	taxon, err := resolveTaxon(ctx, args[0])
	if err != nil {
		return err
	}

	printTaxon(cmd, taxon)

	chain, err := navigatorService.Ancestry(ctx, taxon)
	if err != nil {
		return fmt.Errorf("resolving ancestry: %w", err)
	}
	if !chain.Empty() {
		cmd.Println("Ancestry:")
		for _, rank := range chain.Ranks {
			cmd.Printf("  %-10s %s\n", rank.Level, rank.Name)
		}
	}
	return nil
}

func runTaxonParent(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	taxon, err := resolveTaxon(ctx, args[0])
	if err != nil {
		return err
	}

	parent, err := navigatorService.Parent(ctx, taxon)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("taxon %d is a root taxon", taxon.ID)
		}
		return err
	}
	printTaxon(cmd, parent)
	return nil
}

func runTaxonChildren(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	taxon, err := resolveTaxon(ctx, args[0])
	if err != nil {
		return err
	}

	children, err := navigatorService.Children(ctx, taxon)
	if err != nil {
		return err
	}
	if len(children) == 0 {
		cmd.Printf("Taxon %d has no children.\n", taxon.ID)
		return nil
	}
	for i := range children {
		printTaxon(cmd, &children[i])
	}
	return nil
}

func runTaxonSiblings(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	taxon, err := resolveTaxon(ctx, args[0])
	if err != nil {
		return err
	}

	siblings, err := navigatorService.Siblings(ctx, taxon)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("taxon %d is a root taxon", taxon.ID)
		}
		return err
	}
	for i := range siblings {
		printTaxon(cmd, &siblings[i])
	}
	return nil
}

func runTaxonCount(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	taxon, err := resolveTaxon(ctx, args[0])
	if err != nil {
		return err
	}

	count, err := navigatorService.CountDescendants(ctx, taxon)
	if err != nil {
		return err
	}
	cmd.Printf("%d taxa in the subtree of %s (including itself)\n", count, taxon.Name)
	return nil
}
