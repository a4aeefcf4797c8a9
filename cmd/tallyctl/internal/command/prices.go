package command

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/tally/internal/importer"
)

var importPricesCmd = &cobra.Command{
	Use:   "import-prices <file>",
	Short: "Append the prices of a supplier price list to the catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runImportPrices,
}

func init() {
	rootCmd.AddCommand(importPricesCmd)

	importPricesCmd.Flags().String("source", string(importer.SourcePriceList), "Price list format")
	importPricesCmd.Flags().Bool("dry-run", false, "Parse the file without applying prices")
}

func runImportPrices(cmd *cobra.Command, args []string) error {
	source, _ := cmd.Flags().GetString("source")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open price list: %w", err)
	}
	defer f.Close()

	rows, err := svc.Imports.Import(importer.Source(source), f)
	if err != nil {
		return fmt.Errorf("parse price list: %w", err)
	}

	out := cmd.OutOrStdout()

	if dryRun {
		fmt.Fprintf(out, "Parsed %d prices.\n", len(rows))
		return nil
	}

	res, err := svc.Products.ImportPrices(cmd.Context(), rows)
	if err != nil {
		return fmt.Errorf("apply prices: %w", err)
	}

	fmt.Fprintf(out, "Parsed %d prices, applied %d.\n", len(rows), res.Applied)

	if len(res.UnknownCodes) > 0 {
		fmt.Fprintf(out, "Unknown item codes: %s\n", strings.Join(res.UnknownCodes, ", "))
	}

	return nil
}
