package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukman83/pricepulse/internal/ui"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape [url]",
	Short: "Extract one product page without storing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runScrape,
}

func init() {
	scrapeCmd.Flags().String("format", "json", "Output format: json, table")
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	format, _ := cmd.Flags().GetString("format")

	spin := ui.NewSpinner(cmd.ErrOrStderr())
	spin.Start(fmt.Sprintf("Scraping %s...", cleanURL(args[0])))
	product, err := a.pipe.Scrape(cmdContext(cmd), args[0])
	spin.Stop()
	if err != nil {
		return fmt.Errorf("scrape failed: %w", err)
	}

	switch format {
	case "table":
		printScraped(cmd.OutOrStdout(), product)
		return nil
	default:
		return printJSON(cmd.OutOrStdout(), product)
	}
}
