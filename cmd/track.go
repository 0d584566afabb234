package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukman83/pricepulse/internal/models"
	"github.com/lukman83/pricepulse/internal/ui"
)

var trackCmd = &cobra.Command{
	Use:   "track [url]",
	Short: "Start tracking a product or record a new price sample",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrack,
}

var subscribeCmd = &cobra.Command{
	Use:   "subscribe [url] [email]",
	Short: "Subscribe an email address to price alerts for a product",
	Args:  cobra.ExactArgs(2),
	RunE:  runSubscribe,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked products",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	trackCmd.Flags().String("format", "json", "Output format: json, table")
	listCmd.Flags().String("format", "table", "Output format: json, table")
	listCmd.Flags().String("platform", "", "Only list products of this platform")
	rootCmd.AddCommand(trackCmd, subscribeCmd, listCmd)
}

func runTrack(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	format, _ := cmd.Flags().GetString("format")

	spin := ui.NewSpinner(cmd.ErrOrStderr())
	spin.Start(fmt.Sprintf("Tracking %s...", cleanURL(args[0])))
	product, err := a.pipe.Track(cmdContext(cmd), args[0])
	spin.Stop()
	if err != nil {
		return fmt.Errorf("track failed: %w", err)
	}

	if format == "table" {
		printProductsTable(cmd.OutOrStdout(), []models.Product{product})
		return nil
	}
	return printJSON(cmd.OutOrStdout(), product)
}

func runSubscribe(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sub, err := a.pipe.Subscribe(cmdContext(cmd), args[0], args[1])
	if err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}

	out := cmd.OutOrStdout()
	switch {
	case !sub.Added:
		fmt.Fprintf(out, "%s is already subscribed to %s\n", args[1], truncate(sub.Product.Title, 60))
	case sub.Mail != nil && !sub.Mail.Success:
		fmt.Fprintf(out, "Subscribed %s to %s (welcome email not sent: %s)\n", args[1], truncate(sub.Product.Title, 60), sub.Mail.Error)
	default:
		fmt.Fprintf(out, "Subscribed %s to %s\n", args[1], truncate(sub.Product.Title, 60))
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	format, _ := cmd.Flags().GetString("format")
	plat, _ := cmd.Flags().GetString("platform")

	products, err := a.pipe.List(cmdContext(cmd))
	if err != nil {
		return err
	}
	products = filterPlatform(products, models.Platform(plat))

	if format == "json" {
		return printJSON(cmd.OutOrStdout(), products)
	}
	if len(products) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No products tracked yet.")
		return nil
	}
	printProductsTable(cmd.OutOrStdout(), products)
	return nil
}

func filterPlatform(products []models.Product, plat models.Platform) []models.Product {
	if plat == "" {
		return products
	}
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.Platform == plat {
			out = append(out, p)
		}
	}
	return out
}
