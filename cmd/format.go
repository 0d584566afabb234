package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/lukman83/pricepulse/internal/models"
	"github.com/lukman83/pricepulse/internal/notify"
	"github.com/lukman83/pricepulse/internal/pipeline"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printProductsTable prints tracked products in a card layout.
func printProductsTable(w io.Writer, products []models.Product) {
	for i, p := range products {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, " %d. %s\n", i+1, truncate(p.Title, 80))
		fmt.Fprintln(w, "    "+priceLine(p.ScrapedProduct))
		if len(p.PriceHistory) > 0 {
			fmt.Fprintf(w, "    Low: %s  |  High: %s  |  Avg: %s  |  %d samples\n",
				formatPrice(p.Currency, p.LowestPrice),
				formatPrice(p.Currency, p.HighestPrice),
				formatPrice(p.Currency, p.AveragePrice),
				len(p.PriceHistory))
		}
		meta := []string{string(p.Platform)}
		if n := len(p.Subscribers); n > 0 {
			meta = append(meta, fmt.Sprintf("%d subscriber%s", n, plural(n)))
		}
		if !p.UpdatedAt.IsZero() {
			meta = append(meta, "updated "+humanize.Time(p.UpdatedAt))
		}
		fmt.Fprintf(w, "    %s\n", strings.Join(meta, "  |  "))
		fmt.Fprintf(w, "    %s\n", cleanURL(p.URL))
	}
}

// printScraped prints one extraction result.
func printScraped(w io.Writer, p models.ScrapedProduct) {
	fmt.Fprintf(w, " %s\n", p.Title)
	fmt.Fprintln(w, "    "+priceLine(p))
	if p.Stars > 0 {
		fmt.Fprintf(w, "    Rating: %.1f (%s reviews)\n", p.Stars, humanize.Comma(int64(p.ReviewsCount)))
	}
	if p.Category != "" {
		fmt.Fprintf(w, "    Category: %s\n", p.Category)
	}
	fmt.Fprintf(w, "    %s\n", cleanURL(p.URL))
}

// printSummary prints a cycle summary followed by its failures.
func printSummary(w io.Writer, s *pipeline.Summary) {
	fmt.Fprintf(w, "Cycle of %d products in %s: %d updated, %d failed, %d notified\n",
		s.Total, s.Duration.Round(time.Millisecond), s.UpdatedCount, s.FailedCount, s.NotifiedCount)

	kinds := make([]notify.Kind, 0, len(s.Notifications))
	for k := range s.Notifications {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		fmt.Fprintf(w, "  %s: %d\n", k, s.Notifications[k])
	}
	for _, f := range s.Failures {
		fmt.Fprintf(w, "  FAILED [%s] %s: %s\n", f.Stage, cleanURL(f.URL), f.Error)
	}
}

func priceLine(p models.ScrapedProduct) string {
	line := "Price: " + formatPrice(p.Currency, p.CurrentPrice)
	if p.OriginalPrice > p.CurrentPrice && p.DiscountRate > 0 {
		line += fmt.Sprintf("  (was %s, -%g%%)", formatPrice(p.Currency, p.OriginalPrice), p.DiscountRate)
	}
	if p.IsOutOfStock {
		line += "  [Out of stock]"
	}
	return line
}

// formatPrice formats a price as "₹1,299" or "$19.99".
func formatPrice(currency string, v float64) string {
	return currency + humanize.CommafWithDigits(v, 2)
}

// cleanURL strips tracking query params and returns just the product page URL.
func cleanURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
