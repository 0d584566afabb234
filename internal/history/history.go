// Package history maintains a product's append-only price series and the
// aggregates derived from it.
package history

import (
	"time"

	"github.com/lukman83/pricepulse/internal/models"
)

// Append returns a new history with the sample added at the end.
// The input slice is never modified. Equal consecutive prices are kept.
func Append(h []models.PriceHistoryItem, price float64, at time.Time) []models.PriceHistoryItem {
	out := make([]models.PriceHistoryItem, len(h), len(h)+1)
	copy(out, h)
	return append(out, models.PriceHistoryItem{Price: price, Date: at})
}

// Lowest returns the minimum recorded price, or 0 for an empty history.
func Lowest(h []models.PriceHistoryItem) float64 {
	if len(h) == 0 {
		return 0
	}
	low := h[0].Price
	for _, it := range h[1:] {
		if it.Price < low {
			low = it.Price
		}
	}
	return low
}

// Highest returns the maximum recorded price, or 0 for an empty history.
func Highest(h []models.PriceHistoryItem) float64 {
	if len(h) == 0 {
		return 0
	}
	high := h[0].Price
	for _, it := range h[1:] {
		if it.Price > high {
			high = it.Price
		}
	}
	return high
}

// Average returns the arithmetic mean of recorded prices, or 0 for an empty history.
func Average(h []models.PriceHistoryItem) float64 {
	if len(h) == 0 {
		return 0
	}
	var sum float64
	for _, it := range h {
		sum += it.Price
	}
	return sum / float64(len(h))
}

// Merge folds a fresh scrape into the stored product. The scraped snapshot
// replaces the product fields, the current price is appended to the history,
// the aggregates are recomputed and subscribers are carried over untouched.
// prev is not modified.
func Merge(prev models.Product, scraped models.ScrapedProduct, at time.Time) models.Product {
	out := prev.Clone()
	if scraped.URL == "" {
		scraped.URL = prev.URL
	}
	out.ScrapedProduct = scraped
	out.PriceHistory = Append(prev.PriceHistory, scraped.CurrentPrice, at)
	Recompute(&out)
	if out.CreatedAt.IsZero() {
		out.CreatedAt = at
	}
	out.UpdatedAt = at
	return out
}

// Recompute refreshes lowest, highest and average from p.PriceHistory.
func Recompute(p *models.Product) {
	p.LowestPrice = Lowest(p.PriceHistory)
	p.HighestPrice = Highest(p.PriceHistory)
	p.AveragePrice = Average(p.PriceHistory)
}
