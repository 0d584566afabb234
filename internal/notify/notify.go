// Package notify decides whether a product transition is worth an email.
package notify

import (
	"github.com/lukman83/pricepulse/internal/history"
	"github.com/lukman83/pricepulse/internal/models"
)

// DefaultThresholdPercent is the discount at which THRESHOLD_MET fires.
const DefaultThresholdPercent = 40

// Kind is the classified reason to notify subscribers.
type Kind string

const (
	KindNone          Kind = "NONE"
	KindWelcome       Kind = "WELCOME"
	KindChangeOfStock Kind = "CHANGE_OF_STOCK"
	KindLowestPrice   Kind = "LOWEST_PRICE"
	KindThresholdMet  Kind = "THRESHOLD_MET"
)

func (k Kind) String() string { return string(k) }

// Classify compares the stored product with a fresh scrape.
//
// Precedence, first match wins:
//  1. no previous record: WELCOME
//  2. previous out of stock, next in stock: CHANGE_OF_STOCK
//  3. next price strictly below every recorded price: LOWEST_PRICE
//  4. next discount at or above thresholdPercent: THRESHOLD_MET
//  5. otherwise NONE
//
// An empty previous history never yields LOWEST_PRICE.
func Classify(previous *models.Product, next models.ScrapedProduct, thresholdPercent float64) Kind {
	if previous == nil {
		return KindWelcome
	}
	if previous.IsOutOfStock && !next.IsOutOfStock {
		return KindChangeOfStock
	}
	if len(previous.PriceHistory) > 0 && next.CurrentPrice < history.Lowest(previous.PriceHistory) {
		return KindLowestPrice
	}
	if next.DiscountRate >= thresholdPercent {
		return KindThresholdMet
	}
	return KindNone
}
