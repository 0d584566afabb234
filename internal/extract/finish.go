package extract

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/lukman83/pricepulse/internal/models"
)

// DefaultDescription is used when a page has no description content.
const DefaultDescription = "No description available. Visit the product page for more details."

// ErrMissingEssential marks a page with no title or no price.
var ErrMissingEssential = errors.New("missing essential fields")

// Error is an extraction failure for one page.
type Error struct {
	Platform models.Platform
	Missing  []string
	Err      error
}

func (e *Error) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("extract %s: %v (%s)", e.Platform, e.Err, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("extract %s: %v", e.Platform, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Finish validates essential fields and fills the derived ones: a missing
// price mirrors the other, the discount is computed from the two prices and
// an empty description gets the default text.
func Finish(sp *models.ScrapedProduct) error {
	sp.Title = CollapseSpace(sp.Title)

	var missing []string
	if sp.Title == "" {
		missing = append(missing, "title")
	}
	if sp.CurrentPrice <= 0 && sp.OriginalPrice <= 0 {
		missing = append(missing, "price")
	}
	if len(missing) > 0 {
		return &Error{Platform: sp.Platform, Missing: missing, Err: ErrMissingEssential}
	}

	if sp.CurrentPrice <= 0 {
		sp.CurrentPrice = sp.OriginalPrice
	}
	if sp.OriginalPrice <= 0 {
		sp.OriginalPrice = sp.CurrentPrice
	}
	sp.DiscountRate = Discount(sp.OriginalPrice, sp.CurrentPrice)

	if strings.TrimSpace(sp.Description) == "" {
		sp.Description = DefaultDescription
	}
	if sp.Stars < 0 || sp.Stars > 5 {
		sp.Stars = 0
	}
	if sp.ReviewsCount < 0 {
		sp.ReviewsCount = 0
	}
	return nil
}

// Discount returns the whole-percent reduction from original to current,
// or 0 when there is none.
func Discount(original, current float64) float64 {
	if original <= 0 || current <= 0 || original <= current {
		return 0
	}
	return math.Round((original - current) / original * 100)
}
