// Package amazon extracts product snapshots from Amazon product pages.
package amazon

import (
	"encoding/json"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/lukman83/pricepulse/internal/extract"
	"github.com/lukman83/pricepulse/internal/models"
)

const defaultCurrency = "$"

// Extractor implements platform.Extractor for Amazon.
type Extractor struct{}

func New() *Extractor { return &Extractor{} }

func (e *Extractor) Platform() models.Platform { return models.PlatformAmazon }

var (
	titleChain = append(extract.Texts(
		"#productTitle",
		"#title span",
		"h1#title",
	),
		extract.LD("name"),
		extract.Attr(`meta[name="title"]`, "content"),
		extract.Attr(`meta[property="og:title"]`, "content"),
	)

	// a-offscreen holds the full price; a-price-whole holds only the integer part.
	currentPriceChain = slices.Concat(
		extract.Prices(
			".priceToPay .a-offscreen",
			"#corePriceDisplay_desktop_feature_div .a-price.priceToPay .a-offscreen",
			"#corePrice_feature_div .a-price .a-offscreen",
			"#corePrice_desktop .a-price .a-offscreen",
			"#apex_desktop .a-price .a-offscreen",
		),
		[]extract.Candidate[float64]{wholeAndFraction(".priceToPay")},
		extract.Prices(
			"#priceblock_dealprice",
			"#priceblock_ourprice",
			"#priceblock_saleprice",
			".a.size.base.a-color-price",
			".a-button-selected .a-color-base",
			"#tp_price_block_total_price_ww .a-offscreen",
		),
		[]extract.Candidate[float64]{
			extract.LDNumber("offers", "price"),
			extract.LDNumber("offers", "lowPrice"),
		},
	)

	originalPriceChain = extract.Prices(
		"#corePriceDisplay_desktop_feature_div .basisPrice .a-offscreen",
		"#corePrice_desktop .a-text-price .a-offscreen",
		".a-price.a-text-price span.a-offscreen",
		`span[data-a-strike="true"] .a-offscreen`,
		"#listPrice",
		"#priceblock_ourprice",
		".a-size-base.a-color-price",
	)

	currencyChain = []extract.Candidate[string]{
		extract.Text(".a-price-symbol"),
		symbolOf("#corePriceDisplay_desktop_feature_div .a-offscreen"),
		symbolOf("#priceblock_ourprice"),
		func(p *extract.Page) (string, bool) {
			code := extract.AsString(extract.Lookup(p.LDProduct(), "offers", "priceCurrency"))
			return extract.SymbolForCode(code), code != ""
		},
	}

	outOfStockChain = []extract.Candidate[bool]{
		extract.Contains("#availability", "currently unavailable", "out of stock", "temporarily out of stock"),
		extract.Exists("#outOfStock"),
		func(p *extract.Page) (bool, bool) {
			avail := strings.ToLower(extract.AsString(extract.Lookup(p.LDProduct(), "offers", "availability")))
			if avail == "" {
				return false, false
			}
			return strings.Contains(avail, "outofstock") || strings.Contains(avail, "soldout"), true
		},
	}

	reHiRes = regexp.MustCompile(`"hiRes"\s*:\s*"(https?:[^"]+)"`)
	reLarge = regexp.MustCompile(`"large"\s*:\s*"(https?:[^"]+)"`)

	imageChain = []extract.Candidate[string]{
		extract.LD("image"),
		extract.Regex(reHiRes),
		extract.Regex(reLarge),
		dynamicImage("#landingImage"),
		dynamicImage("#imgBlkFront"),
		extract.Attr("#landingImage", "data-old-hires"),
		extract.Attr("#landingImage", "src"),
		extract.Attr("#imgBlkFront", "src"),
		extract.Attr(`meta[property="og:image"]`, "content"),
	}

	starsChain = []extract.Candidate[float64]{
		extract.Number(extract.Attr("#acrPopover", "title")),
		extract.Number(extract.Text(`span[data-hook="rating-out-of-text"]`)),
		extract.Number(extract.Text("#averageCustomerReviews .a-icon-alt")),
		extract.Number(extract.Text("i.a-icon-star span.a-icon-alt")),
		extract.LDNumber("aggregateRating", "ratingValue"),
	}

	reviewsChain = []extract.Candidate[float64]{
		extract.Number(extract.Text("#acrCustomerReviewText")),
		extract.Number(extract.Text(`span[data-hook="total-review-count"]`)),
		extract.LDNumber("aggregateRating", "reviewCount"),
		extract.LDNumber("aggregateRating", "ratingCount"),
	}

	categoryChain = []extract.Candidate[string]{
		func(p *extract.Page) (string, bool) {
			c := extract.Breadcrumbs(p, "#wayfinding-breadcrumbs_feature_div ul li a")
			return c, c != ""
		},
		extract.Text("#nav-subnav .nav-a-content"),
		extract.Attr("#nav-subnav", "data-category"),
		extract.LD("category"),
	}
)

// wholeAndFraction joins the a-price-whole and a-price-fraction parts of the
// price block under scope, e.g. "1,299." and "99" into 1299.99.
func wholeAndFraction(scope string) extract.Candidate[float64] {
	return func(p *extract.Page) (float64, bool) {
		whole := digits(p.Text(scope + " .a-price-whole"))
		if whole == "" {
			return 0, false
		}
		if frac := digits(p.Text(scope + " .a-price-fraction")); frac != "" {
			whole += "." + frac
		}
		v, err := strconv.ParseFloat(whole, 64)
		return v, err == nil && v > 0
	}
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func symbolOf(selector string) extract.Candidate[string] {
	return func(p *extract.Page) (string, bool) {
		return extract.CurrencySymbol(p.Text(selector))
	}
}

// dynamicImage reads the data-a-dynamic-image JSON map of url -> [w, h] and
// picks the widest image.
func dynamicImage(selector string) extract.Candidate[string] {
	return func(p *extract.Page) (string, bool) {
		raw := p.Attr(selector, "data-a-dynamic-image")
		if raw == "" {
			return "", false
		}
		var sizes map[string][]float64
		if err := json.Unmarshal([]byte(raw), &sizes); err != nil {
			return "", false
		}
		var best string
		var bestW float64 = -1
		for u, dims := range sizes {
			w := 0.0
			if len(dims) > 0 {
				w = dims[0]
			}
			if w > bestW || (w == bestW && u < best) {
				best, bestW = u, w
			}
		}
		return best, best != ""
	}
}

func description(p *extract.Page) string {
	headline := p.Text("#productDescription h3")
	body := extract.JoinSections(p.Texts("#productDescription p")...)
	if body == "" {
		body = p.Text("#productDescription")
	}
	if headline != "" && !strings.HasPrefix(body, headline) {
		body = extract.JoinSections(headline, body)
	}

	return extract.JoinSections(
		body,
		extract.Bullets(p, "#feature-bullets ul li span.a-list-item"),
		extract.Table(p, "#productOverview_feature_div table tr", "td:nth-child(1)", "td:nth-child(2)"),
		extract.Table(p, "#productDetails_techSpec_section_1 tr", "th", "td"),
	)
}

func (e *Extractor) Extract(html string) (models.ScrapedProduct, error) {
	p, err := extract.Parse(html)
	if err != nil {
		return models.ScrapedProduct{}, &extract.Error{Platform: models.PlatformAmazon, Err: err}
	}

	title, _ := extract.First(p, titleChain...)
	current, _ := extract.First(p, currentPriceChain...)
	original, _ := extract.First(p, originalPriceChain...)
	reviews := extract.Or(p, 0, reviewsChain...)

	sp := models.ScrapedProduct{
		Platform:      models.PlatformAmazon,
		Title:         title,
		Image:         extract.Or(p, "", imageChain...),
		Currency:      extract.Or(p, defaultCurrency, currencyChain...),
		Category:      extract.Or(p, "", categoryChain...),
		Description:   description(p),
		CurrentPrice:  current,
		OriginalPrice: original,
		IsOutOfStock:  extract.Or(p, false, outOfStockChain...),
		Stars:         extract.Or(p, 0, starsChain...),
		ReviewsCount:  int(reviews),
	}

	if err := extract.Finish(&sp); err != nil {
		return models.ScrapedProduct{}, err
	}
	return sp, nil
}
