// Package myntra extracts product snapshots from Myntra product pages.
//
// Myntra renders client side; the server HTML carries the full product in
// an inline `window.__myx` object, which is preferred over the DOM.
package myntra

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lukman83/pricepulse/internal/extract"
	"github.com/lukman83/pricepulse/internal/models"
)

const (
	defaultCurrency = "₹"
	stateMarker     = "window.__myx"
)

// Extractor implements platform.Extractor for Myntra.
type Extractor struct{}

func New() *Extractor { return &Extractor{} }

func (e *Extractor) Platform() models.Platform { return models.PlatformMyntra }

func pdp(p *extract.Page, keys ...string) any {
	return extract.Lookup(p.InlineJSON(stateMarker), append([]string{"pdpData"}, keys...)...)
}

func pdpText(keys ...string) extract.Candidate[string] {
	return func(p *extract.Page) (string, bool) {
		s := extract.AsString(pdp(p, keys...))
		return s, s != ""
	}
}

func pdpPrice(keys ...string) extract.Candidate[float64] {
	return func(p *extract.Page) (float64, bool) {
		v, ok := extract.AsNumber(pdp(p, keys...))
		return v, ok && v > 0
	}
}

var (
	titleChain = []extract.Candidate[string]{
		pdpText("name"),
		func(p *extract.Page) (string, bool) {
			t := extract.CollapseSpace(p.Text("h1.pdp-title") + " " + p.Text("h1.pdp-name"))
			return t, t != ""
		},
		extract.LD("name"),
		extract.Attr(`meta[property="og:title"]`, "content"),
	}

	currentPriceChain = append([]extract.Candidate[float64]{
		pdpPrice("price", "discounted"),
		pdpPrice("discountedPrice"),
	},
		append(extract.Prices(
			"span.pdp-price strong",
			"span.pdp-price",
		),
			extract.LDNumber("offers", "price"),
		)...,
	)

	originalPriceChain = append([]extract.Candidate[float64]{
		pdpPrice("price", "mrp"),
		pdpPrice("mrp"),
	},
		extract.Prices(
			"span.pdp-mrp s",
			"span.pdp-mrp",
		)...,
	)

	outOfStockChain = []extract.Candidate[bool]{
		func(p *extract.Page) (bool, bool) {
			v, ok := pdp(p, "flags", "outOfStock").(bool)
			return v, ok
		},
		sizesSoldOut,
		extract.Exists("div.size-buttons-out-of-stock"),
		extract.Contains("div.pdp-add-to-bag", "out of stock", "sold out"),
		extract.Contains("div.pdp-details", "out of stock", "sold out"),
	}

	imageChain = []extract.Candidate[string]{
		albumImage("secureSrc"),
		albumImage("src"),
		pdpText("media", "albums", "images", "imageURL"),
		backgroundImage("div.image-grid-image"),
		extract.LD("image"),
		extract.Attr(`meta[property="og:image"]`, "content"),
	}

	starsChain = []extract.Candidate[float64]{
		pdpPrice("ratings", "averageRating"),
		extract.Number(extract.Text("div.index-overallRating div")),
		extract.LDNumber("aggregateRating", "ratingValue"),
	}

	reviewsChain = []extract.Candidate[float64]{
		pdpPrice("ratings", "totalCount"),
		extract.Number(extract.Text("div.index-ratingsCount")),
		extract.LDNumber("aggregateRating", "reviewCount"),
	}

	categoryChain = []extract.Candidate[string]{
		func(p *extract.Page) (string, bool) {
			var parts []string
			for _, k := range []string{"masterCategory", "subCategory", "articleType"} {
				if s := extract.AsString(pdp(p, "analytics", k)); s != "" {
					parts = append(parts, s)
				}
			}
			c := strings.Join(parts, " > ")
			return c, c != ""
		},
		func(p *extract.Page) (string, bool) {
			c := extract.Breadcrumbs(p, "a.breadcrumbs-link")
			return c, c != ""
		},
		extract.LD("category"),
	}
)

// Every size listed and none available counts as sold out.
func sizesSoldOut(p *extract.Page) (bool, bool) {
	sizes, ok := pdp(p, "sizes").([]any)
	if !ok || len(sizes) == 0 {
		return false, false
	}
	for _, s := range sizes {
		m, ok := s.(map[string]any)
		if !ok {
			return false, false
		}
		if avail, _ := m["available"].(bool); avail {
			return false, true
		}
	}
	return true, true
}

// Myntra image URLs carry resize placeholders such as
// "h_($height),q_($qualityPercentage),w_($width)/" that must be removed.
var rePlaceholders = regexp.MustCompile(`(?:[a-z]_\(\$[A-Za-z]+\),?)+/`)

func cleanImage(u string) string {
	u = rePlaceholders.ReplaceAllString(u, "")
	if strings.HasPrefix(u, "http://") {
		u = "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

func albumImage(key string) extract.Candidate[string] {
	return func(p *extract.Page) (string, bool) {
		s := extract.AsString(pdp(p, "media", "albums", "images", key))
		if s == "" {
			return "", false
		}
		return cleanImage(s), true
	}
}

var reBackgroundURL = regexp.MustCompile(`url\(\s*["']?([^"')]+)["']?\s*\)`)

func backgroundImage(selector string) extract.Candidate[string] {
	return func(p *extract.Page) (string, bool) {
		m := reBackgroundURL.FindStringSubmatch(p.Attr(selector, "style"))
		if len(m) < 2 {
			return "", false
		}
		return cleanImage(m[1]), true
	}
}

func description(p *extract.Page) string {
	var sections []string
	if details, ok := pdp(p, "productDetails").([]any); ok {
		for _, d := range details {
			m, ok := d.(map[string]any)
			if !ok {
				continue
			}
			body := stripTags(extract.AsString(m["description"]))
			if body == "" {
				continue
			}
			if title := extract.AsString(m["title"]); title != "" {
				body = title + "\n" + body
			}
			sections = append(sections, body)
		}
	}
	if len(sections) == 0 {
		sections = append(sections, p.Text("p.pdp-product-description-content"))
	}

	if attrs, ok := pdp(p, "articleAttributes").(map[string]any); ok {
		sections = append(sections, attributeLines(attrs))
	} else {
		sections = append(sections, extract.Table(p, "div.index-tableContainer div.index-row",
			"div.index-rowKey", "div.index-rowValue"))
	}
	return extract.JoinSections(sections...)
}

// attributeLines renders attributes as sorted "key: value" lines, skipping
// the "NA" values Myntra uses for unset attributes.
func attributeLines(attrs map[string]any) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines []string
	for _, k := range keys {
		v := extract.AsString(attrs[k])
		if v == "" || strings.EqualFold(v, "na") {
			continue
		}
		lines = append(lines, k+": "+v)
	}
	return strings.Join(lines, "\n")
}

func stripTags(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return extract.CollapseSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return extract.CollapseSpace(fragment)
	}
	var parts []string
	doc.Find("body").Contents().Each(func(_ int, s *goquery.Selection) {
		if t := extract.CollapseSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, "\n")
}

func (e *Extractor) Extract(html string) (models.ScrapedProduct, error) {
	p, err := extract.Parse(html)
	if err != nil {
		return models.ScrapedProduct{}, &extract.Error{Platform: models.PlatformMyntra, Err: err}
	}

	title, _ := extract.First(p, titleChain...)
	if brand := extract.AsString(pdp(p, "brand", "name")); brand != "" && title != "" && !strings.HasPrefix(strings.ToLower(title), strings.ToLower(brand)) {
		title = brand + " " + title
	}
	current, _ := extract.First(p, currentPriceChain...)
	original, _ := extract.First(p, originalPriceChain...)
	reviews := extract.Or(p, 0, reviewsChain...)

	sp := models.ScrapedProduct{
		Platform:      models.PlatformMyntra,
		Title:         title,
		Image:         extract.Or(p, "", imageChain...),
		Currency:      defaultCurrency,
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
