// Package flipkart extracts product snapshots from Flipkart product pages.
package flipkart

import (
	"strings"

	"github.com/lukman83/pricepulse/internal/extract"
	"github.com/lukman83/pricepulse/internal/models"
)

const defaultCurrency = "₹"

// Extractor implements platform.Extractor for Flipkart.
type Extractor struct{}

func New() *Extractor { return &Extractor{} }

func (e *Extractor) Platform() models.Platform { return models.PlatformFlipkart }

// Flipkart ships obfuscated class names that rotate between releases; each
// chain lists the current names first and older generations after.
var (
	titleChain = append(extract.Texts(
		"h1 span.VU-ZEz",
		"span.B_NuCI",
		"h1.yhB1nd span",
		"h1._9E25nV",
		"h1 span",
		"h1",
	),
		extract.LD("name"),
		extract.Attr(`meta[property="og:title"]`, "content"),
	)

	currentPriceChain = append(extract.Prices(
		"div.Nx9bqj.CxhGGd",
		"div.Nx9bqj",
		"div._30jeq3._16Jk6d",
		"div._30jeq3",
		"div._25b18c ._30jeq3",
	),
		extract.LDNumber("offers", "price"),
		extract.LDNumber("offers", "lowPrice"),
	)

	originalPriceChain = extract.Prices(
		"div.yRaY8j",
		"div._3I9_wc._2p6lqe",
		"div._3I9_wc",
		"div._25b18c ._3I9_wc",
	)

	currencyChain = []extract.Candidate[string]{
		symbolOf("div.Nx9bqj"),
		symbolOf("div._30jeq3"),
		func(p *extract.Page) (string, bool) {
			code := extract.AsString(extract.Lookup(p.LDProduct(), "offers", "priceCurrency"))
			return extract.SymbolForCode(code), code != ""
		},
	}

	outOfStockChain = []extract.Candidate[bool]{
		extract.Contains("div.Z8JjpR", "sold out", "currently unavailable"),
		extract.Contains("div._16FRp0", "sold out", "currently unavailable"),
		extract.Contains("div._1dVbu9", "sold out", "currently unavailable"),
		extract.Contains("div.nbiUlm", "coming soon", "sold out"),
		func(p *extract.Page) (bool, bool) {
			avail := strings.ToLower(extract.AsString(extract.Lookup(p.LDProduct(), "offers", "availability")))
			if avail == "" {
				return false, false
			}
			return strings.Contains(avail, "outofstock") || strings.Contains(avail, "soldout"), true
		},
	}

	imageChain = []extract.Candidate[string]{
		extract.LD("image"),
		extract.Attr("img.DByuf4", "src"),
		extract.Attr("img._396cs4", "src"),
		extract.Attr("img._2r_T1I", "src"),
		extract.Attr("img.jLEJ7H", "src"),
		extract.Attr(`meta[property="og:image"]`, "content"),
	}

	starsChain = []extract.Candidate[float64]{
		extract.LDNumber("aggregateRating", "ratingValue"),
		extract.Number(extract.Text("div.XQDdHH")),
		extract.Number(extract.Text("div._3LWZlK")),
		extract.Number(extract.Text("div.ipqd2A")),
	}

	reviewsChain = []extract.Candidate[float64]{
		extract.LDNumber("aggregateRating", "reviewCount"),
		extract.LDNumber("aggregateRating", "ratingCount"),
		extract.Number(extract.Text("span.Wphh3N")),
		extract.Number(extract.Text("span._2_R_DZ")),
	}

	categoryChain = []extract.Candidate[string]{
		breadcrumbs("div.r2CdBx a"),
		breadcrumbs("div._7dPnhA a"),
		breadcrumbs("div._1MR4o5 a"),
		extract.LD("category"),
	}
)

func symbolOf(selector string) extract.Candidate[string] {
	return func(p *extract.Page) (string, bool) {
		return extract.CurrencySymbol(p.Text(selector))
	}
}

// Breadcrumbs start with "Home"; it is dropped as noise. The last crumb is
// usually the product itself and is dropped as well.
func breadcrumbs(selector string) extract.Candidate[string] {
	return func(p *extract.Page) (string, bool) {
		crumbs := p.Texts(selector)
		if len(crumbs) > 0 && strings.EqualFold(crumbs[0], "home") {
			crumbs = crumbs[1:]
		}
		if len(crumbs) > 1 {
			crumbs = crumbs[:len(crumbs)-1]
		}
		c := strings.Join(crumbs, " > ")
		return c, c != ""
	}
}

func description(p *extract.Page) string {
	body := extract.Or(p, "", extract.Texts(
		"div.yN-eNk",
		"div._1mXcCf",
		"div._4gvKMe",
	)...)
	if body == "" {
		body = extract.AsString(extract.Lookup(p.LDProduct(), "description"))
	}

	highlights := extract.Bullets(p, "div.xFVion li")
	if highlights == "" {
		highlights = extract.Bullets(p, "li._21Ahn-")
	}

	specs := extract.Table(p, "table._0ZhAN9 tr", "td:nth-child(1)", "td:nth-child(2)")
	if specs == "" {
		specs = extract.Table(p, "table._14cfVK tr", "td:nth-child(1)", "td:nth-child(2)")
	}

	return extract.JoinSections(body, highlights, specs)
}

func (e *Extractor) Extract(html string) (models.ScrapedProduct, error) {
	p, err := extract.Parse(html)
	if err != nil {
		return models.ScrapedProduct{}, &extract.Error{Platform: models.PlatformFlipkart, Err: err}
	}

	title, _ := extract.First(p, titleChain...)
	current, _ := extract.First(p, currentPriceChain...)
	original, _ := extract.First(p, originalPriceChain...)
	reviews := extract.Or(p, 0, reviewsChain...)

	sp := models.ScrapedProduct{
		Platform:      models.PlatformFlipkart,
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
