// Package email renders notification emails for a product.
package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/lukman83/pricepulse/internal/models"
	"github.com/lukman83/pricepulse/internal/notify"
)

// ErrInvalidKind is returned when there is no template for a notification kind.
var ErrInvalidKind = errors.New("invalid notification kind")

const subjectTitleLen = 20

// ProductInfo is the subset of a product an email needs.
type ProductInfo struct {
	Title         string
	URL           string
	Image         string
	Currency      string
	CurrentPrice  float64
	OriginalPrice float64
	IsOutOfStock  bool
}

// InfoFrom builds ProductInfo from a stored product.
func InfoFrom(p models.Product) ProductInfo {
	return ProductInfo{
		Title:         p.Title,
		URL:           p.URL,
		Image:         p.Image,
		Currency:      p.Currency,
		CurrentPrice:  p.CurrentPrice,
		OriginalPrice: p.OriginalPrice,
		IsOutOfStock:  p.IsOutOfStock,
	}
}

// Message is a rendered email.
type Message struct {
	Subject  string
	HTMLBody string
}

type copyBlock struct {
	subject  string
	heading  string
	intro    string
	stockTag func(ProductInfo) badge
}

type badge struct {
	Label string
	Color template.CSS
}

var (
	badgeInStock     = badge{Label: "in stock", Color: "#16a34a"}
	badgeOutOfStock  = badge{Label: "out of stock", Color: "#dc2626"}
	badgeBackInStock = badge{Label: "back in stock", Color: "#2563eb"}
)

func stockState(p ProductInfo) badge {
	if p.IsOutOfStock {
		return badgeOutOfStock
	}
	return badgeInStock
}

var copies = map[notify.Kind]copyBlock{
	notify.KindWelcome: {
		subject:  "Welcome to Price Tracking for %s",
		heading:  "Welcome to PricePulse",
		intro:    "You are now tracking this product. We will email you when its price drops, it comes back in stock, or a big discount shows up.",
		stockTag: stockState,
	},
	notify.KindChangeOfStock: {
		subject:  "%s is now back in stock!",
		heading:  "Back in stock",
		intro:    "Good news: a product you are watching is available again. Grab it before it runs out.",
		stockTag: func(ProductInfo) badge { return badgeBackInStock },
	},
	notify.KindLowestPrice: {
		subject:  "Lowest Price Alert for %s",
		heading:  "Lowest price ever",
		intro:    "This product just dropped below every price we have recorded for it.",
		stockTag: stockState,
	},
	notify.KindThresholdMet: {
		subject:  "Discount Alert for %s",
		heading:  "Big discount",
		intro:    "This product is now on a discount you would not want to miss.",
		stockTag: stockState,
	},
}

var bodyTmpl = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background:#f4f4f4; padding:24px;">
  <div style="max-width:560px; margin:0 auto; background:#ffffff; border-radius:8px; padding:24px;">
    <h2 style="margin-top:0;">{{.Heading}}</h2>
    <p>{{.Intro}}</p>
    {{if .Image}}<img src="{{.Image}}" alt="product image" style="max-width:100%; height:auto;">{{end}}
    <h3>{{.Title}}</h3>
    <p style="font-size:20px; margin:8px 0;">
      <strong>{{.Current}}</strong>
      {{if .Discounted}}<s style="color:#6b7280; margin-left:8px;">{{.Original}}</s>
      <span style="background:#f97316; color:#ffffff; border-radius:4px; padding:2px 6px; margin-left:8px;">-{{.Discount}}%</span>{{end}}
    </p>
    <p><span style="background:{{.Badge.Color}}; color:#ffffff; border-radius:4px; padding:2px 8px;">{{.Badge.Label}}</span></p>
    <p><a href="{{.URL}}" style="display:inline-block; background:#111827; color:#ffffff; padding:10px 16px; border-radius:6px; text-decoration:none;">View product</a></p>
  </div>
</body>
</html>`))

type bodyData struct {
	Heading    string
	Intro      string
	Title      string
	URL        string
	Image      string
	Current    string
	Original   string
	Discounted bool
	Discount   int
	Badge      badge
}

// Compose renders the subject and HTML body for kind. KindNone has no template.
func Compose(kind notify.Kind, p ProductInfo) (Message, error) {
	c, ok := copies[kind]
	if !ok {
		return Message{}, fmt.Errorf("%w: %s", ErrInvalidKind, kind)
	}

	data := bodyData{
		Heading: c.heading,
		Intro:   c.intro,
		Title:   p.Title,
		URL:     p.URL,
		Image:   p.Image,
		Current: formatPrice(p.Currency, p.CurrentPrice),
		Badge:   c.stockTag(p),
	}
	if p.OriginalPrice > p.CurrentPrice {
		data.Discounted = true
		data.Original = formatPrice(p.Currency, p.OriginalPrice)
		data.Discount = int(math.Round((p.OriginalPrice - p.CurrentPrice) / p.OriginalPrice * 100))
	}

	var buf bytes.Buffer
	if err := bodyTmpl.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("render %s email: %w", kind, err)
	}

	return Message{
		Subject:  fmt.Sprintf(c.subject, ShortenTitle(p.Title)),
		HTMLBody: buf.String(),
	}, nil
}

// ShortenTitle cuts titles longer than 20 characters and appends "...".
func ShortenTitle(title string) string {
	r := []rune(title)
	if len(r) <= subjectTitleLen {
		return title
	}
	return string(r[:subjectTitleLen]) + "..."
}

func formatPrice(currency string, v float64) string {
	return currency + humanize.CommafWithDigits(v, 2)
}
