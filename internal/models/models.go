package models

import (
	"strings"
	"time"
)

// Platform identifies the e-commerce site a product URL belongs to.
type Platform string

const (
	PlatformAmazon   Platform = "amazon"
	PlatformFlipkart Platform = "flipkart"
	PlatformMyntra   Platform = "myntra"
	PlatformUnknown  Platform = "unknown"
)

// PriceHistoryItem is one sample in a product's append-only price series.
type PriceHistoryItem struct {
	Price float64   `json:"price"`
	Date  time.Time `json:"date"`
}

// Subscriber is an email address subscribed to alerts for one product.
type Subscriber struct {
	Email     string    `json:"email"`
	DateAdded time.Time `json:"date_added"`
}

// ScrapedProduct is the transient output of a single extraction.
type ScrapedProduct struct {
	URL           string   `json:"url"`
	Platform      Platform `json:"platform"`
	Title         string   `json:"title"`
	Image         string   `json:"image,omitempty"`
	Currency      string   `json:"currency"`
	Category      string   `json:"category,omitempty"`
	Description   string   `json:"description,omitempty"`
	CurrentPrice  float64  `json:"current_price"`
	OriginalPrice float64  `json:"original_price"`
	DiscountRate  float64  `json:"discount_rate"`
	IsOutOfStock  bool     `json:"is_out_of_stock"`
	Stars         float64  `json:"stars"`
	ReviewsCount  int      `json:"reviews_count"`
}

// Product is the persisted record of a tracked URL.
type Product struct {
	ScrapedProduct

	PriceHistory []PriceHistoryItem `json:"price_history"`
	LowestPrice  float64            `json:"lowest_price"`
	HighestPrice float64            `json:"highest_price"`
	AveragePrice float64            `json:"average_price"`
	Subscribers  []Subscriber       `json:"subscribers"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// HasSubscriber reports whether email is already subscribed (case-insensitive).
func (p Product) HasSubscriber(email string) bool {
	for _, s := range p.Subscribers {
		if strings.EqualFold(s.Email, email) {
			return true
		}
	}
	return false
}

// SubscriberEmails returns the subscriber addresses in insertion order.
func (p Product) SubscriberEmails() []string {
	emails := make([]string, 0, len(p.Subscribers))
	for _, s := range p.Subscribers {
		emails = append(emails, s.Email)
	}
	return emails
}

// Clone returns a deep copy so callers can mutate slices without aliasing.
func (p Product) Clone() Product {
	out := p
	out.PriceHistory = append([]PriceHistoryItem(nil), p.PriceHistory...)
	out.Subscribers = append([]Subscriber(nil), p.Subscribers...)
	return out
}
