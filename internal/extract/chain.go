package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Candidate tries to resolve one field from a page.
type Candidate[T any] func(*Page) (T, bool)

// First evaluates candidates in order and returns the first resolved value.
func First[T any](p *Page, chain ...Candidate[T]) (T, bool) {
	for _, c := range chain {
		if v, ok := c(p); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Or is First with a default for an unresolved chain.
func Or[T any](p *Page, def T, chain ...Candidate[T]) T {
	if v, ok := First(p, chain...); ok {
		return v
	}
	return def
}

// Text resolves the collapsed text of the first match of selector.
func Text(selector string) Candidate[string] {
	return func(p *Page) (string, bool) {
		t := p.Text(selector)
		return t, t != ""
	}
}

// Texts is one Text candidate per selector, in order.
func Texts(selectors ...string) []Candidate[string] {
	out := make([]Candidate[string], 0, len(selectors))
	for _, s := range selectors {
		out = append(out, Text(s))
	}
	return out
}

// Attr resolves an attribute of the first match of selector.
func Attr(selector, attr string) Candidate[string] {
	return func(p *Page) (string, bool) {
		v := p.Attr(selector, attr)
		return v, v != ""
	}
}

// Number parses the string a candidate resolves. Unparseable values are
// skipped so the chain moves on.
func Number(c Candidate[string]) Candidate[float64] {
	return func(p *Page) (float64, bool) {
		s, ok := c(p)
		if !ok {
			return 0, false
		}
		return ParseNumber(s)
	}
}

// Price is a Number candidate that only accepts positive values.
func Price(c Candidate[string]) Candidate[float64] {
	n := Number(c)
	return func(p *Page) (float64, bool) {
		v, ok := n(p)
		return v, ok && v > 0
	}
}

// Prices is one Price(Text(selector)) candidate per selector, in order.
func Prices(selectors ...string) []Candidate[float64] {
	out := make([]Candidate[float64], 0, len(selectors))
	for _, s := range selectors {
		out = append(out, Price(Text(s)))
	}
	return out
}

// Contains resolves true when the text of selector contains any of the
// phrases, compared case-insensitively.
func Contains(selector string, phrases ...string) Candidate[bool] {
	return func(p *Page) (bool, bool) {
		text := strings.ToLower(p.Doc.Find(selector).Text())
		if text == "" {
			return false, false
		}
		for _, ph := range phrases {
			if strings.Contains(text, strings.ToLower(ph)) {
				return true, true
			}
		}
		return false, false
	}
}

// Exists resolves true when selector matches any element.
func Exists(selector string) Candidate[bool] {
	return func(p *Page) (bool, bool) {
		return true, p.Doc.Find(selector).Length() > 0
	}
}

var reNumber = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// ParseNumber pulls the first number out of s, dropping currency glyphs and
// thousands separators: "₹1,299.00" → 1299, "4.3 out of 5" → 4.3.
func ParseNumber(s string) (float64, bool) {
	m := reNumber.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseCount parses s as a whole number, e.g. "12,345 ratings" → 12345.
func ParseCount(s string) (int, bool) {
	v, ok := ParseNumber(s)
	if !ok {
		return 0, false
	}
	return int(v), true
}

var reCurrency = regexp.MustCompile(`[$€£¥₹]|Rs\.?`)

// CurrencySymbol returns the first currency glyph in s.
func CurrencySymbol(s string) (string, bool) {
	m := reCurrency.FindString(s)
	if strings.HasPrefix(m, "Rs") {
		return "₹", true
	}
	return m, m != ""
}
