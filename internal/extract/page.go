// Package extract holds the building blocks shared by the per-platform
// extractors: a parsed page, ordered candidate chains and tolerant number
// parsing.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Page is a parsed HTML document plus its raw source.
type Page struct {
	Doc *goquery.Document
	Raw string

	jsonLD []map[string]any
	ldDone bool
	inline map[string]map[string]any
}

// Parse builds a Page from raw HTML.
func Parse(raw string) (*Page, error) {
	root, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return &Page{Doc: goquery.NewDocumentFromNode(root), Raw: raw}, nil
}

// Text returns the collapsed text of the first element matching selector.
func (p *Page) Text(selector string) string {
	return CollapseSpace(p.Doc.Find(selector).First().Text())
}

// Attr returns the trimmed attribute of the first element matching selector.
func (p *Page) Attr(selector, attr string) string {
	v, _ := p.Doc.Find(selector).First().Attr(attr)
	return strings.TrimSpace(v)
}

// Texts returns the collapsed, non-empty texts of every match.
func (p *Page) Texts(selector string) []string {
	var out []string
	p.Doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if t := CollapseSpace(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// JSONLD returns every JSON-LD object on the page, flattening arrays and
// @graph containers.
func (p *Page) JSONLD() []map[string]any {
	if p.ldDone {
		return p.jsonLD
	}
	p.ldDone = true
	p.Doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		p.jsonLD = append(p.jsonLD, decodeLD(s.Text())...)
	})
	return p.jsonLD
}

// InlineJSON decodes the object literal assigned right after marker in the
// page source, as in `window.__myx = {...}`. Results are cached per marker;
// nil when the marker is absent or the value is not a JSON object.
func (p *Page) InlineJSON(marker string) map[string]any {
	if v, ok := p.inline[marker]; ok {
		return v
	}
	if p.inline == nil {
		p.inline = make(map[string]map[string]any)
	}
	p.inline[marker] = decodeInline(p.Raw, marker)
	return p.inline[marker]
}

func decodeInline(raw, marker string) map[string]any {
	i := strings.Index(raw, marker)
	if i < 0 {
		return nil
	}
	rest := raw[i+len(marker):]
	eq := strings.IndexByte(rest, '=')
	if eq < 0 {
		return nil
	}
	var obj map[string]any
	// Decode stops after the first value, so the trailing script is ignored.
	if err := json.NewDecoder(strings.NewReader(rest[eq+1:])).Decode(&obj); err != nil {
		return nil
	}
	return obj
}

// LDProduct returns the first JSON-LD object whose @type is Product.
func (p *Page) LDProduct() map[string]any {
	for _, obj := range p.JSONLD() {
		if hasType(obj, "Product") {
			return obj
		}
	}
	return nil
}

func decodeLD(data string) []map[string]any {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil
	}

	var single map[string]any
	if err := json.Unmarshal([]byte(data), &single); err == nil {
		if graph, ok := single["@graph"].([]any); ok {
			return objects(graph)
		}
		return []map[string]any{single}
	}

	var list []any
	if err := json.Unmarshal([]byte(data), &list); err == nil {
		return objects(list)
	}
	return nil
}

func objects(list []any) []map[string]any {
	var out []map[string]any
	for _, v := range list {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func hasType(obj map[string]any, want string) bool {
	switch t := obj["@type"].(type) {
	case string:
		return t == want
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}

// CollapseSpace trims s and folds internal whitespace runs into one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
