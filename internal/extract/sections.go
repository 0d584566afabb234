package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Regex resolves the first capture group of re against the raw page source.
// Inline script blobs are matched this way before the DOM is consulted.
func Regex(re *regexp.Regexp) Candidate[string] {
	return func(p *Page) (string, bool) {
		m := re.FindStringSubmatch(p.Raw)
		if len(m) < 2 {
			return "", false
		}
		v := strings.TrimSpace(unescapeJSON(m[1]))
		return v, v != ""
	}
}

func unescapeJSON(s string) string {
	return strings.NewReplacer(`\/`, `/`, `\u0026`, `&`).Replace(s)
}

// Bullets renders every match of selector as a "• item" line.
func Bullets(p *Page, selector string) string {
	items := p.Texts(selector)
	if len(items) == 0 {
		return ""
	}
	return "• " + strings.Join(items, "\n• ")
}

// Table renders rows as "key: value" lines. Rows missing either cell are skipped.
func Table(p *Page, rowSel, keySel, valSel string) string {
	var lines []string
	p.Doc.Find(rowSel).Each(func(_ int, row *goquery.Selection) {
		k := CollapseSpace(row.Find(keySel).First().Text())
		v := CollapseSpace(row.Find(valSel).First().Text())
		if k != "" && v != "" {
			lines = append(lines, k+": "+v)
		}
	})
	return strings.Join(lines, "\n")
}

// JoinSections joins the non-empty parts with a blank line.
func JoinSections(parts ...string) string {
	var out []string
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "\n\n")
}

// Breadcrumbs joins the texts of selector with " > ". Empty when nothing matched.
func Breadcrumbs(p *Page, selector string) string {
	return strings.Join(p.Texts(selector), " > ")
}

var codeSymbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

// SymbolForCode maps an ISO 4217 code to its glyph, passing unknown codes through.
func SymbolForCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if s, ok := codeSymbols[code]; ok {
		return s
	}
	return code
}
