package extract

import (
	"encoding/json"
	"strings"
)

// Lookup walks nested maps by key. Arrays along the way resolve to their
// first element, which is how offers and images usually appear in JSON-LD.
func Lookup(v any, keys ...string) any {
	cur := v
	for _, k := range keys {
		cur = firstOf(cur)
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[k]
	}
	return cur
}

func firstOf(v any) any {
	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return nil
		}
		return arr[0]
	}
	return v
}

// AsString returns v as a trimmed string. Numbers are formatted; arrays
// resolve to their first element; objects with a url or @id key resolve to it.
func AsString(v any) string {
	switch t := firstOf(v).(type) {
	case string:
		return strings.TrimSpace(t)
	case float64, json.Number:
		b, _ := json.Marshal(t)
		return string(b)
	case map[string]any:
		if s, ok := t["url"].(string); ok {
			return strings.TrimSpace(s)
		}
		if s, ok := t["@id"].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// AsNumber returns v as a number, parsing strings tolerantly.
func AsNumber(v any) (float64, bool) {
	switch t := firstOf(v).(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		return ParseNumber(t)
	}
	return 0, false
}

// LD resolves a string from the page's JSON-LD Product.
func LD(keys ...string) Candidate[string] {
	return func(p *Page) (string, bool) {
		s := AsString(Lookup(p.LDProduct(), keys...))
		return s, s != ""
	}
}

// LDNumber resolves a number from the page's JSON-LD Product.
func LDNumber(keys ...string) Candidate[float64] {
	return func(p *Page) (float64, bool) {
		prod := p.LDProduct()
		if prod == nil {
			return 0, false
		}
		v, ok := AsNumber(Lookup(prod, keys...))
		return v, ok && v > 0
	}
}
