package httputil

import "net/http"

// BrowserHeaders returns the document-navigation headers a desktop browser
// sends. The stealth fingerprint layers its own user agent on top.
func BrowserHeaders() http.Header {
	h := http.Header{}
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "en-IN,en-US;q=0.9,en;q=0.8")
	h.Set("Accept-Encoding", "gzip, deflate, br")
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Sec-Fetch-User", "?1")
	return h
}

// SetHeaders copies every header in src onto req, replacing existing values.
func SetHeaders(req *http.Request, src http.Header) {
	for k, v := range src {
		req.Header[k] = append([]string(nil), v...)
	}
}
