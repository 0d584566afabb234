package api

import (
	"encoding/json"
	"net/http"
)

// ProblemDetails is an RFC 7807 error body.
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func (p *ProblemDetails) Error() string {
	return p.Title + ": " + p.Detail
}

// WriteError writes an application/problem+json response.
func WriteError(w http.ResponseWriter, status int, title, detail, instance string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

func writeInternalServerError(w http.ResponseWriter, r *http.Request, detail string) {
	WriteError(w, http.StatusInternalServerError, "Internal Server Error", detail, r.URL.Path)
}

func writeMethodNotAllowed(w http.ResponseWriter, r *http.Request, allow string) {
	w.Header().Set("Allow", allow)
	WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" is not supported", r.URL.Path)
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	WriteError(w, http.StatusUnauthorized, "Unauthorized", detail, r.URL.Path)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
