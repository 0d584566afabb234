package mcp

import (
	"net/http"

	"github.com/mark3labs/mcp-go/server"

	"github.com/lukman83/pricepulse/internal/api"
)

// Handler returns the stateless streamable HTTP endpoint, guarded by a
// bearer token when apiKey is non-empty. Mount it at /mcp.
func Handler(svc Service, apiKey string) http.Handler {
	var h http.Handler = server.NewStreamableHTTPServer(NewServer(svc), server.WithStateLess(true))
	if apiKey != "" {
		h = api.BearerAuth(apiKey, "mcp", h)
	}
	return h
}
