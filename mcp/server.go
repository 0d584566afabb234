// Package mcp exposes pricepulse as Model Context Protocol tools over stdio
// and streamable HTTP.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "pricepulse"
	serverVersion = "1.0.0"
)

// NewServer builds an MCP server with all tools registered.
func NewServer(svc Service) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
	)
	registerTools(s, svc)
	return s
}

// Serve runs the MCP server on stdio until stdin closes.
func Serve(svc Service) error {
	return server.ServeStdio(NewServer(svc))
}
