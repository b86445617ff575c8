package mcpserver

import (
	"net/http"
	"strings"
)

func (s *Server) handleDescriptor(w http.ResponseWriter, r *http.Request) {
	base := baseURL(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":           true,
		"service":      serviceName,
		"transport":    "streamable-http",
		"sse_url":      base + "/mcp/sse",
		"messages_url": base + "/mcp/sse",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ready, dbErr := s.health()
	embedderEnabled := s.Embedder != nil && s.Embedder.Enabled()
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":               true,
		"service":          serviceName,
		"db_ready":         ready,
		"embedder_enabled": embedderEnabled,
		"mcp_v2_enabled":   s.V2Enabled,
		"db_error":         dbErr,
	})
}

// handleOAuthProtectedResource advertises the MCP resource directly with
// no authorization servers, since this deployment requires no OAuth.
func (s *Server) handleOAuthProtectedResource(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"resource":              baseURL(r) + "/mcp/sse",
		"authorization_servers": []string{},
	})
}

func (s *Server) handleOAuthDisabled(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"oauth_supported": false})
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// acceptRewrite normalizes a missing or wildcard Accept header on
// /mcp/sse to the dual content type the streamable transport expects:
// a bare curl or browser probe rarely sends
// "application/json, text/event-stream" itself.
func acceptRewrite(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept := strings.TrimSpace(r.Header.Get("Accept"))
		if accept == "" || accept == "*/*" {
			r.Header.Set("Accept", "application/json, text/event-stream")
		}
		next.ServeHTTP(w, r)
	})
}
