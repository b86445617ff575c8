// Package mcpserver wires the catalog, retrieval, and basket packages
// into an MCP tool server: the same mcp.NewServer/mcp.AddTool/
// mcp.NewStreamableHTTPHandler idiom, and the same
// route-registration/writeJSON/writeError shape, applied to the
// catalog+basket tool set.
package mcpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/potatoman03/shopmcp/internal/basket"
	"github.com/potatoman03/shopmcp/internal/catalog"
	"github.com/potatoman03/shopmcp/internal/embedding"
	"github.com/potatoman03/shopmcp/internal/model"
	"github.com/potatoman03/shopmcp/internal/retrieval"
	"github.com/potatoman03/shopmcp/internal/tenant"

	"log/slog"
)

const (
	serviceName        = "shopmcp-mcp-core"
	maxRequestBodySize = 1 << 20
)

// Server holds every dependency a tool handler needs and owns the HTTP
// surface: descriptor, health, tool invocation, and the MCP
// transports.
type Server struct {
	Repo      *catalog.Repository
	Basket    *basket.Manager
	Search    *retrieval.Service
	Resolver  *tenant.Resolver
	Embedder  embedding.Embedder
	V2Enabled bool
	Logger    *slog.Logger

	healthMu sync.RWMutex
	dbReady  bool
	dbErr    string
}

func NewServer(repo *catalog.Repository, basketMgr *basket.Manager, search *retrieval.Service, resolver *tenant.Resolver, embedder embedding.Embedder, v2Enabled bool, logger *slog.Logger) *Server {
	return &Server{
		Repo:      repo,
		Basket:    basketMgr,
		Search:    search,
		Resolver:  resolver,
		Embedder:  embedder,
		V2Enabled: v2Enabled,
		Logger:    logger,
	}
}

// SetHealth records the outcome of the startup DB connection attempt for
// the /health endpoint. Called once by cmd/mcpserver's main after it
// dials the pool.
func (s *Server) SetHealth(ready bool, errMsg string) {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()
	s.dbReady, s.dbErr = ready, errMsg
}

func (s *Server) health() (bool, string) {
	s.healthMu.RLock()
	defer s.healthMu.RUnlock()
	return s.dbReady, s.dbErr
}

// RegisterRoutes registers every route the server exposes: descriptor,
// health, oauth stubs, tool invocation, and the two MCP transports.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", s.handleDescriptor)
	mux.HandleFunc("GET /mcp", s.handleDescriptor)
	mux.HandleFunc("GET /mcp/", s.handleDescriptor)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /.well-known/oauth-protected-resource", s.handleOAuthProtectedResource)
	mux.HandleFunc("GET /.well-known/oauth-protected-resource/mcp/sse", s.handleOAuthProtectedResource)
	mux.HandleFunc("GET /.well-known/oauth-protected-resource/sse", s.handleOAuthProtectedResource)
	mux.HandleFunc("GET /.well-known/oauth-authorization-server", s.handleOAuthDisabled)
	mux.HandleFunc("GET /.well-known/openid-configuration", s.handleOAuthDisabled)

	mux.HandleFunc("POST /mcp/{slug}/tool/{tool}", s.handleToolInvoke)
	mux.HandleFunc("POST /mcp/tool/{tool}", s.handleToolInvokeBase)

	mcpServer := s.newMCPServer()
	streamable := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return mcpServer }, nil)
	mux.Handle("/mcp/sse", acceptRewrite(streamable))
	mux.Handle("/mcp-legacy", mcp.NewSSEHandler(func(*http.Request) *mcp.Server { return mcpServer }))
}

func (s *Server) handleToolInvoke(w http.ResponseWriter, r *http.Request) {
	s.invoke(w, r, r.PathValue("tool"), r.PathValue("slug"))
}

func (s *Server) handleToolInvokeBase(w http.ResponseWriter, r *http.Request) {
	s.invoke(w, r, r.PathValue("tool"), "")
}

// invoke implements the dispatcher contract: extract the path-scoped
// slug and install it on the context, pull arguments from the body's
// "arguments" field (or the whole body), inject the path slug when
// absent, call the tool, and wrap a non-map result as
// {"results": value}.
func (s *Server) invoke(w http.ResponseWriter, r *http.Request, tool, pathSlug string) {
	fn, ok := toolTable[tool]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]any{"code": "unknown_tool", "message": fmt.Sprintf("unknown tool: %s", tool)},
		})
		return
	}

	var body map[string]any
	if r.ContentLength != 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": map[string]any{"code": "invalid_request", "message": "invalid JSON body"},
			})
			return
		}
	}
	if body == nil {
		body = map[string]any{}
	}

	var args map[string]any
	if raw, has := body["arguments"]; has {
		m, isMap := raw.(map[string]any)
		if !isMap {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": map[string]any{"code": "invalid_request", "message": "tool arguments must be a JSON object"},
			})
			return
		}
		args = m
	} else {
		args = body
	}

	ctx := r.Context()
	if pathSlug != "" {
		if _, has := args["slug"]; !has {
			args["slug"] = pathSlug
		}
		ctx = tenant.WithSlug(ctx, pathSlug)
	}

	result, err := fn(ctx, s, args)
	if err != nil {
		s.writeToolError(w, tool, err)
		return
	}

	if m, isMap := result.(map[string]any); isMap {
		writeJSON(w, http.StatusOK, m)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": result})
}

// badArgsError marks an argument-decoding failure so the HTTP layer can
// answer 400 instead of 500, the Go analog of the source's TypeError ->
// HTTP 400 mapping.
type badArgsError struct{ err error }

func (e *badArgsError) Error() string { return fmt.Sprintf("invalid arguments: %v", e.err) }
func (e *badArgsError) Unwrap() error { return e.err }

func decodeArgs[T any](args map[string]any, out *T) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return &badArgsError{err}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &badArgsError{err}
	}
	return nil
}

func statusForCode(code string) int {
	switch code {
	case "product_not_found", "variant_not_found", "options_not_found", "no_variants",
		"basket_not_found", "basket_line_not_found":
		return http.StatusNotFound
	case "invalid_handle", "invalid_quantity", "invalid_variant_id", "invalid_items",
		"invalid_basket_id", "variant_selection_required", "missing_variant_id",
		"empty_basket", "basket_scope_error", "v2_disabled", "variant_unavailable",
		"unsupported_platform", "missing_variant_ids", "no_indexed_stores":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeToolError(w http.ResponseWriter, tool string, err error) {
	var badArgs *badArgsError
	if errors.As(err, &badArgs) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]any{"code": "invalid_request", "message": badArgs.Error()},
		})
		return
	}

	var itemsErr *basket.ItemsError
	if errors.As(err, &itemsErr) {
		code, msg, status := "checkout_items_failed", itemsErr.Error(), http.StatusBadRequest
		var inner *model.APIError
		if errors.As(itemsErr.Err, &inner) {
			code, msg, status = inner.Code, inner.Message, statusForCode(inner.Code)
		}
		writeJSON(w, status, map[string]any{
			"error": map[string]any{
				"code": code, "message": msg,
				"line_index": itemsErr.LineIndex, "added_count": itemsErr.AddedCount,
			},
		})
		return
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeJSON(w, statusForCode(apiErr.Code), map[string]any{
			"error": map[string]any{"code": apiErr.Code, "message": apiErr.Message},
		})
		return
	}

	s.Logger.Error("tool invocation failed", "tool", tool, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"error": map[string]any{"code": "internal_error", "message": "an internal error occurred"},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// mcpError converts a tool error into the plain error the MCP SDK
// surfaces to the calling agent.
func mcpError(err error) error {
	var itemsErr *basket.ItemsError
	if errors.As(err, &itemsErr) {
		return fmt.Errorf("checkout_items failed at line %d after adding %d: %w", itemsErr.LineIndex, itemsErr.AddedCount, itemsErr.Err)
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	return err
}
