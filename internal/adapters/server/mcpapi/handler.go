// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/evanschultz/blockpush/internal/adapters/server/common"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing the row tools.
func NewHandler(cfg Config, rows common.RowService) (*Handler, error) {
	if rows == nil {
		return nil, fmt.Errorf("row service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerRowTools(mcpSrv, rows)
	registerGestureTool(mcpSrv, rows)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "blockpush"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerRowTools registers the read-only row tools.
func registerRowTools(srv *mcpserver.MCPServer, rows common.RowService) {
	srv.AddTool(
		mcp.NewTool(
			"blockpush.list_rows",
			mcp.WithDescription("List persisted rows with their block counts."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			list, err := rows.ListRows(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"rows": list,
			})
			if err != nil {
				return nil, fmt.Errorf("encode list_rows result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"blockpush.get_layout",
			mcp.WithDescription("Return one row's blocks in slot order with their resting offsets."),
			mcp.WithString("row_id", mcp.Required(), mcp.Description("Row identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			rowID, err := req.RequireString("row_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			layout, err := rows.GetRowLayout(ctx, rowID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(layout)
			if err != nil {
				return nil, fmt.Errorf("encode get_layout result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"blockpush.list_swaps",
			mcp.WithDescription("List recorded swaps for one row, newest first."),
			mcp.WithString("row_id", mcp.Required(), mcp.Description("Row identifier")),
			mcp.WithNumber("limit", mcp.Description("Maximum swaps to return (defaults to 50)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			rowID, err := req.RequireString("row_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			swaps, err := rows.ListSwapEvents(ctx, rowID, req.GetInt("limit", 0))
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"swaps": swaps,
			})
			if err != nil {
				return nil, fmt.Errorf("encode list_swaps result: %w", err)
			}
			return result, nil
		},
	)
}

// registerGestureTool registers the `blockpush.apply_gesture` tool.
func registerGestureTool(srv *mcpserver.MCPServer, rows common.RowService) {
	srv.AddTool(
		mcp.NewTool(
			"blockpush.apply_gesture",
			mcp.WithDescription("Drive one drag gesture against a row and persist the resulting order. A gesture left open is cancelled."),
			mcp.WithString("row_id", mcp.Required(), mcp.Description("Row identifier")),
			mcp.WithArray(
				"events",
				mcp.Required(),
				mcp.Description("Ordered gesture events"),
				mcp.Items(map[string]any{
					"type": "object",
					"properties": map[string]any{
						"kind":        map[string]any{"type": "string", "enum": []string{"begin", "change", "end", "cancel"}},
						"block":       map[string]any{"type": "string"},
						"translation": map[string]any{"type": "number"},
					},
					"required": []string{"kind"},
				}),
			),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args common.ApplyGestureRequest
			if err := req.BindArguments(&args); err != nil {
				return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
			}
			if strings.TrimSpace(args.RowID) == "" {
				return mcp.NewToolResultError(`required argument "row_id" not found`), nil
			}
			res, err := rows.ApplyGesture(ctx, args)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(res)
			if err != nil {
				return nil, fmt.Errorf("encode apply_gesture result: %w", err)
			}
			return result, nil
		},
	)
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, common.ErrServiceUnavailable):
		return mcp.NewToolResultError("service_unavailable: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
