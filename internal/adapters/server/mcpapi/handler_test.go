package mcpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/evanschultz/blockpush/internal/adapters/server/common"
	"github.com/mark3labs/mcp-go/mcp"
)

// stubRowService provides deterministic row responses for MCP tool tests.
type stubRowService struct {
	rows        []common.RowSummary
	layout      common.RowLayout
	swaps       []common.SwapEvent
	result      common.GestureResult
	err         error
	lastRowID   string
	lastLimit   int
	lastGesture common.ApplyGestureRequest
}

// ListRows returns fixture rows.
func (s *stubRowService) ListRows(context.Context) ([]common.RowSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]common.RowSummary(nil), s.rows...), nil
}

// GetRowLayout records the row id and returns the fixture layout.
func (s *stubRowService) GetRowLayout(_ context.Context, rowID string) (common.RowLayout, error) {
	s.lastRowID = rowID
	if s.err != nil {
		return common.RowLayout{}, s.err
	}
	return s.layout, nil
}

// ListSwapEvents records the request and returns fixture swaps.
func (s *stubRowService) ListSwapEvents(_ context.Context, rowID string, limit int) ([]common.SwapEvent, error) {
	s.lastRowID = rowID
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return append([]common.SwapEvent(nil), s.swaps...), nil
}

// ApplyGesture records the request and returns the fixture result.
func (s *stubRowService) ApplyGesture(_ context.Context, req common.ApplyGestureRequest) (common.GestureResult, error) {
	s.lastGesture = req
	if s.err != nil {
		return common.GestureResult{}, s.err
	}
	return s.result, nil
}

// jsonRPCResponse models minimal JSON-RPC response fields used in MCP adapter tests.
type jsonRPCResponse struct {
	ID     float64        `json:"id"`
	Result map[string]any `json:"result"`
}

// callToolRequest constructs one deterministic tools/call JSON-RPC request payload.
func callToolRequest(id int, toolName string, arguments map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": arguments,
		},
	}
}

// toolResultText decodes the first text entry from one tool-call result payload.
func toolResultText(t *testing.T, result map[string]any) string {
	t.Helper()

	contentRaw, ok := result["content"].([]any)
	if !ok || len(contentRaw) == 0 {
		t.Fatalf("content missing in tool result: %#v", result)
	}
	first, ok := contentRaw[0].(map[string]any)
	if !ok {
		t.Fatalf("first content entry has unexpected type: %#v", contentRaw[0])
	}
	text, ok := first["text"].(string)
	if !ok {
		t.Fatalf("content text missing in tool result: %#v", first)
	}
	return text
}

// toolResultStructured decodes structuredContent as one map for stable assertions.
func toolResultStructured(t *testing.T, result map[string]any) map[string]any {
	t.Helper()
	structured, ok := result["structuredContent"].(map[string]any)
	if !ok {
		t.Fatalf("structuredContent missing in tool result: %#v", result)
	}
	return structured
}

// postJSONRPC sends one JSON-RPC payload and decodes the response body.
func postJSONRPC(t *testing.T, client *http.Client, url string, payload any) (*http.Response, jsonRPCResponse) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	var decoded jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if err := resp.Body.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return resp, decoded
}

// initializeRequest builds a deterministic MCP initialize request payload.
func initializeRequest() map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": mcp.LATEST_PROTOCOL_VERSION,
			"clientInfo": map[string]any{
				"name":    "blockpush-test",
				"version": "1.0.0",
			},
		},
	}
}

// newTestServer starts one MCP handler over the stub service.
func newTestServer(t *testing.T, rows *stubRowService) *httptest.Server {
	t.Helper()
	handler, err := NewHandler(Config{}, rows)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	return server
}

// callToolResultText decodes the first textual content block from a CallToolResult.
func callToolResultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatalf("result = nil, want non-nil")
	}
	if len(result.Content) == 0 {
		t.Fatalf("result content is empty")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] has unexpected type %T", result.Content[0])
	}
	return text.Text
}

// TestHandlerUsesStatelessTransport verifies MCP transport does not issue session ids.
func TestHandlerUsesStatelessTransport(t *testing.T) {
	handler, err := NewHandler(Config{}, &stubRowService{})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	server := httptest.NewServer(handler)
	defer server.Close()

	resp, decoded := postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if decoded.ID != 1 {
		t.Fatalf("id = %v, want 1", decoded.ID)
	}
	if got := resp.Header.Get("Mcp-Session-Id"); got != "" {
		t.Fatalf("Mcp-Session-Id header = %q, want empty (stateless transport)", got)
	}
}

// TestHandlerRegistersRowTools verifies MCP tool discovery.
func TestHandlerRegistersRowTools(t *testing.T) {
	server := newTestServer(t, &stubRowService{})
	_, toolsResp := postJSONRPC(t, server.Client(), server.URL, map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/list",
	})

	toolsRaw, ok := toolsResp.Result["tools"].([]any)
	if !ok {
		t.Fatalf("tools list payload missing tools: %#v", toolsResp.Result)
	}
	toolNames := make([]string, 0, len(toolsRaw))
	for _, toolRaw := range toolsRaw {
		toolMap, ok := toolRaw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := toolMap["name"].(string)
		toolNames = append(toolNames, name)
	}
	for _, want := range []string{"blockpush.list_rows", "blockpush.get_layout", "blockpush.list_swaps", "blockpush.apply_gesture"} {
		if !slices.Contains(toolNames, want) {
			t.Fatalf("tool list missing %s: %#v", want, toolNames)
		}
	}
}

// TestHandlerReadToolCalls verifies list, layout, and swap tool calls.
func TestHandlerReadToolCalls(t *testing.T) {
	rows := &stubRowService{
		rows:   []common.RowSummary{{ID: "main", Name: "Main", BlockCount: 3}},
		layout: common.RowLayout{ID: "main", TotalExtent: 150, Order: []string{"a", "b", "c"}},
		swaps:  []common.SwapEvent{{ID: 7, MovedID: "a", Direction: "right"}},
	}
	server := newTestServer(t, rows)

	_, listResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(2, "blockpush.list_rows", map[string]any{}))
	listed, ok := toolResultStructured(t, listResp.Result)["rows"].([]any)
	if !ok || len(listed) != 1 {
		t.Fatalf("unexpected rows payload: %#v", listResp.Result)
	}

	_, layoutResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "blockpush.get_layout", map[string]any{
		"row_id": "main",
	}))
	layout := toolResultStructured(t, layoutResp.Result)
	if got, _ := layout["total_extent"].(float64); got != 150 {
		t.Fatalf("total_extent = %v, want 150", layout["total_extent"])
	}
	if rows.lastRowID != "main" {
		t.Fatalf("row_id = %q, want main", rows.lastRowID)
	}

	_, swapsResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(4, "blockpush.list_swaps", map[string]any{
		"row_id": "main",
		"limit":  5,
	}))
	swaps, ok := toolResultStructured(t, swapsResp.Result)["swaps"].([]any)
	if !ok || len(swaps) != 1 {
		t.Fatalf("unexpected swaps payload: %#v", swapsResp.Result)
	}
	if rows.lastLimit != 5 {
		t.Fatalf("limit = %d, want 5", rows.lastLimit)
	}
}

// TestHandlerApplyGestureToolCall verifies event binding for the gesture tool.
func TestHandlerApplyGestureToolCall(t *testing.T) {
	rows := &stubRowService{result: common.GestureResult{
		Handled: []bool{true, true, true},
		Layout:  common.RowLayout{ID: "main", Order: []string{"b", "a", "c"}},
	}}
	server := newTestServer(t, rows)

	_, callResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "blockpush.apply_gesture", map[string]any{
		"row_id": "main",
		"events": []map[string]any{
			{"kind": "begin", "block": "a"},
			{"kind": "change", "translation": 60},
			{"kind": "end"},
		},
	}))
	result := toolResultStructured(t, callResp.Result)
	layout, ok := result["layout"].(map[string]any)
	if !ok {
		t.Fatalf("layout missing in result: %#v", result)
	}
	if order, _ := layout["order"].([]any); len(order) != 3 || order[0] != "b" {
		t.Fatalf("unexpected order %#v", layout["order"])
	}
	if rows.lastGesture.RowID != "main" || len(rows.lastGesture.Events) != 3 {
		t.Fatalf("unexpected gesture request %#v", rows.lastGesture)
	}
	if got := rows.lastGesture.Events[1]; got.Kind != "change" || got.Translation != 60 {
		t.Fatalf("unexpected change event %#v", got)
	}
}

// TestHandlerToolCallErrorPaths verifies required-arg and mapped-service errors.
func TestHandlerToolCallErrorPaths(t *testing.T) {
	server := newTestServer(t, &stubRowService{})
	_, missingResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(2, "blockpush.get_layout", map[string]any{}))
	if isError, _ := missingResp.Result["isError"].(bool); !isError {
		t.Fatalf("isError = false, want true: %#v", missingResp.Result)
	}
	if text := toolResultText(t, missingResp.Result); !strings.Contains(text, "row_id") {
		t.Fatalf("text = %q, want row_id mention", text)
	}

	_, gestureResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "blockpush.apply_gesture", map[string]any{
		"events": []map[string]any{{"kind": "end"}},
	}))
	if text := toolResultText(t, gestureResp.Result); !strings.Contains(text, "row_id") {
		t.Fatalf("text = %q, want row_id mention", text)
	}

	failing := newTestServer(t, &stubRowService{err: errors.Join(common.ErrNotFound, errors.New("missing row"))})
	_, notFoundResp := postJSONRPC(t, failing.Client(), failing.URL, callToolRequest(4, "blockpush.get_layout", map[string]any{
		"row_id": "nope",
	}))
	if text := toolResultText(t, notFoundResp.Result); !strings.HasPrefix(text, "not_found:") {
		t.Fatalf("text = %q, want not_found prefix", text)
	}
}

// TestNewHandlerRequiresRowService verifies dependency enforcement.
func TestNewHandlerRequiresRowService(t *testing.T) {
	handler, err := NewHandler(Config{}, nil)
	if err == nil {
		t.Fatalf("NewHandler() error = nil, want non-nil")
	}
	if handler != nil {
		t.Fatalf("handler = %#v, want nil", handler)
	}
}

// TestNormalizeConfig verifies MCP config defaults and endpoint normalization.
func TestNormalizeConfig(t *testing.T) {
	cases := []struct {
		name string
		in   Config
		want Config
	}{
		{
			name: "defaults",
			in:   Config{},
			want: Config{ServerName: "blockpush", ServerVersion: "dev", EndpointPath: "/mcp"},
		},
		{
			name: "trims and prefixes",
			in:   Config{ServerName: " rows ", ServerVersion: " 1.2.3 ", EndpointPath: "tools/mcp/"},
			want: Config{ServerName: "rows", ServerVersion: "1.2.3", EndpointPath: "/tools/mcp"},
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeConfig(tt.in); got != tt.want {
				t.Fatalf("normalizeConfig() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

// TestHandlerServeHTTPUnavailable verifies nil-safe handler behavior.
func TestHandlerServeHTTPUnavailable(t *testing.T) {
	cases := []struct {
		name    string
		handler *Handler
	}{
		{
			name:    "nil receiver",
			handler: nil,
		},
		{
			name:    "missing inner http handler",
			handler: &Handler{},
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(`{}`))
			rec := httptest.NewRecorder()

			tt.handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusServiceUnavailable {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
			}
			if !strings.Contains(rec.Body.String(), "mcp handler unavailable") {
				t.Fatalf("body = %q, want mcp handler unavailable", rec.Body.String())
			}
		})
	}
}

// TestToolResultFromErrorMapping verifies deterministic error-to-tool-result mapping.
func TestToolResultFromErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantPrefix string
	}{
		{name: "nil error", err: nil, wantPrefix: "unknown error"},
		{name: "invalid request", err: errors.Join(common.ErrInvalidRequest, errors.New("bad")), wantPrefix: "invalid_request:"},
		{name: "not found", err: errors.Join(common.ErrNotFound, errors.New("missing")), wantPrefix: "not_found:"},
		{name: "unavailable", err: common.ErrServiceUnavailable, wantPrefix: "service_unavailable:"},
		{name: "internal", err: errors.New("boom"), wantPrefix: "internal_error:"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			result := toolResultFromError(tt.err)
			if !result.IsError {
				t.Fatalf("IsError = false, want true")
			}
			if got := callToolResultText(t, result); !strings.HasPrefix(got, tt.wantPrefix) {
				t.Fatalf("text = %q, want prefix %q", got, tt.wantPrefix)
			}
		})
	}
}
