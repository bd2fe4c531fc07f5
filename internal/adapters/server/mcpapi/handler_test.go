package mcpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/evanschultz/mailkan/internal/adapters/api"
	"github.com/evanschultz/mailkan/internal/app"
	"github.com/evanschultz/mailkan/internal/domain"
	"github.com/mark3labs/mcp-go/mcp"
)

// stubService provides deterministic triage responses for MCP tool tests.
type stubService struct {
	board      domain.Board
	columns    []domain.Column
	labels     []domain.GmailLabel
	semantic   domain.SemanticPage
	stats      domain.Statistics
	snoozeAt   time.Time
	err        error
	lastFilter domain.BoardFilter
	lastMove   [2]string
	lastSnooze [2]string
	lastQuery  string
	lastLimit  int
	lastPeriod domain.Period
}

// LoadBoardFiltered records the filter and returns the fixture board.
func (s *stubService) LoadBoardFiltered(_ context.Context, filter domain.BoardFilter) (domain.Board, error) {
	s.lastFilter = filter
	if s.err != nil {
		return domain.Board{}, s.err
	}
	return s.board, nil
}

// MoveCardTo records the move request.
func (s *stubService) MoveCardTo(_ context.Context, emailID, columnKey string) error {
	s.lastMove = [2]string{emailID, columnKey}
	return s.err
}

// SnoozeCard records the snooze request and returns the fixture time.
func (s *stubService) SnoozeCard(_ context.Context, emailID, when string) (time.Time, error) {
	s.lastSnooze = [2]string{emailID, when}
	if s.err != nil {
		return time.Time{}, s.err
	}
	return s.snoozeAt, nil
}

// ListColumns returns fixture columns.
func (s *stubService) ListColumns(context.Context) ([]domain.Column, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.Column(nil), s.columns...), nil
}

// ListGmailLabels returns fixture labels.
func (s *stubService) ListGmailLabels(context.Context) ([]domain.GmailLabel, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.GmailLabel(nil), s.labels...), nil
}

// SemanticSearch records the query and returns the fixture page.
func (s *stubService) SemanticSearch(_ context.Context, query string, limit int) (domain.SemanticPage, error) {
	s.lastQuery, s.lastLimit = query, limit
	if s.err != nil {
		return domain.SemanticPage{}, s.err
	}
	return s.semantic, nil
}

// Statistics records the period and returns fixture statistics.
func (s *stubService) Statistics(_ context.Context, period domain.Period) (domain.Statistics, error) {
	s.lastPeriod = period
	if s.err != nil {
		return domain.Statistics{}, s.err
	}
	return s.stats, nil
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
				"name":    "mailkan-test",
				"version": "1.0.0",
			},
		},
	}
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

// newTestServer starts one handler over svc and runs the initialize handshake.
func newTestServer(t *testing.T, svc Service) *httptest.Server {
	t.Helper()
	handler, err := NewHandler(Config{}, svc)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	return server
}

// TestHandlerUsesStatelessTransport verifies MCP transport does not issue session ids.
func TestHandlerUsesStatelessTransport(t *testing.T) {
	handler, err := NewHandler(Config{}, &stubService{})
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

// TestHandlerRegistersTriageTools verifies MCP tool discovery lists the full surface.
func TestHandlerRegistersTriageTools(t *testing.T) {
	server := newTestServer(t, &stubService{})
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
	for _, want := range []string{
		"mailkan.board",
		"mailkan.move_card",
		"mailkan.snooze_card",
		"mailkan.semantic_search",
		"mailkan.statistics",
		"mailkan.columns",
	} {
		if !slices.Contains(toolNames, want) {
			t.Fatalf("tool list missing %s: %#v", want, toolNames)
		}
	}
}

// TestHandlerBoardToolCall verifies filter forwarding and key-ordered output.
func TestHandlerBoardToolCall(t *testing.T) {
	received := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	svc := &stubService{
		board: domain.MergeBoard(
			[]domain.ColumnMeta{{Key: "inbox", Label: "Inbox"}, {Key: "done", Label: "Done"}},
			map[string][]domain.Card{"inbox": {{ID: "1", Sender: "GitHub", Subject: "PR merged", ReceivedAt: received}}},
		),
	}
	server := newTestServer(t, svc)

	_, resp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "mailkan.board", map[string]any{
		"unread":     true,
		"sort_by":    "sender",
		"sort_order": "asc",
	}))
	structured := toolResultStructured(t, resp.Result)
	if got, _ := structured["card_count"].(float64); got != 1 {
		t.Fatalf("card_count = %v, want 1", structured["card_count"])
	}
	cols, _ := structured["columns"].([]any)
	if len(cols) != 2 {
		t.Fatalf("columns = %#v, want 2 entries", structured["columns"])
	}
	last, _ := cols[1].(map[string]any)
	if got, _ := last["key"].(string); got != "done" {
		t.Fatalf("columns[1].key = %q, want done", got)
	}
	if cards, _ := last["cards"].([]any); cards == nil || len(cards) != 0 {
		t.Fatalf("done cards = %#v, want empty list", last["cards"])
	}
	want := domain.BoardFilter{UnreadOnly: true, SortBy: domain.SortSender, SortOrder: domain.SortAsc}
	if svc.lastFilter != want {
		t.Fatalf("filter = %#v, want %#v", svc.lastFilter, want)
	}
}

// TestHandlerBoardToolRejectsUnknownSort verifies sort validation happens before the service call.
func TestHandlerBoardToolRejectsUnknownSort(t *testing.T) {
	svc := &stubService{}
	server := newTestServer(t, svc)

	_, resp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "mailkan.board", map[string]any{
		"sort_by": "subject",
	}))
	if isErr, _ := resp.Result["isError"].(bool); !isErr {
		t.Fatalf("isError = false, want true: %#v", resp.Result)
	}
	if got := toolResultText(t, resp.Result); !strings.HasPrefix(got, "invalid_request:") {
		t.Fatalf("text = %q, want invalid_request prefix", got)
	}
}

// TestHandlerMoveAndSnoozeToolCalls verifies argument forwarding for card mutations.
func TestHandlerMoveAndSnoozeToolCalls(t *testing.T) {
	until := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	svc := &stubService{snoozeAt: until}
	server := newTestServer(t, svc)

	_, moveResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "mailkan.move_card", map[string]any{
		"email_id":   "2",
		"column_key": "done",
	}))
	moved := toolResultStructured(t, moveResp.Result)
	if got, _ := moved["column_key"].(string); got != "done" {
		t.Fatalf("column_key = %q, want done", got)
	}
	if svc.lastMove != [2]string{"2", "done"} {
		t.Fatalf("move = %#v, want [2 done]", svc.lastMove)
	}

	_, snoozeResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(4, "mailkan.snooze_card", map[string]any{
		"email_id": "2",
		"until":    "tomorrow",
	}))
	snoozed := toolResultStructured(t, snoozeResp.Result)
	if got, _ := snoozed["snoozed_until"].(string); got != until.Format(time.RFC3339) {
		t.Fatalf("snoozed_until = %q, want %q", got, until.Format(time.RFC3339))
	}
	if svc.lastSnooze != [2]string{"2", "tomorrow"} {
		t.Fatalf("snooze = %#v, want [2 tomorrow]", svc.lastSnooze)
	}
}

// TestHandlerRequiredArguments verifies missing required arguments surface as tool errors.
func TestHandlerRequiredArguments(t *testing.T) {
	svc := &stubService{}
	server := newTestServer(t, svc)

	cases := []struct {
		tool string
		args map[string]any
	}{
		{tool: "mailkan.move_card", args: map[string]any{"email_id": "1"}},
		{tool: "mailkan.snooze_card", args: map[string]any{"until": "tomorrow"}},
		{tool: "mailkan.semantic_search", args: map[string]any{}},
	}
	for i, tt := range cases {
		t.Run(tt.tool, func(t *testing.T) {
			_, resp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(10+i, tt.tool, tt.args))
			if isErr, _ := resp.Result["isError"].(bool); !isErr {
				t.Fatalf("isError = false, want true: %#v", resp.Result)
			}
		})
	}
	if svc.lastMove != [2]string{} || svc.lastSnooze != [2]string{} || svc.lastQuery != "" {
		t.Fatalf("service called despite missing arguments: %#v", svc)
	}
}

// TestNewHandlerRequiresService verifies dependency enforcement.
func TestNewHandlerRequiresService(t *testing.T) {
	handler, err := NewHandler(Config{}, nil)
	if err == nil {
		t.Fatalf("NewHandler() error = nil, want non-nil")
	}
	if handler != nil {
		t.Fatalf("handler = %#v, want nil", handler)
	}
}

// TestNormalizeConfig verifies deterministic config defaults and path normalization.
func TestNormalizeConfig(t *testing.T) {
	cases := []struct {
		name string
		in   Config
		want Config
	}{
		{
			name: "defaults",
			in:   Config{},
			want: Config{ServerName: "mailkan", ServerVersion: "dev", EndpointPath: "/mcp"},
		},
		{
			name: "trim and slash",
			in:   Config{ServerName: " triage ", ServerVersion: " 1.2.0 ", EndpointPath: "tools/mcp/"},
			want: Config{ServerName: "triage", ServerVersion: "1.2.0", EndpointPath: "/tools/mcp"},
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

// TestHandlerServeHTTPUnavailable verifies nil handlers fail closed.
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
		{
			name:       "nil error",
			err:        nil,
			wantPrefix: "unknown error",
		},
		{
			name:       "not logged in",
			err:        fmt.Errorf("load board: %w", app.ErrNotLoggedIn),
			wantPrefix: "auth_required:",
		},
		{
			name:       "expired session",
			err:        api.ErrSessionExpired,
			wantPrefix: "auth_required:",
		},
		{
			name:       "offline",
			err:        fmt.Errorf("fetch board: %w", api.ErrOffline),
			wantPrefix: "offline:",
		},
		{
			name:       "invalid snooze",
			err:        domain.ErrInvalidSnooze,
			wantPrefix: "invalid_request:",
		},
		{
			name:       "empty query",
			err:        app.ErrEmptyQuery,
			wantPrefix: "invalid_request:",
		},
		{
			name:       "unknown column",
			err:        fmt.Errorf("%w: archive", domain.ErrUnknownColumn),
			wantPrefix: "not_found:",
		},
		{
			name:       "backend 404",
			err:        &api.StatusError{Status: http.StatusNotFound, Message: "email not found"},
			wantPrefix: "not_found:",
		},
		{
			name:       "backend 400",
			err:        &api.StatusError{Status: http.StatusBadRequest, Message: "unknown column"},
			wantPrefix: "invalid_request:",
		},
		{
			name:       "backend 500",
			err:        &api.StatusError{Status: http.StatusInternalServerError, Message: "move failed"},
			wantPrefix: "internal_error:",
		},
		{
			name:       "internal",
			err:        errors.New("boom"),
			wantPrefix: "internal_error:",
		},
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
