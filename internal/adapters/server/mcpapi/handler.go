// Package mcpapi provides a stateless MCP streamable-HTTP adapter over the triage service.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/evanschultz/mailkan/internal/adapters/api"
	"github.com/evanschultz/mailkan/internal/app"
	"github.com/evanschultz/mailkan/internal/domain"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// BoardService is the board surface exposed as tools.
type BoardService interface {
	LoadBoardFiltered(context.Context, domain.BoardFilter) (domain.Board, error)
	MoveCardTo(ctx context.Context, emailID, columnKey string) error
	SnoozeCard(ctx context.Context, emailID, when string) (time.Time, error)
	ListColumns(context.Context) ([]domain.Column, error)
	ListGmailLabels(context.Context) ([]domain.GmailLabel, error)
}

// InsightService is the search and dashboard surface exposed as tools.
type InsightService interface {
	SemanticSearch(ctx context.Context, query string, limit int) (domain.SemanticPage, error)
	Statistics(context.Context, domain.Period) (domain.Statistics, error)
}

// Service is everything the handler needs; *app.Service satisfies it.
type Service interface {
	BoardService
	InsightService
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter with board, search, and statistics tools.
func NewHandler(cfg Config, svc Service) (*Handler, error) {
	if svc == nil {
		return nil, fmt.Errorf("triage service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerBoardTools(mcpSrv, svc)
	registerColumnTools(mcpSrv, svc)
	registerInsightTools(mcpSrv, svc)

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
		cfg.ServerName = "mailkan"
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

// registerBoardTools registers board read, move, and snooze tools.
func registerBoardTools(srv *mcpserver.MCPServer, board BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"mailkan.board",
			mcp.WithDescription("Return the triage board grouped by column key."),
			mcp.WithBoolean("unread", mcp.Description("Only unread cards")),
			mcp.WithBoolean("attachments", mcp.Description("Only cards with attachments")),
			mcp.WithString("sort_by", mcp.Description("Sort key"), mcp.Enum(string(domain.SortReceivedAt), string(domain.SortSender))),
			mcp.WithString("sort_order", mcp.Description("Sort direction"), mcp.Enum(string(domain.SortAsc), string(domain.SortDesc))),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			sortBy, ok := domain.ParseSortField(req.GetString("sort_by", ""))
			if !ok {
				return mcp.NewToolResultError("invalid_request: unsupported sort_by"), nil
			}
			sortOrder, ok := domain.ParseSortOrder(req.GetString("sort_order", ""))
			if !ok {
				return mcp.NewToolResultError("invalid_request: unsupported sort_order"), nil
			}
			b, err := board.LoadBoardFiltered(ctx, domain.BoardFilter{
				UnreadOnly:      req.GetBool("unread", false),
				AttachmentsOnly: req.GetBool("attachments", false),
				SortBy:          sortBy,
				SortOrder:       sortOrder,
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(boardView(b))
			if err != nil {
				return nil, fmt.Errorf("encode board result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"mailkan.move_card",
			mcp.WithDescription("Move one card to another column."),
			mcp.WithString("email_id", mcp.Required(), mcp.Description("Email id of the card")),
			mcp.WithString("column_key", mcp.Required(), mcp.Description("Target column key")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			emailID, err := req.RequireString("email_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			columnKey, err := req.RequireString("column_key")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := board.MoveCardTo(ctx, emailID, columnKey); err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(moveView{EmailID: emailID, ColumnKey: columnKey})
			if err != nil {
				return nil, fmt.Errorf("encode move_card result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"mailkan.snooze_card",
			mcp.WithDescription("Hide one card until a preset or RFC3339 time."),
			mcp.WithString("email_id", mcp.Required(), mcp.Description("Email id of the card")),
			mcp.WithString("until", mcp.Required(), mcp.Description("later_today, tomorrow, next_week, or an RFC3339 timestamp")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			emailID, err := req.RequireString("email_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			when, err := req.RequireString("until")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			until, err := board.SnoozeCard(ctx, emailID, when)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(snoozeView{EmailID: emailID, SnoozedUntil: until.UTC()})
			if err != nil {
				return nil, fmt.Errorf("encode snooze_card result: %w", err)
			}
			return result, nil
		},
	)
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	var statusErr *api.StatusError
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, app.ErrNotLoggedIn),
		errors.Is(err, api.ErrUnauthorized),
		errors.Is(err, api.ErrSessionExpired):
		return mcp.NewToolResultError("auth_required: " + err.Error())
	case errors.Is(err, api.ErrOffline):
		return mcp.NewToolResultError("offline: " + err.Error())
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidColumnKey),
		errors.Is(err, domain.ErrInvalidSnooze),
		errors.Is(err, domain.ErrInvalidPeriod),
		errors.Is(err, app.ErrEmptyQuery),
		errors.Is(err, app.ErrInvalidLimit):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, domain.ErrUnknownColumn),
		errors.Is(err, domain.ErrCardNotFound),
		errors.Is(err, app.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.As(err, &statusErr) && statusErr.Status < http.StatusInternalServerError:
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
